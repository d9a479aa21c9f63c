package collector

import (
	"context"
	"errors"

	"github.com/dewei/StockScreener/pkg/model"
)

var (
	// ErrUpstreamStatus 上游返回非 2xx 状态码
	ErrUpstreamStatus = errors.New("上游返回异常状态码")
	// ErrNoQuotes 上游响应中没有可用的行情
	ErrNoQuotes = errors.New("上游响应中没有行情数据")
)

// QuoteFetcher 行情数据获取接口
type QuoteFetcher interface {
	// FetchQuotes 一次批量请求获取多只股票行情，响应中缺失的符号不会出现在结果里
	FetchQuotes(ctx context.Context, symbols []string) ([]model.StockRecord, error)
	// FetchChart 获取单只股票的日内行情
	FetchChart(ctx context.Context, symbol string) (model.StockRecord, error)
}
