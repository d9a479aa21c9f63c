package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dewei/StockScreener/pkg/model"
)

const (
	DefaultQuoteURL      = "https://query1.finance.yahoo.com/v7/finance/quote"
	DefaultChartURL      = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultUserAgent     = "Mozilla/5.0"
	DefaultBatchTimeout  = 8 * time.Second
	DefaultSingleTimeout = 5 * time.Second

	// 批量接口缺失成交量时的默认值
	quoteDefaultVolume = 1_000_000
	// 图表接口缺失成交量时的默认值
	chartDefaultVolume = 10_000_000
)

// YahooConfig Yahoo 行情接口配置
type YahooConfig struct {
	QuoteURL      string
	ChartURL      string
	UserAgent     string
	BatchTimeout  time.Duration
	SingleTimeout time.Duration
}

// YahooAdapter Yahoo 行情适配器，实现 QuoteFetcher 接口
type YahooAdapter struct {
	cfg        YahooConfig
	client     *http.Client
	normalizer *Normalizer
	log        zerolog.Logger
	now        func() time.Time
}

// yahooQuoteResponse v7 批量行情响应
type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []map[string]interface{} `json:"result"`
		Error  interface{}              `json:"error"`
	} `json:"quoteResponse"`
}

// yahooChartResponse v8 图表响应
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string  `json:"symbol"`
				ShortName            string  `json:"shortName"`
				LongName             string  `json:"longName"`
				ExchangeName         string  `json:"exchangeName"`
				InstrumentType       string  `json:"instrumentType"`
				RegularMarketPrice   float64 `json:"regularMarketPrice"`
				ChartPreviousClose   float64 `json:"chartPreviousClose"`
				PreviousClose        float64 `json:"previousClose"`
				RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
				RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
				RegularMarketVolume  float64 `json:"regularMarketVolume"`
				MarketCap            float64 `json:"marketCap"`
				FiftyDayAverage      float64 `json:"fiftyDayAverage"`
				TwoHundredDayAverage float64 `json:"twoHundredDayAverage"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// NewYahooAdapter 创建 Yahoo 行情适配器
func NewYahooAdapter(cfg YahooConfig, approx ApproximationStrategy, names NameResolver, log zerolog.Logger) *YahooAdapter {
	if cfg.QuoteURL == "" {
		cfg.QuoteURL = DefaultQuoteURL
	}
	if cfg.ChartURL == "" {
		cfg.ChartURL = DefaultChartURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}
	if cfg.SingleTimeout <= 0 {
		cfg.SingleTimeout = DefaultSingleTimeout
	}

	return &YahooAdapter{
		cfg:        cfg,
		client:     &http.Client{},
		normalizer: NewNormalizer(approx, names),
		log:        log.With().Str("client", "yahoo").Logger(),
		now:        time.Now,
	}
}

// FetchQuotes 批量获取行情，一次调用对应一次上游请求
//
// 单条记录格式错误时跳过该条，由调用方按缺失处理。
func (a *YahooAdapter) FetchQuotes(ctx context.Context, symbols []string) ([]model.StockRecord, error) {
	if len(symbols) == 0 {
		return []model.StockRecord{}, nil
	}

	mapping := newSymbolMapping(symbols)
	params := url.Values{}
	params.Set("symbols", strings.Join(mapping.upstreamList(symbols), ","))

	var resp yahooQuoteResponse
	if err := a.getJSON(ctx, a.cfg.QuoteURL+"?"+params.Encode(), a.cfg.BatchTimeout, &resp); err != nil {
		return nil, err
	}

	now := a.now()
	records := make([]model.StockRecord, 0, len(resp.QuoteResponse.Result))
	for _, q := range resp.QuoteResponse.Result {
		upstream := getString(q, "symbol")
		if upstream == "" {
			continue
		}
		fields := quoteFields{
			Symbol:        mapping.resolve(upstream),
			Name:          firstNonEmpty(getString(q, "shortName"), getString(q, "longName")),
			Exchange:      getString(q, "fullExchangeName"),
			QuoteType:     getString(q, "quoteType"),
			Price:         parseFloat(q["regularMarketPrice"]),
			PrevClose:     firstPositive(parseFloat(q["regularMarketPreviousClose"]), parseFloat(q["previousClose"])),
			High:          parseFloat(q["regularMarketDayHigh"]),
			Low:           parseFloat(q["regularMarketDayLow"]),
			Open:          parseFloat(q["regularMarketOpen"]),
			Volume:        parseFloat(q["regularMarketVolume"]),
			MarketCap:     parseFloat(q["marketCap"]),
			FiftyDay:      parseFloat(q["fiftyDayAverage"]),
			TwoHundredDay: parseFloat(q["twoHundredDayAverage"]),
		}

		record, err := a.normalizer.normalize(fields, quoteDefaultVolume, now)
		if err != nil {
			a.log.Warn().Err(err).Str("symbol", fields.Symbol).Msg("跳过格式错误的行情")
			continue
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, ErrNoQuotes
	}
	return records, nil
}

// FetchChart 通过图表接口获取单只股票的日内行情
func (a *YahooAdapter) FetchChart(ctx context.Context, symbol string) (model.StockRecord, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")
	endpoint := strings.TrimRight(a.cfg.ChartURL, "/") + "/" + url.PathEscape(ToUpstream(symbol)) + "?" + params.Encode()

	var resp yahooChartResponse
	if err := a.getJSON(ctx, endpoint, a.cfg.SingleTimeout, &resp); err != nil {
		return model.StockRecord{}, err
	}
	if len(resp.Chart.Result) == 0 {
		return model.StockRecord{}, fmt.Errorf("%s: %w", symbol, ErrNoQuotes)
	}

	result := resp.Chart.Result[0]
	meta := result.Meta
	fields := quoteFields{
		Symbol:        symbol,
		Name:          firstNonEmpty(meta.ShortName, meta.LongName),
		Exchange:      meta.ExchangeName,
		QuoteType:     meta.InstrumentType,
		Price:         meta.RegularMarketPrice,
		PrevClose:     firstPositive(meta.ChartPreviousClose, meta.PreviousClose),
		High:          meta.RegularMarketDayHigh,
		Low:           meta.RegularMarketDayLow,
		Volume:        meta.RegularMarketVolume,
		MarketCap:     meta.MarketCap,
		FiftyDay:      meta.FiftyDayAverage,
		TwoHundredDay: meta.TwoHundredDayAverage,
	}
	if len(result.Indicators.Quote) > 0 {
		ind := result.Indicators.Quote[0]
		fields.High = firstPositive(fields.High, lastPositive(ind.High))
		fields.Low = firstPositive(fields.Low, lastPositive(ind.Low))
		fields.Volume = firstPositive(fields.Volume, lastPositive(ind.Volume))
		fields.Open = firstPositiveIn(ind.Open)
	}

	return a.normalizer.normalize(fields, chartDefaultVolume, a.now())
}

// getJSON 发起带超时的 GET 请求并解析 JSON 响应
func (a *YahooAdapter) getJSON(ctx context.Context, endpoint string, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("执行HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
