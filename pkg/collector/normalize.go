package collector

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dewei/StockScreener/pkg/model"
)

// quoteFields 从上游响应中抽取出的原始字段，0 表示缺失
type quoteFields struct {
	Symbol        string
	Name          string
	Exchange      string
	QuoteType     string
	Price         float64
	PrevClose     float64
	High          float64
	Low           float64
	Open          float64
	Volume        float64
	MarketCap     float64
	FiftyDay      float64
	TwoHundredDay float64
}

// Normalizer 将上游字段转换为统一的 StockRecord
type Normalizer struct {
	approx ApproximationStrategy
	names  NameResolver
}

// NewNormalizer 创建规范化器
func NewNormalizer(approx ApproximationStrategy, names NameResolver) *Normalizer {
	if approx == nil {
		approx = NewOffsetApproximation(nil)
	}
	return &Normalizer{approx: approx, names: names}
}

// normalize 生成完整记录；价格缺失、非正数或派生值溢出视为响应格式错误
func (n *Normalizer) normalize(f quoteFields, defaultVolume float64, now time.Time) (model.StockRecord, error) {
	price := finite(f.Price)
	if price <= 0 {
		return model.StockRecord{}, fmt.Errorf("%s 缺少有效价格", f.Symbol)
	}

	prevClose := positiveOr(finite(f.PrevClose), price)
	changePercent := (price - prevClose) / prevClose * 100

	high := positiveOr(finite(f.High), price*1.02)
	low := positiveOr(finite(f.Low), price*0.98)
	if high < low {
		high, low = low, high
	}

	name := f.Name
	if name == "" {
		name = StockName(f.Symbol, n.names)
	}

	mas := n.approx.MovingAverages(price, UpstreamAverages{
		FiftyDay:      finite(f.FiftyDay),
		TwoHundredDay: finite(f.TwoHundredDay),
	})

	record := model.StockRecord{
		Symbol:           f.Symbol,
		Name:             name,
		Exchange:         f.Exchange,
		IsETF:            f.QuoteType == "ETF",
		Price:            price,
		PrevClose:        prevClose,
		ChangePercent:    changePercent,
		High:             high,
		Low:              low,
		Open:             positiveOr(finite(f.Open), price*0.99),
		Volume:           positiveOr(finite(f.Volume), defaultVolume),
		MarketCap:        positiveOr(finite(f.MarketCap), price*1e9),
		SMA20:            mas.SMA20,
		SMA50:            mas.SMA50,
		SMA150:           mas.SMA150,
		SMA200:           mas.SMA200,
		EMA20:            mas.EMA20,
		EMA50:            mas.EMA50,
		RelativeStrength: n.approx.RelativeStrength(changePercent),
		LastUpdate:       now,
	}
	if !allFinite(record) {
		return model.StockRecord{}, fmt.Errorf("%s 派生字段超出数值范围", f.Symbol)
	}
	return record, nil
}

// allFinite 检查记录的所有数值字段，极端价格可能让派生值溢出
func allFinite(r model.StockRecord) bool {
	for _, v := range []float64{
		r.Price, r.PrevClose, r.ChangePercent, r.High, r.Low, r.Open, r.Volume, r.MarketCap,
		r.SMA20, r.SMA50, r.SMA150, r.SMA200, r.EMA20, r.EMA50, r.RelativeStrength,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// finite 将 NaN/Inf 视为缺失
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// parseFloat 将接口类型转换为float64
func parseFloat(v interface{}) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case string:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0
		}
		return f
	case map[string]interface{}:
		// 部分接口返回 {"raw": 1.23, "fmt": "1.23"}
		return parseFloat(value["raw"])
	default:
		return 0
	}
}

// getString 从 map 中读取字符串
func getString(m map[string]interface{}, key string) string {
	if val, ok := m[key]; ok && val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

// firstPositive 返回第一个大于 0 的值
func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if finite(v) > 0 {
			return v
		}
	}
	return 0
}

// lastPositive 返回切片中最后一个大于 0 的值
func lastPositive(values []float64) float64 {
	for i := len(values) - 1; i >= 0; i-- {
		if finite(values[i]) > 0 {
			return values[i]
		}
	}
	return 0
}

// firstPositiveIn 返回切片中第一个大于 0 的值
func firstPositiveIn(values []float64) float64 {
	for _, v := range values {
		if finite(v) > 0 {
			return v
		}
	}
	return 0
}
