package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FilterCriteria 筛选条件
//
// 数值上下限为 nil 表示不约束；布尔标志为 false 表示不约束。
type FilterCriteria struct {
	MinPrice       *float64 `json:"minPrice,omitempty"`
	MaxPrice       *float64 `json:"maxPrice,omitempty"`
	MinRS          *float64 `json:"minRS,omitempty"`
	MaxRS          *float64 `json:"maxRS,omitempty"`
	PriceChangeMin *float64 `json:"priceChangeMin,omitempty"`
	PriceChangeMax *float64 `json:"priceChangeMax,omitempty"`
	// MinVolume 以百万股为单位
	MinVolume *float64 `json:"minVolume,omitempty"`

	AboveSMA50  bool `json:"aboveSMA50,omitempty"`
	AboveSMA150 bool `json:"aboveSMA150,omitempty"`
	AboveSMA200 bool `json:"aboveSMA200,omitempty"`
	AboveEMA20  bool `json:"aboveEMA20,omitempty"`
	AboveEMA50  bool `json:"aboveEMA50,omitempty"`
}

// Float 返回 v 的指针，便于构造筛选条件
func Float(v float64) *float64 {
	return &v
}

// UnmarshalJSON 宽松解析筛选条件
//
// 非数值、null 或 NaN 的数值字段视为缺省，而不是解析失败。
// 数字字符串（如 "100"）按数值处理。
func (c *FilterCriteria) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = FilterCriteria{
		MinPrice:       looseNumber(raw["minPrice"]),
		MaxPrice:       looseNumber(raw["maxPrice"]),
		MinRS:          looseNumber(raw["minRS"]),
		MaxRS:          looseNumber(raw["maxRS"]),
		PriceChangeMin: looseNumber(raw["priceChangeMin"]),
		PriceChangeMax: looseNumber(raw["priceChangeMax"]),
		MinVolume:      looseNumber(raw["minVolume"]),
		AboveSMA50:     looseBool(raw["aboveSMA50"]),
		AboveSMA150:    looseBool(raw["aboveSMA150"]),
		AboveSMA200:    looseBool(raw["aboveSMA200"]),
		AboveEMA20:     looseBool(raw["aboveEMA20"]),
		AboveEMA50:     looseBool(raw["aboveEMA50"]),
	}
	return nil
}

// IsEmpty 判断是否没有任何约束
func (c FilterCriteria) IsEmpty() bool {
	return c == FilterCriteria{}
}

// looseNumber 将 JSON 值解析为数值，无法解析时返回 nil
func looseNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	var f float64
	switch value := v.(type) {
	case float64:
		f = value
	case string:
		s := strings.TrimSpace(value)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) {
		return nil
	}
	return &f
}

// looseBool 只有 JSON true 才视为开启
func looseBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}
