package model

import (
	"time"
)

// StockRecord 标准化后的股票行情记录
//
// Symbol 是缓存和下游所有结构的唯一标识。所有数值字段都保证是有限值，
// 上游缺失时由近似值或兜底数据填充。
type StockRecord struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Exchange      string    `json:"exchange,omitempty"`
	IsETF         bool      `json:"isETF"`
	Price         float64   `json:"price"`
	PrevClose     float64   `json:"prevClose"`
	ChangePercent float64   `json:"changePercent"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	Volume        float64   `json:"volume"`
	MarketCap     float64   `json:"marketCap"`
	SMA20         float64   `json:"sma20"`
	SMA50         float64   `json:"sma50"`
	SMA150        float64   `json:"sma150"`
	SMA200        float64   `json:"sma200"`
	EMA20         float64   `json:"ema20"`
	EMA50         float64   `json:"ema50"`
	// RelativeStrength 0-100 的相对强度评分
	RelativeStrength float64   `json:"relativeStrength"`
	LastUpdate       time.Time `json:"lastUpdate"`
}

// Pagination 分页元数据
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// NewPagination 根据页码、每页数量和总数计算分页信息
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = PageCount(total, limit)
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    page > 0 && page < totalPages,
	}
}

// PageCount 总页数，limit 必须为正
func PageCount(total, limit int) int {
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}

// StockPage 浏览接口的分页结果
type StockPage struct {
	Data       []StockRecord `json:"data"`
	Pagination Pagination    `json:"pagination"`
}
