package model

import (
	"time"
)

// ScreenCompletedEvent 一次全市场筛选完成后发布的事件
type ScreenCompletedEvent struct {
	RunID         string         `json:"runId"`
	Criteria      FilterCriteria `json:"criteria"`
	Scanned       int            `json:"scanned"`
	Matched       int            `json:"matched"`
	CacheHits     int            `json:"cacheHits"`
	Fallbacks     int            `json:"fallbacks"`
	UpstreamCalls int            `json:"upstreamCalls"`
	DurationMs    int64          `json:"durationMs"`
	FinishedAt    time.Time      `json:"finishedAt"`
}

// CacheClearedEvent 缓存清空事件
type CacheClearedEvent struct {
	SymbolsCleared int       `json:"symbolsCleared"`
	ClearedAt      time.Time `json:"clearedAt"`
}

// DirectoryRefreshedEvent 代码目录刷新事件
type DirectoryRefreshedEvent struct {
	Total      int            `json:"total"`
	Stocks     int            `json:"stocks"`
	ETFs       int            `json:"etfs"`
	ByExchange map[string]int `json:"byExchange"`
	// Source 目录来源：artifacts / database / static
	Source      string    `json:"source"`
	RefreshedAt time.Time `json:"refreshedAt"`
}
