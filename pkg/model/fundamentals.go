package model

// QuarterlyEntry 季度基本面数据
type QuarterlyEntry struct {
	Quarter         string  `json:"quarter"`
	EPS             float64 `json:"eps"`
	Sales           float64 `json:"sales"`
	GrossMargin     float64 `json:"grossMargin"`
	OperatingMargin float64 `json:"operatingMargin"`
	NetMargin       float64 `json:"netMargin"`
}

// CompanyOverview 上游返回的公司概况，仅供展示
type CompanyOverview struct {
	Name      string `json:"name,omitempty"`
	Exchange  string `json:"exchange,omitempty"`
	Sector    string `json:"sector,omitempty"`
	Industry  string `json:"industry,omitempty"`
	MarketCap string `json:"marketCap,omitempty"`
}

// Fundamentals 基本面数据（季度数据目前为合成值）
type Fundamentals struct {
	Symbol        string           `json:"symbol"`
	QuarterlyData []QuarterlyEntry `json:"quarterlyData"`
	Overview      *CompanyOverview `json:"overview,omitempty"`
}
