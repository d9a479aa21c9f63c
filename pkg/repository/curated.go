package repository

// SP500Top 流动性最好的 100 只标普 500 成分股
var SP500Top = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "BRK.B", "UNH", "XOM",
	"JPM", "JNJ", "V", "PG", "MA", "HD", "CVX", "ABBV", "MRK", "LLY",
	"AVGO", "KO", "PEP", "COST", "ADBE", "MCD", "TMO", "WMT", "CSCO", "ABT",
	"ACN", "CRM", "NFLX", "NKE", "DHR", "VZ", "TXN", "LIN", "ORCL", "NEE",
	"DIS", "UPS", "BMY", "PM", "RTX", "QCOM", "INTC", "AMD", "INTU", "HON",
	"T", "CMCSA", "BA", "UNP", "LOW", "COP", "AMGN", "SPGI", "ELV", "CAT",
	"DE", "GE", "AXP", "PLD", "BLK", "MS", "MDLZ", "GILD", "BKNG", "SYK",
	"ADP", "MMC", "TJX", "VRTX", "C", "ADI", "ISRG", "NOW", "CB", "REGN",
	"ZTS", "MO", "SCHW", "PGR", "CI", "SO", "DUK", "BSX", "EOG", "ETN",
	"WM", "CME", "ITW", "APD", "MMM", "CSX", "PNC", "ICE", "GD", "USB",
}

// AdditionalStocks 热门成长股补充列表
var AdditionalStocks = []string{
	"SHOP", "SQ", "PYPL", "ROKU", "SNAP", "UBER", "LYFT", "COIN", "RBLX", "ABNB",
	"PLTR", "SNOW", "DDOG", "CRWD", "ZS", "OKTA", "NET", "MDB", "TEAM", "WDAY",
	"PANW", "FTNT", "SPLK", "VEEV", "ZM", "DOCU", "TWLO", "DKNG", "PENN", "MGM",
	"F", "GM", "RIVN", "LCID", "NIO", "XPEV", "LI", "PLUG", "FCEL", "BLNK",
	"ENPH", "SEDG", "RUN", "SPWR", "NEE", "DUK", "SO", "D", "AEP", "EXC",
}

// MarketIndices 主要指数、ETF 和加密资产
var MarketIndices = []string{
	"^GSPC", "^DJI", "^IXIC", "^RUT", "^VIX",
	"SPY", "QQQ", "VOO",
	"XLE", "XLF", "XLK",
	"IBIT",
	"GLD",
	"BTC-USD",
}

// DefaultBrowseCount 默认浏览模式展示的股票数
const DefaultBrowseCount = 25

// DefaultSymbols 默认浏览模式的股票
func DefaultSymbols() []string {
	return append([]string(nil), SP500Top[:DefaultBrowseCount]...)
}

// FallbackSymbols 目录不可用时的筛选范围：标普列表与补充列表合并去重
func FallbackSymbols() []string {
	return dedupe(append(append([]string(nil), SP500Top...), AdditionalStocks...))
}

// dedupe 去重并保持首次出现的顺序
func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
