package collector

// knownNames 常用股票、指数和 ETF 的展示名称
var knownNames = map[string]string{
	// 科技
	"AAPL":  "Apple Inc.",
	"MSFT":  "Microsoft Corporation",
	"GOOGL": "Alphabet Inc.",
	"AMZN":  "Amazon.com Inc.",
	"NVDA":  "NVIDIA Corporation",
	"META":  "Meta Platforms Inc.",
	"TSLA":  "Tesla Inc.",
	"NFLX":  "Netflix Inc.",
	"INTC":  "Intel Corporation",
	"AMD":   "Advanced Micro Devices",
	"ORCL":  "Oracle Corporation",
	"CSCO":  "Cisco Systems",
	"ADBE":  "Adobe Inc.",
	"CRM":   "Salesforce Inc.",
	"AVGO":  "Broadcom Inc.",

	// 金融
	"BRK.B": "Berkshire Hathaway",
	"JPM":   "JPMorgan Chase",
	"V":     "Visa Inc.",
	"MA":    "Mastercard Inc.",
	"BAC":   "Bank of America",
	"WFC":   "Wells Fargo",
	"C":     "Citigroup",
	"GS":    "Goldman Sachs",
	"MS":    "Morgan Stanley",
	"AXP":   "American Express",
	"SCHW":  "Charles Schwab",
	"BLK":   "BlackRock",
	"PNC":   "PNC Financial",
	"USB":   "U.S. Bancorp",

	// 消费
	"WMT":  "Walmart Inc.",
	"PG":   "Procter & Gamble",
	"KO":   "Coca-Cola Company",
	"PEP":  "PepsiCo Inc.",
	"COST": "Costco Wholesale",
	"HD":   "Home Depot",
	"LOW":  "Lowe's Companies",
	"MCD":  "McDonald's Corp",
	"NKE":  "Nike Inc.",
	"SBUX": "Starbucks",
	"TGT":  "Target Corp",

	// 医疗
	"JNJ":  "Johnson & Johnson",
	"UNH":  "UnitedHealth Group",
	"PFE":  "Pfizer Inc.",
	"ABBV": "AbbVie Inc.",
	"TMO":  "Thermo Fisher",
	"ABT":  "Abbott Laboratories",
	"MRK":  "Merck & Co.",
	"LLY":  "Eli Lilly",

	// 能源
	"XOM": "Exxon Mobil",
	"CVX": "Chevron Corporation",
	"COP": "ConocoPhillips",

	"DIS": "Walt Disney",

	// 金融科技与成长股
	"SHOP": "Shopify Inc.",
	"SQ":   "Block Inc.",
	"PYPL": "PayPal Holdings",
	"COIN": "Coinbase Global",
	"ROKU": "Roku Inc.",
	"UBER": "Uber Technologies",
	"LYFT": "Lyft Inc.",
	"ABNB": "Airbnb Inc.",
	"RBLX": "Roblox Corp",

	// 加密货币
	"BTC-USD": "Bitcoin USD",
	"ETH-USD": "Ethereum USD",

	// 指数
	"^GSPC": "S&P 500 Index",
	"^DJI":  "Dow Jones Industrial",
	"^IXIC": "NASDAQ Composite",
	"^RUT":  "Russell 2000",
	"^VIX":  "CBOE Volatility Index",

	// ETF
	"SPY":  "SPDR S&P 500 ETF",
	"QQQ":  "Invesco QQQ (NASDAQ-100)",
	"VOO":  "Vanguard S&P 500 ETF",
	"XLE":  "Energy Select Sector",
	"XLF":  "Financial Select Sector",
	"XLK":  "Technology Select Sector",
	"IBIT": "iShares Bitcoin Trust",
	"GLD":  "SPDR Gold Trust",
}

// NameResolver 根据代码查找展示名称
type NameResolver func(symbol string) (string, bool)

// StockName 返回展示名称：先查内置名称表，再查 resolver，最后退回代码本身
func StockName(symbol string, resolver NameResolver) string {
	if name, ok := knownNames[symbol]; ok {
		return name
	}
	if resolver != nil {
		if name, ok := resolver(symbol); ok && name != "" {
			return name
		}
	}
	return symbol
}
