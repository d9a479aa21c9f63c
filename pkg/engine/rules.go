package engine

import (
	"math"

	"github.com/dewei/StockScreener/pkg/model"
)

// volumeUnit minVolume 的单位：百万股
const volumeUnit = 1_000_000

// rule 单个筛选谓词
//
// active 判断条件中是否设置了该约束，check 在约束存在时判断记录是否满足。
type rule struct {
	name   string
	active func(c model.FilterCriteria) bool
	check  func(r model.StockRecord, c model.FilterCriteria) bool
}

// rules 全部筛选谓词，所有生效的谓词取合取
var rules = []rule{
	{
		name:   "minPrice",
		active: func(c model.FilterCriteria) bool { return isSet(c.MinPrice) },
		check:  func(r model.StockRecord, c model.FilterCriteria) bool { return r.Price >= *c.MinPrice },
	},
	{
		name:   "maxPrice",
		active: func(c model.FilterCriteria) bool { return isSet(c.MaxPrice) },
		check:  func(r model.StockRecord, c model.FilterCriteria) bool { return r.Price <= *c.MaxPrice },
	},
	{
		name:   "minRS",
		active: func(c model.FilterCriteria) bool { return isSet(c.MinRS) },
		check:  func(r model.StockRecord, c model.FilterCriteria) bool { return r.RelativeStrength >= *c.MinRS },
	},
	{
		name:   "maxRS",
		active: func(c model.FilterCriteria) bool { return isSet(c.MaxRS) },
		check:  func(r model.StockRecord, c model.FilterCriteria) bool { return r.RelativeStrength <= *c.MaxRS },
	},
	{
		name:   "priceChangeMin",
		active: func(c model.FilterCriteria) bool { return isSet(c.PriceChangeMin) },
		check:  func(r model.StockRecord, c model.FilterCriteria) bool { return r.ChangePercent >= *c.PriceChangeMin },
	},
	{
		name:   "priceChangeMax",
		active: func(c model.FilterCriteria) bool { return isSet(c.PriceChangeMax) },
		check:  func(r model.StockRecord, c model.FilterCriteria) bool { return r.ChangePercent <= *c.PriceChangeMax },
	},
	{
		name:   "minVolume",
		active: func(c model.FilterCriteria) bool { return isSet(c.MinVolume) },
		check:  func(r model.StockRecord, c model.FilterCriteria) bool { return r.Volume/volumeUnit >= *c.MinVolume },
	},
	{
		name:   "aboveSMA50",
		active: func(c model.FilterCriteria) bool { return c.AboveSMA50 },
		check:  func(r model.StockRecord, _ model.FilterCriteria) bool { return r.Price > r.SMA50 },
	},
	{
		name:   "aboveSMA150",
		active: func(c model.FilterCriteria) bool { return c.AboveSMA150 },
		check:  func(r model.StockRecord, _ model.FilterCriteria) bool { return r.Price > r.SMA150 },
	},
	{
		name:   "aboveSMA200",
		active: func(c model.FilterCriteria) bool { return c.AboveSMA200 },
		check:  func(r model.StockRecord, _ model.FilterCriteria) bool { return r.Price > r.SMA200 },
	},
	{
		name:   "aboveEMA20",
		active: func(c model.FilterCriteria) bool { return c.AboveEMA20 },
		check:  func(r model.StockRecord, _ model.FilterCriteria) bool { return r.Price > r.EMA20 },
	},
	{
		name:   "aboveEMA50",
		active: func(c model.FilterCriteria) bool { return c.AboveEMA50 },
		check:  func(r model.StockRecord, _ model.FilterCriteria) bool { return r.Price > r.EMA50 },
	},
}

// isSet 数值约束存在且不是 NaN
func isSet(v *float64) bool {
	return v != nil && !math.IsNaN(*v)
}

// Matches 判断记录是否满足全部生效的筛选条件，空条件匹配一切
func Matches(record model.StockRecord, criteria model.FilterCriteria) bool {
	for _, r := range rules {
		if r.active(criteria) && !r.check(record, criteria) {
			return false
		}
	}
	return true
}

// Filter 返回满足条件的记录，保持输入顺序，结果不为 nil
func Filter(records []model.StockRecord, criteria model.FilterCriteria) []model.StockRecord {
	matched := make([]model.StockRecord, 0, len(records))
	for _, r := range records {
		if Matches(r, criteria) {
			matched = append(matched, r)
		}
	}
	return matched
}

// ActiveRules 返回条件中生效的谓词名称，用于日志
func ActiveRules(criteria model.FilterCriteria) []string {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		if r.active(criteria) {
			names = append(names, r.name)
		}
	}
	return names
}
