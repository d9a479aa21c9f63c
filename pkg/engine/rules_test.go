package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dewei/StockScreener/pkg/model"
)

func sampleRecord() model.StockRecord {
	return model.StockRecord{
		Symbol:           "AAPL",
		Price:            150,
		ChangePercent:    2,
		Volume:           5_000_000,
		RelativeStrength: 70,
		SMA50:            140,
		SMA150:           135,
		SMA200:           130,
		EMA20:            148,
		EMA50:            142,
	}
}

func TestMatches_EmptyCriteriaMatchesEverything(t *testing.T) {
	assert.True(t, Matches(sampleRecord(), model.FilterCriteria{}))
	assert.True(t, Matches(model.StockRecord{}, model.FilterCriteria{}))
}

func TestMatches_EachPredicate(t *testing.T) {
	rec := sampleRecord()

	tests := []struct {
		name     string
		criteria model.FilterCriteria
		want     bool
	}{
		{"minPrice 通过", model.FilterCriteria{MinPrice: model.Float(150)}, true},
		{"minPrice 失败", model.FilterCriteria{MinPrice: model.Float(151)}, false},
		{"maxPrice 通过", model.FilterCriteria{MaxPrice: model.Float(150)}, true},
		{"maxPrice 失败", model.FilterCriteria{MaxPrice: model.Float(149)}, false},
		{"minRS 失败", model.FilterCriteria{MinRS: model.Float(71)}, false},
		{"maxRS 失败", model.FilterCriteria{MaxRS: model.Float(69)}, false},
		{"priceChangeMin 失败", model.FilterCriteria{PriceChangeMin: model.Float(2.5)}, false},
		{"priceChangeMax 失败", model.FilterCriteria{PriceChangeMax: model.Float(1)}, false},
		{"minVolume 以百万为单位通过", model.FilterCriteria{MinVolume: model.Float(5)}, true},
		{"minVolume 以百万为单位失败", model.FilterCriteria{MinVolume: model.Float(5.1)}, false},
		{"aboveSMA50 通过", model.FilterCriteria{AboveSMA50: true}, true},
		{"aboveEMA20 通过", model.FilterCriteria{AboveEMA20: true}, true},
		{"NaN 下限不约束", model.FilterCriteria{MinPrice: model.Float(math.NaN())}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(rec, tt.criteria))
		})
	}
}

func TestMatches_AboveIsStrict(t *testing.T) {
	rec := sampleRecord()
	rec.SMA200 = rec.Price
	assert.False(t, Matches(rec, model.FilterCriteria{AboveSMA200: true}))

	rec.SMA150 = rec.Price + 1
	assert.False(t, Matches(rec, model.FilterCriteria{AboveSMA150: true}))

	rec.EMA50 = rec.Price
	assert.False(t, Matches(rec, model.FilterCriteria{AboveEMA50: true}))
}

// 多个条件的结果等于逐个条件结果的合取
func TestMatches_Conjunction(t *testing.T) {
	rec := sampleRecord()
	single := []model.FilterCriteria{
		{MinPrice: model.Float(100)},
		{MaxRS: model.Float(80)},
		{AboveSMA50: true},
		{MinVolume: model.Float(10)},
	}

	combined := model.FilterCriteria{
		MinPrice:   model.Float(100),
		MaxRS:      model.Float(80),
		AboveSMA50: true,
		MinVolume:  model.Float(10),
	}

	want := true
	for _, c := range single {
		want = want && Matches(rec, c)
	}
	assert.False(t, want)
	assert.Equal(t, want, Matches(rec, combined))

	combined.MinVolume = nil
	assert.True(t, Matches(rec, combined))
}

func TestFilter_KeepsOrderAndNeverNil(t *testing.T) {
	cheap := sampleRecord()
	cheap.Symbol = "CHEAP"
	cheap.Price = 10

	records := []model.StockRecord{sampleRecord(), cheap, sampleRecord()}
	out := Filter(records, model.FilterCriteria{MinPrice: model.Float(100)})
	assert.Len(t, out, 2)
	assert.Equal(t, "AAPL", out[0].Symbol)

	none := Filter(nil, model.FilterCriteria{})
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestActiveRules(t *testing.T) {
	assert.Empty(t, ActiveRules(model.FilterCriteria{}))
	assert.Equal(t, []string{"minPrice", "aboveSMA50"},
		ActiveRules(model.FilterCriteria{MinPrice: model.Float(1), AboveSMA50: true}))
}
