package collector

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRelativeStrength_Clamped(t *testing.T) {
	tests := []struct {
		name          string
		changePercent float64
		rnd           float64
		want          float64
	}{
		{"平盘无扰动", 0, 0.5, 50},
		{"大涨截断到100", 50, 0.99, 100},
		{"大跌截断到0", -50, 0, 0},
		{"涨5%最小扰动", 5, 0, 65},
		{"NaN按0处理", math.NaN(), 0.5, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewOffsetApproximation(fixedRand(tt.rnd))
			assert.InDelta(t, tt.want, a.RelativeStrength(tt.changePercent), 1e-9)
		})
	}
}

func TestOffsetApproximation_UsesUpstreamAverages(t *testing.T) {
	a := NewOffsetApproximation(fixedRand(0.5))

	mas := a.MovingAverages(200, UpstreamAverages{FiftyDay: 180, TwoHundredDay: 160})
	assert.Equal(t, 180.0, mas.SMA50)
	assert.Equal(t, 160.0, mas.SMA200)
	assert.InDelta(t, 160*0.75+180*0.25, mas.SMA150, 1e-9)

	mas = a.MovingAverages(200, UpstreamAverages{})
	assert.InDelta(t, 196.0, mas.SMA50, 1e-9)
	assert.InDelta(t, 190.0, mas.SMA200, 1e-9)
}

func TestJitterApproximation_StaysBelowPrice(t *testing.T) {
	for _, r := range []float64{0, 0.3, 0.999} {
		a := NewJitterApproximation(fixedRand(r))
		mas := a.MovingAverages(100, UpstreamAverages{})

		assert.LessOrEqual(t, mas.SMA20, 100.0)
		assert.Less(t, mas.SMA50, 100.0)
		assert.Less(t, mas.SMA150, 100.0)
		assert.Less(t, mas.SMA200, 100.0)
		assert.Greater(t, mas.SMA200, 0.0)
		assert.LessOrEqual(t, mas.EMA20, 100.0)
		assert.Less(t, mas.EMA50, 100.0)
	}
}

func TestFallbackGenerator_Generate(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	for _, r := range []float64{0, 0.42, 0.999} {
		g := NewFallbackGenerator(fixedRand(r), nil)
		rec := g.Generate("ZZZZ", now)

		assert.Equal(t, "ZZZZ", rec.Symbol)
		assert.Equal(t, "ZZZZ", rec.Name)
		assert.GreaterOrEqual(t, rec.Price, 50.0)
		assert.Less(t, rec.Price, 550.0)
		assert.GreaterOrEqual(t, rec.ChangePercent, -5.0)
		assert.Less(t, rec.ChangePercent, 5.0)
		assert.InDelta(t, rec.ChangePercent, (rec.Price-rec.PrevClose)/rec.PrevClose*100, 1e-9)
		assert.GreaterOrEqual(t, rec.High, rec.Low)
		assert.GreaterOrEqual(t, rec.Volume, 10_000_000.0)
		assert.Greater(t, rec.MarketCap, 0.0)
		assert.GreaterOrEqual(t, rec.RelativeStrength, 0.0)
		assert.LessOrEqual(t, rec.RelativeStrength, 100.0)
		assert.Equal(t, now, rec.LastUpdate)
	}
}

func TestFallbackGenerator_UsesNameSources(t *testing.T) {
	g := NewFallbackGenerator(fixedRand(0.1), func(symbol string) (string, bool) {
		if symbol == "ZZZZ" {
			return "Zeta Corp", true
		}
		return "", false
	})

	assert.Equal(t, "Apple Inc.", g.Generate("AAPL", time.Now()).Name)
	assert.Equal(t, "Zeta Corp", g.Generate("ZZZZ", time.Now()).Name)
}

func TestSymbolMapping(t *testing.T) {
	assert.Equal(t, "BRK-B", ToUpstream("BRK.B"))
	assert.Equal(t, "BRK.B", FromUpstream("BRK-B"))

	m := newSymbolMapping([]string{"BRK.B", "BTC-USD", "aapl"})
	assert.Equal(t, []string{"BRK-B", "BTC-USD", "aapl"}, m.upstreamList([]string{"BRK.B", "BTC-USD", "aapl", "BRK.B"}))
	assert.Equal(t, "BRK.B", m.resolve("BRK-B"))
	assert.Equal(t, "BTC-USD", m.resolve("BTC-USD"))
	assert.Equal(t, "aapl", m.resolve("AAPL"))
	assert.Equal(t, "BF.A", m.resolve("BF-A"))
}
