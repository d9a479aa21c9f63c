package collector

import (
	"math"
	"math/rand"
)

// UpstreamAverages 上游提供的均线，0 表示缺失
type UpstreamAverages struct {
	FiftyDay      float64
	TwoHundredDay float64
}

// MovingAverages 记录中的均线字段
type MovingAverages struct {
	SMA20  float64
	SMA50  float64
	SMA150 float64
	SMA200 float64
	EMA20  float64
	EMA50  float64
}

// ApproximationStrategy 技术指标近似策略
//
// 现有实现都不是基于历史序列的真实计算：均线是当前价格乘以固定系数
// （可叠加随机扰动），相对强度是涨跌幅归一化后加随机扰动。
// 换成真实的历史计算时只需提供新的实现。
type ApproximationStrategy interface {
	MovingAverages(price float64, upstream UpstreamAverages) MovingAverages
	RelativeStrength(changePercent float64) float64
}

// RandSource 返回 [0,1) 的随机数
type RandSource func() float64

// DefaultRand 默认随机源
func DefaultRand() float64 {
	return rand.Float64()
}

// rsJitter 相对强度的随机扰动，两种策略共用
type rsJitter struct {
	rnd RandSource
}

// RelativeStrength 按 ±10% 的典型区间把涨跌幅归一化到 0-100，
// 再叠加 [-10,10) 的随机扰动并截断到 [0,100]
func (j rsJitter) RelativeStrength(changePercent float64) float64 {
	if math.IsNaN(changePercent) || math.IsInf(changePercent, 0) {
		changePercent = 0
	}
	normalized := (changePercent + 10) / 20 * 100
	return math.Max(0, math.Min(100, normalized+j.rnd()*20-10))
}

// OffsetApproximation 固定系数近似：优先使用上游均线，缺失时按价格乘以固定系数
type OffsetApproximation struct {
	rsJitter
}

// NewOffsetApproximation 创建固定系数近似策略
func NewOffsetApproximation(rnd RandSource) *OffsetApproximation {
	if rnd == nil {
		rnd = DefaultRand
	}
	return &OffsetApproximation{rsJitter{rnd: rnd}}
}

// MovingAverages 计算均线近似值
func (a *OffsetApproximation) MovingAverages(price float64, upstream UpstreamAverages) MovingAverages {
	sma50 := positiveOr(upstream.FiftyDay, price*0.98)
	sma200 := positiveOr(upstream.TwoHundredDay, price*0.95)

	sma150 := price * 0.96
	if sma50 > 0 && sma200 > 0 {
		sma150 = sma200*0.75 + sma50*0.25
	}

	return MovingAverages{
		SMA20:  price * 0.99,
		SMA50:  sma50,
		SMA150: sma150,
		SMA200: sma200,
		EMA20:  price * 0.995,
		EMA50:  price * 0.985,
	}
}

// JitterApproximation 随机扰动近似：在固定系数基础上按 2% 波动率叠加随机偏移
//
// 用于兜底数据，上游均线存在时仍优先使用。
type JitterApproximation struct {
	rsJitter
}

// NewJitterApproximation 创建随机扰动近似策略
func NewJitterApproximation(rnd RandSource) *JitterApproximation {
	if rnd == nil {
		rnd = DefaultRand
	}
	return &JitterApproximation{rsJitter{rnd: rnd}}
}

// MovingAverages 计算带随机扰动的均线近似值
func (a *JitterApproximation) MovingAverages(price float64, upstream UpstreamAverages) MovingAverages {
	const volatility = 0.02
	r := a.rnd

	return MovingAverages{
		SMA20:  price * (1 - r()*volatility),
		SMA50:  positiveOr(upstream.FiftyDay, price*(0.98-r()*volatility*2)),
		SMA150: price * (0.97 - r()*volatility*2.5),
		SMA200: positiveOr(upstream.TwoHundredDay, price*(0.95-r()*volatility*3)),
		EMA20:  price * (1 - r()*volatility*0.5),
		EMA50:  price * (0.985 - r()*volatility*1.5),
	}
}

// positiveOr 返回 v（有限正数时），否则返回 fallback
func positiveOr(v, fallback float64) float64 {
	if v > 0 && !math.IsInf(v, 0) {
		return v
	}
	return fallback
}
