package collector

import (
	"strings"
)

// ToUpstream 将内部代码转换为上游格式（BRK.B → BRK-B）
func ToUpstream(symbol string) string {
	return strings.ReplaceAll(symbol, ".", "-")
}

// FromUpstream 将上游代码还原为内部格式（BRK-B → BRK.B）
//
// 只在无法通过请求映射还原时使用：像 BTC-USD 这样本身带连字符的代码
// 应该通过 symbolMapping 还原。
func FromUpstream(symbol string) string {
	return strings.ReplaceAll(symbol, "-", ".")
}

// symbolMapping 一次请求内上游代码到内部代码的映射
type symbolMapping map[string]string

// newSymbolMapping 为请求的符号建立映射
func newSymbolMapping(symbols []string) symbolMapping {
	m := make(symbolMapping, len(symbols))
	for _, s := range symbols {
		m[strings.ToUpper(ToUpstream(s))] = s
	}
	return m
}

// upstreamList 返回去重后的上游代码列表
func (m symbolMapping) upstreamList(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		up := ToUpstream(s)
		if seen[up] {
			continue
		}
		seen[up] = true
		out = append(out, up)
	}
	return out
}

// resolve 将上游返回的代码还原为请求时的代码
func (m symbolMapping) resolve(upstream string) string {
	if s, ok := m[strings.ToUpper(upstream)]; ok {
		return s
	}
	return FromUpstream(upstream)
}
