package repository

import (
	"sync"

	"github.com/dewei/StockScreener/pkg/model"
)

// 浏览模式
const (
	ModeDefault = "default"
	ModeAll     = "all"
	ModeIndices = "indices"
)

// 目录来源
const (
	SourceArtifacts = "artifacts"
	SourceDatabase  = "database"
	SourceStatic    = "static"
)

// Universe 股票代码全集
//
// 启动时从目录产物加载，定时刷新时整体替换。目录为空时筛选退回内置列表。
type Universe struct {
	mu       sync.RWMutex
	entries  []model.DirectoryEntry
	symbols  []string
	bySymbol map[string]model.DirectoryEntry
	source   string
}

// NewUniverse 创建空的代码全集
func NewUniverse() *Universe {
	return &Universe{
		bySymbol: make(map[string]model.DirectoryEntry),
		source:   SourceStatic,
	}
}

// Replace 整体替换目录，entries 为空时退回内置列表
func (u *Universe) Replace(entries []model.DirectoryEntry, source string) {
	bySymbol := make(map[string]model.DirectoryEntry, len(entries))
	kept := make([]model.DirectoryEntry, 0, len(entries))
	symbols := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Symbol == "" {
			continue
		}
		if _, dup := bySymbol[e.Symbol]; !dup {
			symbols = append(symbols, e.Symbol)
			kept = append(kept, e)
		}
		bySymbol[e.Symbol] = e
	}
	for i, e := range kept {
		kept[i] = bySymbol[e.Symbol]
	}

	if len(kept) == 0 {
		source = SourceStatic
	}

	u.mu.Lock()
	u.entries = kept
	u.symbols = symbols
	u.bySymbol = bySymbol
	u.source = source
	u.mu.Unlock()
}

// Size 目录中的代码数
func (u *Universe) Size() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.symbols)
}

// Source 当前目录来源
func (u *Universe) Source() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.source
}

// Entries 返回目录副本
func (u *Universe) Entries() []model.DirectoryEntry {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return append([]model.DirectoryEntry(nil), u.entries...)
}

// Lookup 按代码查找目录记录
func (u *Universe) Lookup(symbol string) (model.DirectoryEntry, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	e, ok := u.bySymbol[symbol]
	return e, ok
}

// Name 按代码查找名称，可直接作为 collector.NameResolver 使用
func (u *Universe) Name(symbol string) (string, bool) {
	e, ok := u.Lookup(symbol)
	if !ok {
		return "", false
	}
	return e.Name, true
}

// ScreeningSymbols 筛选范围：目录全集，目录为空时为内置列表
func (u *Universe) ScreeningSymbols() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if len(u.symbols) == 0 {
		return FallbackSymbols()
	}
	return u.symbols
}

// BrowseSymbols 按浏览模式选取代码，返回本页代码和总数
//
// 只有 all 模式分页；其他模式返回完整列表。explicit 非空且不是 indices 模式时
// 直接使用调用方给出的代码。
func (u *Universe) BrowseSymbols(mode string, explicit []string, page, limit int) ([]string, int) {
	switch mode {
	case ModeAll:
		all := u.ScreeningSymbols()
		return paginate(all, page, limit), len(all)
	case ModeIndices:
		return append([]string(nil), MarketIndices...), len(MarketIndices)
	}

	if len(explicit) > 0 {
		symbols := dedupe(explicit)
		return symbols, len(symbols)
	}
	symbols := DefaultSymbols()
	return symbols, len(symbols)
}

// paginate 截取第 page 页（从 1 开始）
func paginate(symbols []string, page, limit int) []string {
	if page < 1 || limit <= 0 || page > model.PageCount(len(symbols), limit) {
		return []string{}
	}
	start := (page - 1) * limit
	end := min(start+limit, len(symbols))
	return append([]string(nil), symbols[start:end]...)
}
