package cache

import (
	"sync"
	"time"

	"github.com/dewei/StockScreener/pkg/model"
)

// DefaultTTL 行情缓存的默认有效期
const DefaultTTL = 5 * time.Minute

// entry 缓存条目：记录与写入时间
type entry struct {
	record   model.StockRecord
	storedAt time.Time
}

// QuoteCache 按股票代码索引的内存行情缓存
//
// 过期条目不会被主动清理，只是在 Get 时被忽略，直到下一次 Put 覆盖。
// 没有容量上限：符号全集是有界的。
type QuoteCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

// NewQuoteCache 创建行情缓存，ttl<=0 时使用默认有效期
func NewQuoteCache(ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &QuoteCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// WithClock 替换时钟，用于测试
func (c *QuoteCache) WithClock(now func() time.Time) *QuoteCache {
	c.now = now
	return c
}

// TTL 返回缓存有效期
func (c *QuoteCache) TTL() time.Duration {
	return c.ttl
}

// Get 返回未过期的缓存记录
func (c *QuoteCache) Get(symbol string) (model.StockRecord, bool) {
	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return model.StockRecord{}, false
	}
	return e.record, true
}

// Put 无条件覆盖写入，时间戳取当前时间
func (c *QuoteCache) Put(symbol string, record model.StockRecord) {
	c.mu.Lock()
	c.entries[symbol] = entry{record: record, storedAt: c.now()}
	c.mu.Unlock()
}

// Clear 清空缓存，返回被清除的符号数量
func (c *QuoteCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cleared := len(c.entries)
	c.entries = make(map[string]entry)
	return cleared
}

// Len 返回缓存中的符号数量（包含已过期条目）
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
