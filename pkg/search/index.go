package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/rs/zerolog"

	"github.com/dewei/StockScreener/pkg/model"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	indexBatchSize = 1000
)

// document 索引中的文档
type document struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// Index 代码目录的内存全文索引，支持按代码前缀和名称搜索
type Index struct {
	mu      sync.RWMutex
	idx     bleve.Index
	entries map[string]model.DirectoryEntry
	log     zerolog.Logger
}

// NewIndex 创建空索引
func NewIndex(log zerolog.Logger) (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("创建搜索索引失败: %w", err)
	}
	return &Index{
		idx:     idx,
		entries: make(map[string]model.DirectoryEntry),
		log:     log.With().Str("component", "search").Logger(),
	}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Store = false
	docMapping.AddFieldMappingsAt("symbol", textField)
	docMapping.AddFieldMappingsAt("name", textField)

	exchangeField := bleve.NewKeywordFieldMapping()
	exchangeField.Store = false
	docMapping.AddFieldMappingsAt("exchange", exchangeField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Rebuild 用 entries 重建索引；新索引建好后才替换旧索引
func (i *Index) Rebuild(entries []model.DirectoryEntry) error {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("创建搜索索引失败: %w", err)
	}

	byID := make(map[string]model.DirectoryEntry, len(entries))
	batch := idx.NewBatch()
	for _, e := range entries {
		if e.Symbol == "" {
			continue
		}
		byID[e.Symbol] = e
		if err := batch.Index(e.Symbol, document{Symbol: e.Symbol, Name: e.Name, Exchange: e.Exchange}); err != nil {
			idx.Close()
			return fmt.Errorf("索引 %s 失败: %w", e.Symbol, err)
		}
		if batch.Size() >= indexBatchSize {
			if err := idx.Batch(batch); err != nil {
				idx.Close()
				return fmt.Errorf("写入索引失败: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := idx.Batch(batch); err != nil {
			idx.Close()
			return fmt.Errorf("写入索引失败: %w", err)
		}
	}

	i.mu.Lock()
	old := i.idx
	i.idx = idx
	i.entries = byID
	i.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			i.log.Warn().Err(err).Msg("关闭旧索引失败")
		}
	}
	i.log.Info().Int("documents", len(byID)).Msg("搜索索引已重建")
	return nil
}

// Size 索引中的文档数
func (i *Index) Size() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

// Search 按代码（精确、前缀）和名称搜索，结果按相关度排序
func (i *Index) Search(q string, limit int) ([]model.DirectoryEntry, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []model.DirectoryEntry{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q), limit, 0, false)

	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.idx == nil {
		return nil, fmt.Errorf("搜索索引已关闭")
	}
	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("搜索失败: %w", err)
	}

	out := make([]model.DirectoryEntry, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if e, ok := i.entries[hit.ID]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// buildQuery 代码精确匹配权重最高，其次是代码前缀，最后是名称
func buildQuery(q string) query.Query {
	lower := strings.ToLower(q)

	exact := bleve.NewTermQuery(lower)
	exact.SetField("symbol")
	exact.SetBoost(10)

	prefix := bleve.NewPrefixQuery(lower)
	prefix.SetField("symbol")
	prefix.SetBoost(5)

	name := bleve.NewMatchQuery(q)
	name.SetField("name")
	name.SetBoost(3)

	namePrefix := bleve.NewPrefixQuery(lower)
	namePrefix.SetField("name")

	return bleve.NewDisjunctionQuery(exact, prefix, name, namePrefix)
}

// Close 关闭索引
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.idx == nil {
		return nil
	}
	err := i.idx.Close()
	i.idx = nil
	return err
}
