package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dewei/StockScreener/pkg/cache"
	"github.com/dewei/StockScreener/pkg/collector"
	"github.com/dewei/StockScreener/pkg/engine"
	"github.com/dewei/StockScreener/pkg/fundamentals"
	"github.com/dewei/StockScreener/pkg/marketdata"
	"github.com/dewei/StockScreener/pkg/model"
	"github.com/dewei/StockScreener/pkg/monitor"
	"github.com/dewei/StockScreener/pkg/repository"
	"github.com/dewei/StockScreener/pkg/search"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubFetcher struct {
	mu      sync.Mutex
	records map[string]model.StockRecord
	batches int
}

func (f *stubFetcher) FetchQuotes(_ context.Context, symbols []string) ([]model.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	var out []model.StockRecord
	for _, s := range symbols {
		if r, ok := f.records[s]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *stubFetcher) FetchChart(_ context.Context, symbol string) (model.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[symbol]; ok {
		return r, nil
	}
	return model.StockRecord{Symbol: symbol, Name: symbol, Price: 100, SMA50: 95}, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type testEnv struct {
	handler   http.Handler
	fetcher   *stubFetcher
	universe  *repository.Universe
	market    *marketdata.Service
	publisher *recordingPublisher
}

type stubDirectoryStats struct {
	counts map[string]int
	err    error
}

func (s stubDirectoryStats) CountByExchange(context.Context) (map[string]int, error) {
	return s.counts, s.err
}

func newTestEnv(t *testing.T, entries []model.DirectoryEntry, records map[string]model.StockRecord) *testEnv {
	t.Helper()
	return newTestEnvWith(t, entries, records, nil)
}

func newTestEnvWith(t *testing.T, entries []model.DirectoryEntry, records map[string]model.StockRecord, stats DirectoryStats) *testEnv {
	t.Helper()
	log := zerolog.Nop()

	universe := repository.NewUniverse()
	universe.Replace(entries, repository.SourceArtifacts)

	index, err := search.NewIndex(log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	require.NoError(t, index.Rebuild(entries))

	fetcher := &stubFetcher{records: records}
	rnd := func() float64 { return 0.5 }
	market := marketdata.NewService(fetcher, cache.NewQuoteCache(time.Minute),
		collector.NewFallbackGenerator(rnd, universe.Name), log, marketdata.WithDirectory(universe))

	pub := &recordingPublisher{}
	screener := engine.NewScreener(market, universe, pub, engine.DefaultBatchSize, log)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Information":"rate limited"}`))
	}))
	t.Cleanup(upstream.Close)
	fund := fundamentals.NewService(fundamentals.Config{BaseURL: upstream.URL}, rnd, log)

	mon := monitor.NewMonitor(log)
	mon.RegisterComponent("nats", func(context.Context) error { return errors.New("disconnected") })

	srv := NewServer(ServerConfig{Port: "0"}, log)
	srv.SetupRoutes(NewHandlers(Deps{
		Market:       market,
		Screener:     screener,
		Universe:     universe,
		Fundamentals: fund,
		Search:       index,
		Publisher:    pub,
		Monitor:      mon,
		Directory:    stats,
		Log:          log,
	}))

	return &testEnv{
		handler:   srv.Handler(),
		fetcher:   fetcher,
		universe:  universe,
		market:    market,
		publisher: pub,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func numberedEntries(n int) []model.DirectoryEntry {
	out := make([]model.DirectoryEntry, n)
	for i := range out {
		out[i] = model.DirectoryEntry{Symbol: fmt.Sprintf("S%03d", i), Name: fmt.Sprintf("Stock %d", i), Exchange: "Q"}
	}
	return out
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, numberedEntries(3), nil)

	w := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Contains(t, resp, "timestamp")
	assert.EqualValues(t, 0, resp["cachedSymbols"])
	assert.Equal(t, "1m0s", resp["cacheTtl"])
}

func TestReadinessCheck(t *testing.T) {
	env := newTestEnv(t, numberedEntries(3), nil)

	w := env.do(t, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 3, resp["universe"])
	assert.Equal(t, repository.SourceArtifacts, resp["source"])
	assert.EqualValues(t, 3, resp["searchIndex"])

	// NATS 不可用时降级
	assert.Equal(t, "degraded", resp["status"])
	components, ok := resp["components"].([]interface{})
	require.True(t, ok)
	require.Len(t, components, 1)
	assert.Equal(t, "unhealthy", components[0].(map[string]interface{})["status"])
	assert.NotContains(t, resp, "mirror")
}

func TestReadinessCheck_ReportsMirrorCounts(t *testing.T) {
	env := newTestEnvWith(t, numberedEntries(3), nil, stubDirectoryStats{counts: map[string]int{"Q": 2, "N": 1}})

	w := env.do(t, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, map[string]interface{}{"Q": float64(2), "N": float64(1)}, resp["mirror"])
}

func TestReadinessCheck_MirrorFailureDegrades(t *testing.T) {
	env := newTestEnvWith(t, numberedEntries(3), nil, stubDirectoryStats{err: errors.New("connection refused")})

	w := env.do(t, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	assert.NotContains(t, resp, "mirror")
}

func TestScreen_EndToEnd(t *testing.T) {
	entries := []model.DirectoryEntry{
		{Symbol: "HIGH", Name: "High Corp", Exchange: "N"},
		{Symbol: "LOW", Name: "Low Corp", Exchange: "N"},
	}
	records := map[string]model.StockRecord{
		"HIGH": {Symbol: "HIGH", Name: "High Corp", Price: 150, SMA50: 140, Volume: 2e6},
		"LOW":  {Symbol: "LOW", Name: "Low Corp", Price: 90, SMA50: 95, Volume: 2e6},
	}
	env := newTestEnv(t, entries, records)

	w := env.do(t, http.MethodPost, "/api/screen", []byte(`{"minPrice":100,"aboveSMA50":true}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRunID))

	var results []model.StockRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "HIGH", results[0].Symbol)
	assert.Equal(t, "N", results[0].Exchange)

	assert.Equal(t, 1, env.fetcher.batches)
	assert.Equal(t, []string{"screener.completed"}, env.publisher.subjects)
}

func TestScreen_LenientCriteria(t *testing.T) {
	records := map[string]model.StockRecord{
		"AAA": {Symbol: "AAA", Price: 10},
	}
	env := newTestEnv(t, []model.DirectoryEntry{{Symbol: "AAA", Name: "A"}}, records)

	// 无法识别的数值视为未设置
	w := env.do(t, http.MethodPost, "/api/screen", []byte(`{"minPrice":"abc"}`))
	require.Equal(t, http.StatusOK, w.Code)

	var results []model.StockRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	assert.Len(t, results, 1)

	// 空请求体等同于没有条件
	w = env.do(t, http.MethodPost, "/api/screen", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	assert.Len(t, results, 1)

	w = env.do(t, http.MethodPost, "/api/screen", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStocks_PaginatesAllMode(t *testing.T) {
	env := newTestEnv(t, numberedEntries(120), nil)

	w := env.do(t, http.MethodGet, "/api/stocks?mode=all&page=2&limit=50", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page model.StockPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data, 50)
	assert.Equal(t, "S050", page.Data[0].Symbol)
	assert.Equal(t, model.Pagination{Page: 2, Limit: 50, Total: 120, TotalPages: 3, HasMore: true}, page.Pagination)

	w = env.do(t, http.MethodGet, "/api/stocks?mode=all&page=3&limit=50", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Data, 20)
	assert.False(t, page.Pagination.HasMore)
}

func TestGetStocks_InvalidParamsUseDefaults(t *testing.T) {
	env := newTestEnv(t, numberedEntries(5), nil)

	w := env.do(t, http.MethodGet, "/api/stocks?mode=all&page=-1&limit=abc", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page model.StockPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Data, 5)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 100, page.Pagination.Limit)
}

func TestGetStocks_HugeParamsAreClamped(t *testing.T) {
	env := newTestEnv(t, numberedEntries(5), nil)

	w := env.do(t, http.MethodGet, "/api/stocks?mode=all&page=9223372036854775807&limit=9223372036854775807", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page model.StockPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Empty(t, page.Data)
	assert.Equal(t, model.Pagination{Page: maxPage, Limit: maxLimit, Total: 5, TotalPages: 1}, page.Pagination)

	w = env.do(t, http.MethodGet, "/api/stocks?mode=all&page=1&limit=5000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Data, 5)
	assert.Equal(t, maxLimit, page.Pagination.Limit)
}

func TestGetStocks_ExplicitSymbols(t *testing.T) {
	env := newTestEnv(t, numberedEntries(5), nil)

	w := env.do(t, http.MethodGet, "/api/stocks?symbols=MSFT,%20AAPL,,MSFT", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page model.StockPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data, 2)
	assert.Equal(t, "MSFT", page.Data[0].Symbol)
	assert.Equal(t, "AAPL", page.Data[1].Symbol)
	assert.Equal(t, 2, page.Pagination.Total)
}

func TestFilterStocks(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	body := []byte(`{
		"stocks": [
			{"symbol":"A","price":50,"volume":3000000},
			{"symbol":"B","price":150,"volume":500000}
		],
		"criteria": {"minVolume": 1}
	}`)
	w := env.do(t, http.MethodPost, "/api/stocks/filter", body)
	require.Equal(t, http.StatusOK, w.Code)

	var results []model.StockRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "A", results[0].Symbol)
}

func TestGetFundamentals(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodGet, "/api/fundamentals/AAPL", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.Fundamentals
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AAPL", resp.Symbol)
	assert.Len(t, resp.QuarterlyData, 4)
	assert.Nil(t, resp.Overview)
}

func TestClearCache(t *testing.T) {
	env := newTestEnv(t, numberedEntries(3), nil)

	env.market.GetMany(context.Background(), []string{"S000", "S001"})
	require.Equal(t, 2, env.market.Cache().Len())

	w := env.do(t, http.MethodPost, "/api/cache/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Cache cleared", resp["message"])
	assert.EqualValues(t, 2, resp["symbolsCleared"])
	assert.Equal(t, 0, env.market.Cache().Len())
	assert.Equal(t, []string{"cache.cleared"}, env.publisher.subjects)
}

func TestSearchSymbols(t *testing.T) {
	entries := []model.DirectoryEntry{
		{Symbol: "AAPL", Name: "Apple Inc. - Common Stock", Exchange: "Q"},
		{Symbol: "AAL", Name: "American Airlines Group Inc.", Exchange: "Q"},
		{Symbol: "MSFT", Name: "Microsoft Corporation", Exchange: "Q"},
	}
	env := newTestEnv(t, entries, nil)

	w := env.do(t, http.MethodGet, "/api/symbols/search?q=AAPL", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Query string                 `json:"query"`
		Data  []model.DirectoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data)
	assert.Equal(t, "AAPL", resp.Data[0].Symbol)

	w = env.do(t, http.MethodGet, "/api/symbols/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSHeaders(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
