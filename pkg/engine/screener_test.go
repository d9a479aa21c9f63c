package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dewei/StockScreener/pkg/cache"
	"github.com/dewei/StockScreener/pkg/collector"
	"github.com/dewei/StockScreener/pkg/marketdata"
	"github.com/dewei/StockScreener/pkg/model"
)

// countingFetcher 记录批量调用次数，按 quotes 返回行情
type countingFetcher struct {
	mu     sync.Mutex
	calls  int
	quotes map[string]model.StockRecord
	fail   bool
}

func (f *countingFetcher) FetchQuotes(_ context.Context, symbols []string) ([]model.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errors.New("timeout")
	}
	out := make([]model.StockRecord, 0, len(symbols))
	for _, s := range symbols {
		if q, ok := f.quotes[s]; ok {
			out = append(out, q)
		} else {
			out = append(out, model.StockRecord{Symbol: s, Price: 1, SMA50: 2})
		}
	}
	return out, nil
}

func (f *countingFetcher) FetchChart(context.Context, string) (model.StockRecord, error) {
	return model.StockRecord{}, collector.ErrNoQuotes
}

type staticUniverse []string

func (u staticUniverse) ScreeningSymbols() []string { return u }

type recordingPublisher struct {
	subjects []string
	events   []interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data interface{}) error {
	p.subjects = append(p.subjects, subject)
	p.events = append(p.events, data)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newScreener(f *countingFetcher, universe []string, pub *recordingPublisher) *Screener {
	svc := marketdata.NewService(f, cache.NewQuoteCache(time.Minute),
		collector.NewFallbackGenerator(func() float64 { return 0.5 }, nil), zerolog.Nop())
	return NewScreener(svc, staticUniverse(universe), pub, 0, zerolog.Nop())
}

func symbols(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("S%03d", i)
	}
	return out
}

func TestScreener_BatchesUpstreamCalls(t *testing.T) {
	f := &countingFetcher{}
	pub := &recordingPublisher{}
	s := newScreener(f, symbols(250), pub)

	results, report, err := s.Screen(context.Background(), model.FilterCriteria{})
	require.NoError(t, err)

	assert.Equal(t, 3, f.calls)
	assert.Len(t, results, 250)
	assert.Equal(t, 3, report.Batches)
	assert.Equal(t, 3, report.UpstreamCalls)
	assert.Equal(t, 250, report.Scanned)
	assert.NotEmpty(t, report.RunID)
	assert.True(t, report.Unfiltered)

	// 第二次全部命中缓存
	_, report, err = s.Screen(context.Background(), model.FilterCriteria{})
	require.NoError(t, err)
	assert.Equal(t, 3, f.calls)
	assert.Equal(t, 250, report.CacheHits)
}

func TestScreener_FiltersAboveSMA50(t *testing.T) {
	f := &countingFetcher{quotes: map[string]model.StockRecord{
		"UP":   {Symbol: "UP", Price: 150, SMA50: 140},
		"DOWN": {Symbol: "DOWN", Price: 90, SMA50: 140},
	}}
	s := newScreener(f, []string{"UP", "DOWN"}, &recordingPublisher{})

	results, report, err := s.Screen(context.Background(), model.FilterCriteria{MinPrice: model.Float(100), AboveSMA50: true})
	require.NoError(t, err)
	assert.False(t, report.Unfiltered)
	require.Len(t, results, 1)
	assert.Equal(t, "UP", results[0].Symbol)
}

func TestScreener_BatchFailureDoesNotAbort(t *testing.T) {
	f := &countingFetcher{fail: true}
	s := newScreener(f, symbols(120), &recordingPublisher{})

	results, report, err := s.Screen(context.Background(), model.FilterCriteria{})
	require.NoError(t, err)
	assert.Len(t, results, 120)
	assert.Equal(t, 120, report.Fallbacks)
	assert.Equal(t, 2, f.calls)
}

func TestScreener_NoMatchesReturnsEmptySlice(t *testing.T) {
	f := &countingFetcher{}
	s := newScreener(f, symbols(5), &recordingPublisher{})

	results, _, err := s.Screen(context.Background(), model.FilterCriteria{MinPrice: model.Float(1e9)})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestScreener_PublishesCompletion(t *testing.T) {
	pub := &recordingPublisher{}
	s := newScreener(&countingFetcher{}, symbols(3), pub)

	_, report, err := s.Screen(context.Background(), model.FilterCriteria{})
	require.NoError(t, err)

	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "screener.completed", pub.subjects[0])
	evt, ok := pub.events[0].(model.ScreenCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, report.RunID, evt.RunID)
	assert.Equal(t, 3, evt.Matched)
}

func TestScreener_StopsWhenContextCancelled(t *testing.T) {
	f := &countingFetcher{}
	s := newScreener(f, symbols(300), &recordingPublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Screen(ctx, model.FilterCriteria{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.calls)
}

func TestChunk(t *testing.T) {
	batches := Chunk(symbols(250), 100)
	require.Len(t, batches, 3)
	assert.Len(t, batches[2], 50)
	assert.Empty(t, Chunk(nil, 100))
}
