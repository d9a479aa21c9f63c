package fundamentals

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewService(Config{BaseURL: srv.URL, APIKey: "test-key"}, func() float64 { return 0.5 }, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestService_Get(t *testing.T) {
	var gotFunction, gotSymbol, gotKey string
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotFunction = r.URL.Query().Get("function")
		gotSymbol = r.URL.Query().Get("symbol")
		gotKey = r.URL.Query().Get("apikey")
		_, _ = w.Write([]byte(`{"Symbol":"IBM","Name":"International Business Machines","Sector":"TECHNOLOGY","Industry":"None","MarketCapitalization":"200000000000"}`))
	})

	f := s.Get(context.Background(), "IBM")

	assert.Equal(t, "OVERVIEW", gotFunction)
	assert.Equal(t, "IBM", gotSymbol)
	assert.Equal(t, "test-key", gotKey)

	assert.Equal(t, "IBM", f.Symbol)
	require.NotNil(t, f.Overview)
	assert.Equal(t, "International Business Machines", f.Overview.Name)
	assert.Empty(t, f.Overview.Industry)

	require.Len(t, f.QuarterlyData, 4)
	assert.Equal(t, "Q1 2025", f.QuarterlyData[0].Quarter)
	assert.Equal(t, "Q4 2025", f.QuarterlyData[3].Quarter)

	q := f.QuarterlyData[0]
	assert.Equal(t, 3.5, q.EPS)
	assert.Equal(t, 100.0, q.Sales)
	assert.Equal(t, 55.0, q.GrossMargin)
	assert.Equal(t, 30.0, q.OperatingMargin)
	assert.Equal(t, 22.5, q.NetMargin)
}

func TestService_UpstreamFailureIsNotFatal(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	f := s.Get(context.Background(), "AAPL")
	assert.Equal(t, "AAPL", f.Symbol)
	assert.Nil(t, f.Overview)
	assert.Len(t, f.QuarterlyData, 4)
}

func TestService_RateLimitedResponseHasNoOverview(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Information":"demo key"}`))
	})

	f := s.Get(context.Background(), "AAPL")
	assert.Nil(t, f.Overview)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.24, round(1.235, 2))
	assert.Equal(t, 42.1, round(42.149, 1))
}
