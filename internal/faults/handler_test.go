package faults

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/internal/cache"
	"github.com/docuflow/docuflow/types"
)

func setupHandler(t *testing.T, cfg Config) (*Handler, *cache.Manager) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	mgr, err := cache.NewManager(cache.Config{
		Addr:       mr.Addr(),
		DefaultTTL: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	return NewHandler(cfg, mgr, zap.NewNop()), mgr
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantSeverity Severity
		wantCategory Category
	}{
		{
			name:         "validation",
			err:          types.NewError(types.ErrInvalidRequest, "bad payload"),
			wantSeverity: SeverityLow,
			wantCategory: CategoryValidation,
		},
		{
			name:         "auth",
			err:          types.NewError(types.ErrUnauthorized, "no token"),
			wantSeverity: SeverityMedium,
			wantCategory: CategoryAPI,
		},
		{
			name:         "rate limit",
			err:          types.NewError(types.ErrRateLimited, "slow down"),
			wantSeverity: SeverityMedium,
			wantCategory: CategoryResource,
		},
		{
			name:         "upstream",
			err:          types.NewError(types.ErrUpstreamError, "openai 502"),
			wantSeverity: SeverityMedium,
			wantCategory: CategoryIntegration,
		},
		{
			name:         "check timeout",
			err:          types.NewError(types.ErrCheckTimeout, "acrolinx slow"),
			wantSeverity: SeverityMedium,
			wantCategory: CategoryIntegration,
		},
		{
			name:         "configuration",
			err:          types.NewError(types.ErrConfiguration, "missing api key"),
			wantSeverity: SeverityCritical,
			wantCategory: CategoryConfiguration,
		},
		{
			name:         "plain error",
			err:          errors.New("boom"),
			wantSeverity: SeverityHigh,
			wantCategory: CategorySystem,
		},
		{
			name:         "wrapped typed error",
			err:          fmt.Errorf("wrapped: %w", types.NewError(types.ErrNotFound, "gone")),
			wantSeverity: SeverityLow,
			wantCategory: CategoryAPI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			severity, category := Categorize(tt.err)
			assert.Equal(t, tt.wantSeverity, severity)
			assert.Equal(t, tt.wantCategory, category)
		})
	}
}

func TestHandle_StoresRecord(t *testing.T) {
	h, mgr := setupHandler(t, DefaultConfig())
	ctx := context.Background()

	record := h.Handle(ctx, types.NewError(types.ErrUpstreamError, "openai down").WithService("openai"),
		"review_content", map[string]any{"request_id": "req-1"})

	require.NotNil(t, record)
	assert.Equal(t, SeverityMedium, record.Severity)
	assert.Equal(t, CategoryIntegration, record.Category)
	assert.Equal(t, "openai", record.Service)
	assert.Equal(t, "req-1", record.RequestID)
	assert.NotEmpty(t, record.RecoveryHint)

	var stored Record
	err := mgr.GetJSON(ctx, cache.Key(cache.PrefixError, record.ID), &stored)
	require.NoError(t, err)
	assert.Equal(t, record.ID, stored.ID)
}

func TestHandle_NilError(t *testing.T) {
	h := NewHandler(DefaultConfig(), nil, zap.NewNop())
	assert.Nil(t, h.Handle(context.Background(), nil, "op", nil))
}

func TestHandle_PatternEscalation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PatternThreshold = 3
	h, _ := setupHandler(t, cfg)
	ctx := context.Background()

	err := types.NewError(types.ErrUpstreamError, "flaky upstream")

	var last *Record
	for i := 0; i < 5; i++ {
		last = h.Handle(ctx, err, "review_content", nil)
	}

	// Past the threshold the recurring integration error runs high.
	assert.Equal(t, SeverityHigh, last.Severity)
}

func TestHandle_NotifiesOnHighSeverity(t *testing.T) {
	var notified atomic.Int32
	var gotSeverity string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		notified.Add(1)
		assert.Equal(t, "Bearer hook-token", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotSeverity, _ = payload["severity"].(string)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.NotifyURL = srv.URL
	cfg.NotifyToken = "hook-token"
	h := NewHandler(cfg, nil, zap.NewNop())

	h.Handle(context.Background(), types.NewError(types.ErrConfiguration, "bad config"), "startup", nil)

	assert.Equal(t, int32(1), notified.Load())
	assert.Equal(t, "critical", gotSeverity)
}

func TestHandle_NoNotifyOnLowSeverity(t *testing.T) {
	var notified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		notified.Add(1)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.NotifyURL = srv.URL
	h := NewHandler(cfg, nil, zap.NewNop())

	h.Handle(context.Background(), types.NewError(types.ErrInvalidRequest, "bad request"), "review", nil)

	assert.Equal(t, int32(0), notified.Load())
}

func TestSummarize(t *testing.T) {
	h, _ := setupHandler(t, DefaultConfig())
	ctx := context.Background()

	h.Handle(ctx, types.NewError(types.ErrInvalidRequest, "bad"), "op", nil)
	h.Handle(ctx, types.NewError(types.ErrUpstreamError, "down"), "op", nil)
	h.Handle(ctx, types.NewError(types.ErrUpstreamError, "down again"), "op", nil)

	summary, err := h.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.ByCategory[CategoryValidation])
	assert.Equal(t, 2, summary.ByCategory[CategoryIntegration])
}
