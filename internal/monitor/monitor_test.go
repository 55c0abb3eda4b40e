package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/internal/cache"
)

func setupMonitor(t *testing.T, cfg Config) *Monitor {
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

	return New(cfg, mgr, nil, zap.NewNop())
}

func TestMonitor_StartEnd(t *testing.T) {
	m := setupMonitor(t, DefaultConfig())
	ctx := context.Background()

	id := m.Start("review", "review_content")
	assert.Equal(t, 1, m.ActiveCount())

	record := m.End(ctx, id, true)
	require.NotNil(t, record)
	assert.Equal(t, "review", record.Agent)
	assert.Equal(t, "review_content", record.Operation)
	assert.True(t, record.Success)
	assert.False(t, record.Slow)
	assert.Equal(t, 0, m.ActiveCount())
}

func TestMonitor_UnknownToken(t *testing.T) {
	m := New(DefaultConfig(), nil, nil, zap.NewNop())
	assert.Nil(t, m.End(context.Background(), "no-such-token", true))
}

func TestMonitor_SlowDetection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SlowThreshold = time.Millisecond
	m := setupMonitor(t, cfg)

	id := m.Start("draft", "create_draft")
	time.Sleep(5 * time.Millisecond)

	record := m.End(context.Background(), id, true)
	require.NotNil(t, record)
	assert.True(t, record.Slow)
}

func TestMonitor_Track(t *testing.T) {
	m := setupMonitor(t, DefaultConfig())

	wantErr := errors.New("boom")
	err := m.Track(context.Background(), "query", "process_query", func(ctx context.Context) error {
		return wantErr
	})
	assert.Equal(t, wantErr, err)
	assert.Equal(t, 0, m.ActiveCount())
}

func TestMonitor_Summarize(t *testing.T) {
	m := setupMonitor(t, DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id := m.Start("review", "review_content")
		m.End(ctx, id, i != 2)
	}
	id := m.Start("query", "process_query")
	m.End(ctx, id, true)

	summaries, err := m.Summarize(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byOp := make(map[string]OperationSummary)
	for _, s := range summaries {
		byOp[s.Operation] = s
	}

	review := byOp["review_content"]
	assert.Equal(t, 3, review.Count)
	assert.Equal(t, 1, review.Failures)
	assert.Equal(t, 1, byOp["process_query"].Count)
}
