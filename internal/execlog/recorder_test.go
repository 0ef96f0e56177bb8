package execlog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"postcouncil/internal/logging"
	"postcouncil/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type failingWriter struct{}

func (failingWriter) AppendLog(context.Context, types.LogEntry) error {
	return errors.New("disk full")
}

type ctxCheckingWriter struct {
	sawCancelled bool
}

func (w *ctxCheckingWriter) AppendLog(ctx context.Context, _ types.LogEntry) error {
	w.sawCancelled = ctx.Err() != nil
	return nil
}

func TestRecordStampsEntry(t *testing.T) {
	mem := &Memory{}
	r := New(mem)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	r.Record(context.Background(), types.LogEntry{ExecutionID: "exec_1", Step: types.StepFetchContext})

	entries := mem.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, fixed, entries[0].CreatedAt)
	assert.Equal(t, types.LogSuccess, entries[0].Status)
	assert.Equal(t, int64(1), entries[0].ID)
}

func TestRecordWriteFailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(nil) })

	New(failingWriter{}).Record(context.Background(), types.LogEntry{ExecutionID: "exec_1", Step: types.StepStorePost})

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "disk full")
}

func TestRecordSurvivesCancelledContext(t *testing.T) {
	w := &ctxCheckingWriter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	New(w).Record(ctx, types.LogEntry{ExecutionID: "exec_1", Step: types.StepWorkflowError, Status: types.LogError})

	assert.False(t, w.sawCancelled)
}

func TestMemoryPreservesPerExecutionOrder(t *testing.T) {
	mem := &Memory{}
	r := New(mem)

	var wg sync.WaitGroup
	for _, id := range []string{"exec_1_empa_p0", "exec_1_empb_p0"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for _, step := range []string{types.StepFetchContext, "llm_claude", types.StepStorePost} {
				r.Record(context.Background(), types.LogEntry{ExecutionID: id, Step: step})
			}
		}(id)
	}
	wg.Wait()

	want := []string{types.StepFetchContext, "llm_claude", types.StepStorePost}
	assert.Equal(t, want, mem.Steps("exec_1_empa_p0"))
	assert.Equal(t, want, mem.Steps("exec_1_empb_p0"))
}

func TestMemoryListLogsFilters(t *testing.T) {
	mem := &Memory{}
	ctx := context.Background()
	require.NoError(t, mem.AppendLog(ctx, types.LogEntry{ExecutionID: "exec_1", CampaignID: "c1", Step: types.StepError, Status: types.LogError}))
	require.NoError(t, mem.AppendLog(ctx, types.LogEntry{ExecutionID: "exec_1_empa_p0", CampaignID: "c1", Step: types.StepStorePost, Status: types.LogSuccess}))
	require.NoError(t, mem.AppendLog(ctx, types.LogEntry{ExecutionID: "exec_2", CampaignID: "c2", Step: types.StepError, Status: types.LogError}))

	got, err := mem.ListLogs(ctx, types.LogFilter{ExecutionPrefix: "exec_1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = mem.ListLogs(ctx, types.LogFilter{Status: types.LogError, Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].CampaignID)
}
