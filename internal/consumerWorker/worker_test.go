package consumerWorker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkinBoard/internal/clock"
	"checkinBoard/internal/dto"
	"checkinBoard/internal/model"
	"checkinBoard/internal/notion"
	"checkinBoard/internal/queue"
	"checkinBoard/internal/repo"
)

type fakePages struct {
	mu       sync.Mutex
	failures []error
	calls    int
	pages    []notion.Page
	keys     []string
}

func (f *fakePages) CreatePage(_ context.Context, apiKey, _ string, p notion.Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return err
	}
	f.pages = append(f.pages, p)
	f.keys = append(f.keys, apiKey)
	return nil
}

func (f *fakePages) snapshot() (int, []notion.Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]notion.Page(nil), f.pages...)
}

func newTestWorker(t *testing.T, pages *fakePages, settings *model.SyncSettings) (*Worker, repo.Repository) {
	t.Helper()
	log := zerolog.Nop()
	r := repo.NewMemoryRepository(&log, clock.NewSystem())
	if settings != nil {
		require.NoError(t, r.SaveSyncSettings(context.Background(), *settings))
	}
	w := NewWorker(queue.NewMemory(8, &log), r, pages, &log, Options{
		Timeout:    time.Second,
		MaxTries:   3,
		NewBackOff: func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) },
	})
	return w, r
}

func taskBody(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(dto.SyncTask{
		RecordID:      "rec-1",
		EventID:       "ev-1",
		EventName:     "Seminar",
		AttendeeName:  "J Doe",
		AttendeeEmail: "jdoe@caltech.edu",
		PointsAwarded: 10,
		CheckedInAt:   time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return b
}

func TestWorker_Handle_SkipsWhenNotConfigured(t *testing.T) {
	pages := &fakePages{}
	w, _ := newTestWorker(t, pages, nil)

	require.NoError(t, w.handle(context.Background(), taskBody(t)))
	calls, _ := pages.snapshot()
	assert.Equal(t, 0, calls)
}

func TestWorker_Handle_SkipsWhenDisconnected(t *testing.T) {
	pages := &fakePages{}
	w, _ := newTestWorker(t, pages, &model.SyncSettings{APIKey: "k", DatabaseID: "db", IsConnected: false})

	require.NoError(t, w.handle(context.Background(), taskBody(t)))
	calls, _ := pages.snapshot()
	assert.Equal(t, 0, calls)
}

func TestWorker_Handle_RetriesTransientFailures(t *testing.T) {
	pages := &fakePages{failures: []error{
		&notion.APIError{StatusCode: http.StatusServiceUnavailable},
		errors.New("connection reset"),
	}}
	w, _ := newTestWorker(t, pages, &model.SyncSettings{APIKey: "k", DatabaseID: "db", IsConnected: true})

	require.NoError(t, w.handle(context.Background(), taskBody(t)))
	calls, got := pages.snapshot()
	assert.Equal(t, 3, calls)
	require.Len(t, got, 1)
	assert.Equal(t, "J Doe", got[0].AttendeeName)
	assert.Equal(t, 10, got[0].Points)
}

func TestWorker_Handle_GivesUpOnPermanentFailure(t *testing.T) {
	pages := &fakePages{failures: []error{&notion.APIError{StatusCode: http.StatusUnauthorized}}}
	w, _ := newTestWorker(t, pages, &model.SyncSettings{APIKey: "k", DatabaseID: "db", IsConnected: true})

	require.NoError(t, w.handle(context.Background(), taskBody(t)))
	calls, got := pages.snapshot()
	assert.Equal(t, 1, calls)
	assert.Empty(t, got)
}

func TestWorker_Handle_StopsAfterMaxTries(t *testing.T) {
	transient := &notion.APIError{StatusCode: http.StatusBadGateway}
	pages := &fakePages{failures: []error{transient, transient, transient, transient}}
	w, _ := newTestWorker(t, pages, &model.SyncSettings{APIKey: "k", DatabaseID: "db", IsConnected: true})

	require.NoError(t, w.handle(context.Background(), taskBody(t)))
	calls, got := pages.snapshot()
	assert.Equal(t, 3, calls)
	assert.Empty(t, got)
}

func TestWorker_Handle_RejectsMalformedTask(t *testing.T) {
	pages := &fakePages{}
	w, _ := newTestWorker(t, pages, nil)

	assert.Error(t, w.handle(context.Background(), []byte("{not json")))
}

func TestWorker_StartStop_ConsumesQueue(t *testing.T) {
	log := zerolog.Nop()
	q := queue.NewMemory(8, &log)
	defer q.Close()
	r := repo.NewMemoryRepository(&log, clock.NewSystem())
	require.NoError(t, r.SaveSyncSettings(context.Background(), model.SyncSettings{APIKey: "k", DatabaseID: "db", IsConnected: true}))
	pages := &fakePages{}

	w := NewWorker(q, r, pages, &log, Options{Timeout: time.Second, MaxTries: 1})
	w.Start(context.Background())
	defer w.Stop()

	require.NoError(t, q.Publish(context.Background(), taskBody(t)))

	assert.Eventually(t, func() bool {
		_, got := pages.snapshot()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
