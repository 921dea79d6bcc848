package consumerWorker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"checkinBoard/internal/dto"
	"checkinBoard/internal/notion"
	"checkinBoard/internal/queue"
	"checkinBoard/internal/repo"
)

// PageCreator is the part of the Notion client the worker needs.
type PageCreator interface {
	CreatePage(ctx context.Context, apiKey, databaseID string, p notion.Page) error
}

type Options struct {
	// Timeout bounds every single call to the external service.
	Timeout  time.Duration
	MaxTries uint
	// NewBackOff builds the delay policy between tries. Defaults to
	// exponential backoff.
	NewBackOff func() backoff.BackOff
}

// Worker forwards check-ins to the external store. Failures are logged and
// never reach the check-in caller.
type Worker struct {
	queue  queue.Queue
	repo   repo.Repository
	pages  PageCreator
	log    *zerolog.Logger
	opts   Options
	done   chan struct{}
	cancel context.CancelFunc
}

func NewWorker(q queue.Queue, repository repo.Repository, pages PageCreator, log *zerolog.Logger, opts Options) *Worker {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxTries == 0 {
		opts.MaxTries = 5
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			return b
		}
	}
	return &Worker{
		queue: q,
		repo:  repository,
		pages: pages,
		log:   log,
		opts:  opts,
		done:  make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.log.Info().Msg("Sync worker started")

	go func() {
		defer close(w.done)

		if err := w.queue.Consume(func(body []byte) error {
			return w.handle(cctx, body)
		}); err != nil {
			w.log.Error().Err(err).Msg("Failed to start consuming")
			return
		}

		<-cctx.Done()
		w.log.Info().Msg("Sync worker stopped by context")
	}()
}

func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
}

func (w *Worker) handle(ctx context.Context, body []byte) error {
	var task dto.SyncTask
	if err := json.Unmarshal(body, &task); err != nil {
		w.log.Error().Err(err).Msgf("Failed to unmarshal sync task: %s", string(body))
		return fmt.Errorf("unmarshal sync task: %w", err)
	}

	settings, err := w.repo.GetSyncSettings(ctx)
	if errors.Is(err, repo.ErrSyncSettingsNotFound) || (err == nil && !settings.IsConnected) {
		w.log.Debug().Str("record_id", task.RecordID).Msg("external sync not configured, skipping task")
		return nil
	}
	if err != nil {
		w.log.Error().Err(err).Str("record_id", task.RecordID).Msg("Failed to load sync settings")
		return nil
	}

	page := notion.Page{
		AttendeeName:  task.AttendeeName,
		AttendeeEmail: task.AttendeeEmail,
		EventName:     task.EventName,
		Points:        task.PointsAwarded,
		CheckedInAt:   task.CheckedInAt,
	}

	tries := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		tries++
		callCtx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
		defer cancel()

		err := w.pages.CreatePage(callCtx, settings.APIKey, settings.DatabaseID, page)
		if err != nil && !notion.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		if err != nil {
			w.log.Warn().Err(err).Str("record_id", task.RecordID).Int("try", tries).Msg("external sync attempt failed")
		}
		return struct{}{}, err
	}, backoff.WithBackOff(w.opts.NewBackOff()), backoff.WithMaxTries(w.opts.MaxTries))
	if err != nil {
		w.log.Error().
			Err(err).
			Str("record_id", task.RecordID).
			Str("event_id", task.EventID).
			Int("tries", tries).
			Msg("external sync failed, entry not mirrored")
		return nil
	}

	w.log.Info().
		Str("record_id", task.RecordID).
		Str("email", task.AttendeeEmail).
		Int("tries", tries).
		Msg("check-in mirrored to external store")
	return nil
}
