package twchart

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/timeutil"
	"github.com/calvinmclean/autotune/trace"
)

const queueSize = 256

type entry struct {
	record trace.Record
	at     time.Time
}

// Recorder is a trace.Tracer that exports every tuning cycle as a TWChart session: a stage per
// search state, an event whenever a better configuration is measured, and an event with the
// outcome. Trace never blocks the controller; uploads happen in Run.
type Recorder struct {
	client SessionClient
	clock  timeutil.Clock
	logger *slog.Logger
	queue  chan entry

	// upload state, only touched by Run
	cycle   uint32
	active  bool
	skipped bool
	stage   autotune.State
	best    autotune.Score
}

var _ trace.Tracer = &Recorder{}

// NewRecorder creates a Recorder uploading to the TWChart server at addr
func NewRecorder(addr string, logger *slog.Logger) *Recorder {
	return newRecorder(NewClient(addr), timeutil.RealClock{}, logger)
}

func newRecorder(client SessionClient, clock timeutil.Clock, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		client: client,
		clock:  clock,
		logger: logger,
		queue:  make(chan entry, queueSize),
	}
}

// Trace queues r for upload. Records are dropped while the queue is full.
func (r *Recorder) Trace(rec trace.Record) {
	select {
	case r.queue <- entry{rec, r.clock.Now()}:
	default:
		r.logger.Debug("TWChart queue full, dropping record", "cycle", rec.Cycle, "step", rec.Step)
	}
}

// Run uploads queued records until ctx is done
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-r.queue:
			if err := r.upload(ctx, e); err != nil {
				r.logger.Warn("error exporting to TWChart", "cycle", e.record.Cycle, "error", err)
			}
		}
	}
}

// upload sends one record. After an error the rest of that cycle is skipped.
func (r *Recorder) upload(ctx context.Context, e entry) error {
	if r.skipped && e.record.Cycle == r.cycle {
		return nil
	}

	err := r.uploadRecord(ctx, e)
	if err != nil {
		r.cycle = e.record.Cycle
		r.active = false
		r.skipped = true
	}
	return err
}

func (r *Recorder) uploadRecord(ctx context.Context, e entry) error {
	rec := e.record

	switch rec.State {
	case autotune.StateIdle:
		return nil
	case autotune.StateMatched, autotune.StateBestEffort, autotune.StateAborted:
		if !r.active || rec.Cycle != r.cycle {
			return nil
		}
		r.active = false

		note := fmt.Sprintf("%s %s SWR %s", rec.State, rec.Config, rec.Score)
		if err := r.client.AddEvent(ctx, note, e.at); err != nil {
			return fmt.Errorf("error adding outcome: %w", err)
		}
		if err := r.client.Done(ctx, e.at); err != nil {
			return fmt.Errorf("error finishing session: %w", err)
		}
		return nil
	}

	if !r.active || rec.Cycle != r.cycle {
		if _, err := r.client.CreateSession(ctx, fmt.Sprintf("Tune cycle %d", rec.Cycle), e.at); err != nil {
			return fmt.Errorf("error creating session: %w", err)
		}
		if err := r.client.SetStartTime(ctx, e.at); err != nil {
			return fmt.Errorf("error setting start time: %w", err)
		}
		r.cycle = rec.Cycle
		r.active = true
		r.skipped = false
		r.stage = autotune.StateIdle
		r.best = autotune.MaxScore
	}

	if rec.State != r.stage {
		if err := r.client.AddStage(ctx, rec.State.String(), e.at); err != nil {
			return fmt.Errorf("error adding stage: %w", err)
		}
		r.stage = rec.State
	}

	if rec.Step > 0 && rec.Score < r.best {
		r.best = rec.Score
		note := fmt.Sprintf("%s SWR %s", rec.Config, rec.Score)
		if err := r.client.AddEvent(ctx, note, e.at); err != nil {
			return fmt.Errorf("error adding event: %w", err)
		}
	}
	return nil
}
