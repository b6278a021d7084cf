package db

import (
	"context"
	"time"

	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	"github.com/banshee-data/mocap.render/internal/monitoring"
)

// ReplayOptions controls Replay.
type ReplayOptions struct {
	// Speed scales the recorded inter-arrival gaps: 1 is real time, 2 twice
	// as fast. Zero or negative replays as fast as possible.
	Speed float64
	// IncludeRejected also replays payloads the handler rejected when they
	// were recorded.
	IncludeRejected bool
}

// Replay dispatches a session's payloads to handler in arrival order and
// returns how many were dispatched. A payload the handler rejects is logged
// and skipped. Replay stops early when ctx is cancelled.
func (db *DB) Replay(ctx context.Context, sessionID string, handler ingest.Handler, opts ReplayOptions) (int, error) {
	if _, err := db.GetSession(sessionID); err != nil {
		return 0, err
	}
	// Load first: the handler may be a Recorder writing to this database.
	payloads, err := db.Payloads(sessionID, "")
	if err != nil {
		return 0, err
	}

	monitoring.Logf("[Replay] session %s: %d payloads at %.2fx", sessionID, len(payloads), opts.Speed)
	var (
		sent int
		prev time.Time
	)
	for _, p := range payloads {
		if !p.Accepted && !opts.IncludeRejected {
			continue
		}
		if opts.Speed > 0 && !prev.IsZero() {
			gap := time.Duration(float64(p.ReceivedAt.Sub(prev)) / opts.Speed)
			if err := sleepCtx(ctx, gap); err != nil {
				return sent, err
			}
		} else if err := ctx.Err(); err != nil {
			return sent, err
		}
		prev = p.ReceivedAt

		if kind, err := handler.HandlePayload(p.Data); err != nil {
			monitoring.Logf("[Replay] payload %d (%s) rejected: %v", p.Seq, kind, err)
			continue
		}
		sent++
	}
	monitoring.Logf("[Replay] session %s complete: %d payloads dispatched", sessionID, sent)
	return sent, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
