package db

import (
	"sync"
	"sync/atomic"

	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	"github.com/banshee-data/mocap.render/internal/mocap/pipeline"
	"github.com/banshee-data/mocap.render/internal/monitoring"
	"github.com/banshee-data/mocap.render/internal/timeutil"
)

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	Label  string
	Source string
	// RecordFrames also stores every tick report passed to ObserveFrame.
	RecordFrames bool
	Clock        timeutil.Clock
}

// Recorder is an ingest.Handler that stores every payload it forwards.
// Storage failures are logged and never fail the dispatch.
type Recorder struct {
	db      *DB
	next    ingest.Handler
	opts    RecorderOptions
	session Session
	seq     atomic.Int64

	mu     sync.RWMutex
	closed bool
}

var (
	_ ingest.Handler         = (*Recorder)(nil)
	_ pipeline.FrameObserver = (*Recorder)(nil)
)

// NewRecorder starts a session and returns a recorder forwarding to next.
func (db *DB) NewRecorder(next ingest.Handler, opts RecorderOptions) (*Recorder, error) {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	s, err := db.StartSession(opts.Label, opts.Source, opts.Clock.Now())
	if err != nil {
		return nil, err
	}
	monitoring.Logf("[Recorder] recording session %s (%s)", s.ID, s.Label)
	return &Recorder{db: db, next: next, opts: opts, session: s}, nil
}

// Session returns the session being recorded.
func (r *Recorder) Session() Session { return r.session }

// HandlePayload forwards data and records it with the dispatch outcome.
func (r *Recorder) HandlePayload(data []byte) (string, error) {
	kind, err := r.next.HandlePayload(data)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return kind, err
	}
	seq := r.seq.Add(1)
	if recErr := r.db.RecordPayload(r.session.ID, seq, r.opts.Clock.Now(), kind, data, err); recErr != nil {
		monitoring.Logf("[Recorder] %v", recErr)
	}
	return kind, err
}

// ObserveFrame stores the report when frame recording is enabled.
func (r *Recorder) ObserveFrame(rep pipeline.FrameReport) {
	if !r.opts.RecordFrames {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	if err := r.db.RecordFrame(r.session.ID, rep); err != nil {
		monitoring.Logf("[Recorder] %v", err)
	}
}

// Close ends the session. Payloads forwarded afterwards are not recorded.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	monitoring.Logf("[Recorder] session %s closed after %d payloads", r.session.ID, r.seq.Load())
	return r.db.EndSession(r.session.ID, r.opts.Clock.Now())
}
