package db

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	"github.com/banshee-data/mocap.render/internal/mocap/pipeline"
	"github.com/banshee-data/mocap.render/internal/testutil"
	"github.com/banshee-data/mocap.render/internal/timeutil"
)

var epoch = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// decodeHandler accepts any well-formed envelope and counts dispatches.
type decodeHandler struct {
	mu    sync.Mutex
	kinds []string
}

func (h *decodeHandler) HandlePayload(data []byte) (string, error) {
	env, err := ingest.Decode(data)
	if err != nil {
		return ingest.EventTypeUnknown, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kinds = append(h.kinds, env.EventType())
	return env.EventType(), nil
}

func (h *decodeHandler) dispatched() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.kinds...)
}

// recordSession records a pose, a rejected payload and a face payload 20ms
// apart.
func recordSession(t *testing.T, db *DB) Session {
	t.Helper()
	clock := timeutil.NewMockClock(epoch)
	rec, err := db.NewRecorder(&decodeHandler{}, RecorderOptions{Label: "test", Source: "udp", Clock: clock})
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	for _, p := range [][]byte{
		testutil.PosePayload(testutil.StandingPose()),
		[]byte(`{"nope": true}`),
		testutil.FacePayload(map[string]float64{"jawOpen": 0.4}),
	} {
		clock.Advance(20 * time.Millisecond)
		_, _ = rec.HandlePayload(p)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return rec.Session()
}

// ---- Schema ----

func TestNewDB_MigratesToLatest(t *testing.T) {
	db := newTestDB(t)

	latest, err := LatestMigrationVersion()
	if err != nil {
		t.Fatalf("LatestMigrationVersion() error = %v", err)
	}
	if latest != 2 {
		t.Errorf("latest migration = %d, want 2", latest)
	}
	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion() error = %v", err)
	}
	if version != latest || dirty {
		t.Errorf("version = %d dirty = %v, want %d clean", version, dirty, latest)
	}
}

func TestMigrateDownUp(t *testing.T) {
	db := newTestDB(t)

	if err := db.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if _, err := db.Exec(`SELECT COUNT(*) FROM frame_reports`); err == nil {
		t.Error("frame_reports still exists after MigrateDown")
	}
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if v, _, _ := db.MigrateVersion(); v != 2 {
		t.Errorf("version after MigrateUp = %d, want 2", v)
	}
}

func TestNewDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	db, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	s, err := db.StartSession("a", "udp", epoch)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	db.Close()

	db, err = NewDB(path)
	if err != nil {
		t.Fatalf("second NewDB() error = %v", err)
	}
	defer db.Close()
	if _, err := db.GetSession(s.ID); err != nil {
		t.Errorf("GetSession() after reopen error = %v", err)
	}
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}

func TestNewDB_InMemory(t *testing.T) {
	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB(:memory:) error = %v", err)
	}
	defer db.Close()
	if _, err := db.StartSession("mem", "test", epoch); err != nil {
		t.Errorf("StartSession() error = %v", err)
	}
}

// ---- Sessions ----

func TestSessionLifecycle(t *testing.T) {
	db := newTestDB(t)

	first, err := db.StartSession("first", "udp", epoch)
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	second, err := db.StartSession("second", "serial", epoch.Add(time.Minute))
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if first.ID == second.ID || len(first.ID) != 36 {
		t.Errorf("session ids %q and %q", first.ID, second.ID)
	}

	if err := db.EndSession(first.ID, epoch.Add(30*time.Second)); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	got, err := db.GetSession(first.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(epoch.Add(30*time.Second)) {
		t.Errorf("EndedAt = %v", got.EndedAt)
	}
	if !got.StartedAt.Equal(epoch) || got.Label != "first" || got.Source != "udp" {
		t.Errorf("GetSession() = %+v", got)
	}

	list, err := db.Sessions(0)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("Sessions() = %+v, want newest first", list)
	}
	if list, _ := db.Sessions(1); len(list) != 1 {
		t.Errorf("Sessions(1) returned %d sessions", len(list))
	}
}

func TestSessionNotFound(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.GetSession("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() error = %v, want ErrSessionNotFound", err)
	}
	if err := db.EndSession("missing", epoch); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("EndSession() error = %v, want ErrSessionNotFound", err)
	}
	if err := db.DeleteSession("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("DeleteSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	db := newTestDB(t)
	s := recordSession(t, db)

	if err := db.RecordFrame(s.ID, pipeline.FrameReport{Seq: 1, At: epoch}); err != nil {
		t.Fatalf("RecordFrame() error = %v", err)
	}
	if err := db.DeleteSession(s.ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM payloads`).Scan(&n); err != nil || n != 0 {
		t.Errorf("payloads left = %d (err %v), want 0", n, err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM frame_reports`).Scan(&n); err != nil || n != 0 {
		t.Errorf("frame reports left = %d (err %v), want 0", n, err)
	}
}

// ---- Recorder ----

func TestRecorder_RecordsPayloads(t *testing.T) {
	db := newTestDB(t)
	s := recordSession(t, db)

	payloads, err := db.Payloads(s.ID, "")
	if err != nil {
		t.Fatalf("Payloads() error = %v", err)
	}
	if len(payloads) != 3 {
		t.Fatalf("len(payloads) = %d, want 3", len(payloads))
	}
	wantKinds := []string{ingest.EventTypePose, ingest.EventTypeUnknown, ingest.EventTypeFace}
	for i, p := range payloads {
		if p.Seq != int64(i+1) || p.EventType != wantKinds[i] {
			t.Errorf("payload %d = seq %d kind %q", i, p.Seq, p.EventType)
		}
		if !p.ReceivedAt.Equal(epoch.Add(time.Duration(i+1) * 20 * time.Millisecond)) {
			t.Errorf("payload %d received at %v", i, p.ReceivedAt)
		}
	}
	if payloads[1].Accepted || payloads[1].Error == "" {
		t.Errorf("rejected payload recorded as %+v", payloads[1])
	}
	if !payloads[0].Accepted || len(payloads[0].Data) == 0 {
		t.Errorf("pose payload recorded as %+v", payloads[0])
	}

	faces, err := db.Payloads(s.ID, ingest.EventTypeFace)
	if err != nil || len(faces) != 1 {
		t.Errorf("Payloads(face) = %d payloads, err %v", len(faces), err)
	}

	got, err := db.GetSession(s.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Payloads != 3 || got.EndedAt == nil {
		t.Errorf("session = %+v", got)
	}
}

func TestRecorder_PassesThroughAfterClose(t *testing.T) {
	db := newTestDB(t)
	next := &decodeHandler{}
	rec, err := db.NewRecorder(next, RecorderOptions{})
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	kind, err := rec.HandlePayload(testutil.PosePayload(testutil.StandingPose()))
	if err != nil || kind != ingest.EventTypePose {
		t.Errorf("HandlePayload() = %q, %v", kind, err)
	}
	if len(next.dispatched()) != 1 {
		t.Error("payload not forwarded after Close")
	}
	if payloads, _ := db.Payloads(rec.Session().ID, ""); len(payloads) != 0 {
		t.Errorf("recorded %d payloads after Close", len(payloads))
	}
}

func TestRecorder_Frames(t *testing.T) {
	db := newTestDB(t)
	rec, err := db.NewRecorder(&decodeHandler{}, RecorderOptions{RecordFrames: true})
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	defer rec.Close()

	rec.ObserveFrame(pipeline.FrameReport{Seq: 1, At: epoch, Errors: []string{"joint missing"}})
	rec.ObserveFrame(pipeline.FrameReport{Seq: 2, At: epoch.Add(time.Second / 60)})

	frames, err := db.Frames(rec.Session().ID)
	if err != nil {
		t.Fatalf("Frames() error = %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("len(frames) = %d, want 2", len(frames))
	}
	if frames[0].Seq != 1 || frames[0].ErrorCount != 1 || !frames[0].At.Equal(epoch) {
		t.Errorf("frames[0] = %+v", frames[0])
	}
	var rep pipeline.FrameReport
	if err := json.Unmarshal(frames[1].Report, &rep); err != nil {
		t.Fatalf("stored report is not JSON: %v", err)
	}
	if rep.Seq != 2 {
		t.Errorf("stored report seq = %d, want 2", rep.Seq)
	}
}

func TestRecorder_FramesDisabled(t *testing.T) {
	db := newTestDB(t)
	rec, err := db.NewRecorder(&decodeHandler{}, RecorderOptions{})
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	defer rec.Close()

	rec.ObserveFrame(pipeline.FrameReport{Seq: 1, At: epoch})
	if frames, _ := db.Frames(rec.Session().ID); len(frames) != 0 {
		t.Errorf("recorded %d frames with RecordFrames off", len(frames))
	}
}

// ---- Replay ----

func TestReplay_AcceptedOnly(t *testing.T) {
	db := newTestDB(t)
	s := recordSession(t, db)

	h := &decodeHandler{}
	n, err := db.Replay(context.Background(), s.ID, h, ReplayOptions{})
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Replay() dispatched %d, want 2", n)
	}
	got := h.dispatched()
	if len(got) != 2 || got[0] != ingest.EventTypePose || got[1] != ingest.EventTypeFace {
		t.Errorf("dispatched kinds = %v", got)
	}
}

func TestReplay_IncludeRejected(t *testing.T) {
	db := newTestDB(t)
	s := recordSession(t, db)

	var calls int
	h := ingest.HandlerFunc(func(data []byte) (string, error) {
		calls++
		return (&decodeHandler{}).HandlePayload(data)
	})
	n, err := db.Replay(context.Background(), s.ID, h, ReplayOptions{IncludeRejected: true})
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if calls != 3 || n != 2 {
		t.Errorf("calls = %d dispatched = %d, want 3 and 2", calls, n)
	}
}

func TestReplay_Pacing(t *testing.T) {
	db := newTestDB(t)
	s := recordSession(t, db)

	start := time.Now()
	if _, err := db.Replay(context.Background(), s.ID, &decodeHandler{}, ReplayOptions{Speed: 1}); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	// Accepted payloads are 40ms apart in the recording.
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("real-time replay took %v, want at least 40ms", elapsed)
	}
}

func TestReplay_Cancelled(t *testing.T) {
	db := newTestDB(t)
	s := recordSession(t, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := db.Replay(ctx, s.ID, &decodeHandler{}, ReplayOptions{})
	if !errors.Is(err, context.Canceled) || n != 0 {
		t.Errorf("Replay() = %d, %v; want 0, context.Canceled", n, err)
	}
}

func TestReplay_UnknownSession(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.Replay(context.Background(), "missing", &decodeHandler{}, ReplayOptions{}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Replay() error = %v, want ErrSessionNotFound", err)
	}
}

func TestReplay_IntoRecorder(t *testing.T) {
	db := newTestDB(t)
	s := recordSession(t, db)

	rec, err := db.NewRecorder(&decodeHandler{}, RecorderOptions{Label: "re-record", Source: "replay"})
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	if _, err := db.Replay(context.Background(), s.ID, rec, ReplayOptions{}); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	rec.Close()

	payloads, err := db.Payloads(rec.Session().ID, "")
	if err != nil || len(payloads) != 2 {
		t.Errorf("re-recorded %d payloads, err %v; want 2", len(payloads), err)
	}
}

// ---- Admin routes ----

func TestAttachAdminRoutes(t *testing.T) {
	db := newTestDB(t)
	recordSession(t, db)

	mux := http.NewServeMux()
	if err := db.AttachAdminRoutes(mux); err != nil {
		t.Fatalf("AttachAdminRoutes() error = %v", err)
	}

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "127.0.0.1:40000"
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		return w
	}

	t.Run("sessions", func(t *testing.T) {
		w := get("/debug/sessions?limit=5")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var sessions []Session
		if err := json.NewDecoder(w.Body).Decode(&sessions); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(sessions) != 1 || sessions[0].Payloads != 3 {
			t.Errorf("sessions = %+v", sessions)
		}
	})

	t.Run("sessions bad limit", func(t *testing.T) {
		if w := get("/debug/sessions?limit=lots"); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("backup", func(t *testing.T) {
		w := get("/debug/backup")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
		}
		zr, err := gzip.NewReader(w.Body)
		if err != nil {
			t.Fatalf("backup is not gzip: %v", err)
		}
		head := make([]byte, 16)
		if _, err := io.ReadFull(zr, head); err != nil {
			t.Fatalf("read backup: %v", err)
		}
		if !strings.HasPrefix(string(head), "SQLite format 3") {
			t.Errorf("backup header = %q", head)
		}
	})

	t.Run("tailsql registered", func(t *testing.T) {
		if w := get("/debug/tailsql/"); w.Code == http.StatusNotFound {
			t.Error("/debug/tailsql/ should be registered, got 404")
		}
	})
}
