package pipeline

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	"github.com/banshee-data/mocap.render/internal/mocap/skeleton"
	"github.com/banshee-data/mocap.render/internal/testutil"
	"github.com/banshee-data/mocap.render/internal/timeutil"
)

func TestSetLogWriters_Enable(t *testing.T) {
	var buf bytes.Buffer
	SetLogWriters(&buf, nil, nil)
	defer SetLogWriters(nil, nil, nil)

	s := current()
	if s.ops == nil {
		t.Fatal("ops logger should be non-nil after SetLogWriters with a writer")
	}
	if s.diag != nil || s.trace != nil {
		t.Fatal("diag and trace loggers should stay nil")
	}
}

func TestSetLogWriters_Disable(t *testing.T) {
	var buf bytes.Buffer
	SetLogWriters(&buf, &buf, &buf)
	SetLogWriters(nil, nil, nil)

	if s := current(); s.ops != nil || s.diag != nil || s.trace != nil {
		t.Fatal("loggers should be nil after SetLogWriters(nil, nil, nil)")
	}
}

func TestOpsf_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogWriters(&buf, nil, nil)
	defer SetLogWriters(nil, nil, nil)

	opsf("dropped %s %d", "pose", 3)

	output := buf.String()
	if !strings.Contains(output, "dropped pose 3") {
		t.Errorf("expected output to contain 'dropped pose 3', got %q", output)
	}
	if !strings.Contains(output, "[pipeline]") {
		t.Errorf("expected output to contain '[pipeline]' prefix, got %q", output)
	}
}

func TestDiagfTracef_Streams(t *testing.T) {
	var diag, trace bytes.Buffer
	SetLogWriters(nil, &diag, &trace)
	defer SetLogWriters(nil, nil, nil)

	diagf("track %s created", "pose")
	tracef("tick %d", 7)

	if !strings.Contains(diag.String(), "track pose created") {
		t.Errorf("diag stream missing message, got %q", diag.String())
	}
	if strings.Contains(diag.String(), "tick 7") {
		t.Errorf("trace message leaked into diag stream")
	}
	if !strings.Contains(trace.String(), "tick 7") {
		t.Errorf("trace stream missing message, got %q", trace.String())
	}
}

func TestLogf_NilLoggers(t *testing.T) {
	SetLogWriters(nil, nil, nil)

	// Should not panic.
	opsf("no-op %d", 1)
	diagf("no-op %d", 1)
	tracef("no-op %d", 1)
}

func TestSetLogWriters_WhileDispatching(t *testing.T) {
	defer SetLogWriters(nil, nil, nil)

	d, err := NewDriver(skeleton.DefaultHumanoid(), nil, nil, timeutil.NewMockClock(time.Unix(0, 0)))
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}
	payload := testutil.PosePayload(testutil.StandingPose())

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				SetLogWriters(io.Discard, io.Discard, io.Discard)
			} else {
				SetLogWriters(nil, nil, nil)
			}
		}
	}()
	for i := 0; i < 200; i++ {
		_, _ = ingest.Dispatch(payload, d)
		d.Tick()
	}
	close(stop)
	wg.Wait()
}
