// Command filter-plot replays the pose payloads of a recorded session
// through a fresh velocity filter and plots raw against filtered motion of
// one landmark, for tuning the noise parameters offline.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/mocap.render/internal/config"
	"github.com/banshee-data/mocap.render/internal/db"
	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	lm "github.com/banshee-data/mocap.render/internal/mocap/landmark"
	"github.com/banshee-data/mocap.render/internal/mocap/pipeline"
	"github.com/banshee-data/mocap.render/internal/monitor"
	"github.com/banshee-data/mocap.render/internal/security"
	"github.com/banshee-data/mocap.render/internal/timeutil"
)

var (
	dbPath     = flag.String("db", "sessions.db", "Session database")
	sessionID  = flag.String("session", "", "Session to plot (most recent when empty)")
	landmark   = flag.String("landmark", "right_wrist", "Pose landmark to plot, e.g. nose or left_wrist")
	configPath = flag.String("config", "", "Tuning config JSON; its noise values drive the filter")
	outPath    = flag.String("out", "", "Output PNG (defaults to filter-<session>-<landmark>.png)")
)

// replayPose feeds every accepted pose payload through a fresh pose track,
// stamping each with its recorded arrival time, and returns the samples of
// landmark.
func replayPose(payloads []db.Payload, landmark lm.PoseIndex, p config.Params) ([]monitor.Sample, error) {
	if len(payloads) == 0 {
		return nil, errors.New("session has no pose payloads")
	}
	clock := timeutil.NewMockClock(payloads[0].ReceivedAt)
	reg := pipeline.NewRegistry(clock)
	trace := monitor.NewTrace(len(payloads), landmark)
	noises := p.Noises(p.MeasurementNoisePose)

	skipped := 0
	for _, pl := range payloads {
		if !pl.Accepted {
			skipped++
			continue
		}
		env, err := ingest.Decode(pl.Data)
		if err != nil || env.Pose == nil {
			skipped++
			continue
		}
		frame, err := env.Pose.Frame()
		if err != nil {
			skipped++
			continue
		}
		clock.Set(pl.ReceivedAt)
		filtered, _, err := reg.ObservePose(frame, noises)
		if err != nil {
			skipped++
			continue
		}
		trace.ObservePose(pl.ReceivedAt, frame, filtered)
	}
	if skipped > 0 {
		log.Printf("[FilterPlot] skipped %d of %d payloads", skipped, len(payloads))
	}
	samples, _ := trace.Samples(landmark)
	if len(samples) == 0 {
		return nil, errors.New("no usable pose payloads in session")
	}
	return samples, nil
}

func latestSession(database *db.DB) (string, error) {
	sessions, err := database.Sessions(1)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "", errors.New("database has no sessions")
	}
	return sessions[0].ID, nil
}

func run() error {
	idx, ok := lm.ParsePoseIndex(*landmark)
	if !ok {
		return fmt.Errorf("unknown pose landmark %q", *landmark)
	}
	if err := security.ValidateInputPath(*dbPath); err != nil {
		return fmt.Errorf("invalid database path: %w", err)
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		if err := security.ValidateInputPath(*configPath); err != nil {
			return fmt.Errorf("invalid config path: %w", err)
		}
		cfg, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			return err
		}
		tuning = cfg
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	id := *sessionID
	if id == "" {
		if id, err = latestSession(database); err != nil {
			return err
		}
	}
	payloads, err := database.Payloads(id, ingest.EventTypePose)
	if err != nil {
		return err
	}
	samples, err := replayPose(payloads, idx, tuning.Params())
	if err != nil {
		return fmt.Errorf("session %s: %w", id, err)
	}

	out := *outPath
	if out == "" {
		out = fmt.Sprintf("filter-%s-%s.png", security.SanitizeFilename(id), idx)
	}
	if err := security.ValidateExportPath(out); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	f, err := os.Create(filepath.Clean(out))
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	title := fmt.Sprintf("%s, session %s, R=%.0f", idx, id, tuning.Params().MeasurementNoisePose)
	if err := monitor.WritePNG(f, title, samples); err != nil {
		f.Close()
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("[FilterPlot] wrote %d samples to %s", len(samples), out)
	return nil
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
