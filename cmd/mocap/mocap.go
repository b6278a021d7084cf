package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/mocap.render/internal/api"
	"github.com/banshee-data/mocap.render/internal/config"
	"github.com/banshee-data/mocap.render/internal/db"
	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	"github.com/banshee-data/mocap.render/internal/mocap/network"
	"github.com/banshee-data/mocap.render/internal/mocap/pipeline"
	"github.com/banshee-data/mocap.render/internal/mocap/serialin"
	"github.com/banshee-data/mocap.render/internal/mocap/skeleton"
	"github.com/banshee-data/mocap.render/internal/mocap/stream"
	"github.com/banshee-data/mocap.render/internal/monitor"
	"github.com/banshee-data/mocap.render/internal/monitoring"
	"github.com/banshee-data/mocap.render/internal/security"
	"github.com/banshee-data/mocap.render/internal/timeutil"
	"github.com/banshee-data/mocap.render/internal/version"
)

var (
	listen     = flag.String("listen", api.DefaultListen, "HTTP listen address")
	configPath = flag.String("config", "", "Tuning config JSON (built-in defaults when empty)")
	rigPath    = flag.String("rig", "", "Rig description JSON (bundled humanoid when empty)")
	tickHz     = flag.Float64("tick-hz", 60, "Frame rate of the solve and apply loop")
	debugLogs  = flag.Bool("debug", false, "Enable the pipeline diag and trace logs")
	showVer    = flag.Bool("version", false, "Print the version and exit")

	// Transports
	udpAddr    = flag.String("udp", "", "UDP listen address for landmarker payloads (disabled when empty)")
	udpRcvBuf  = flag.Int("udp-rcvbuf", 4<<20, "UDP socket receive buffer in bytes")
	serialPort = flag.String("serial", "", "Serial port streaming newline-delimited payloads (disabled when empty)")
	serialBaud = flag.Int("serial-baud", serialin.DefaultBaudRate, "Serial baud rate")
	grpcAddr   = flag.String("grpc", "", "gRPC listen address for Push/Latest/Subscribe (disabled when empty)")
	grpcSubs   = flag.Int("grpc-max-subscribers", stream.DefaultConfig().MaxSubscribers, "Maximum concurrent gRPC Subscribe streams")

	// Sessions
	dbPath        = flag.String("db", "", "Session database path (recording, replay and admin routes need it)")
	record        = flag.Bool("record", false, "Record every incoming payload into --db")
	recordFrames  = flag.Bool("record-frames", false, "Also record every tick report (requires --record)")
	sessionLabel  = flag.String("session-label", "", "Label for the recorded session")
	replaySession = flag.String("replay-session", "", "Replay a recorded session from --db into the pipeline")
	replayPCAP    = flag.String("replay-pcap", "", "Replay the UDP payloads of a pcap capture into the pipeline")
	replayPort    = flag.Int("replay-port", 0, "Only replay capture datagrams sent to this UDP port (0 for all)")
	replaySpeed   = flag.Float64("replay-speed", 1.0, "Replay speed multiplier (0 for as fast as possible)")

	traceCapacity = flag.Int("trace-capacity", monitor.DefaultCapacity, "Samples kept per landmark for /debug/filter")
)

// checkFlags rejects inconsistent flag combinations before anything opens.
func checkFlags() error {
	if *listen == "" {
		return errors.New("listen address is required")
	}
	if *tickHz <= 0 || *tickHz > 1000 {
		return fmt.Errorf("tick-hz must be in (0, 1000], got %v", *tickHz)
	}
	if *dbPath == "" && (*record || *replaySession != "") {
		return errors.New("--record and --replay-session require --db")
	}
	if *recordFrames && !*record {
		return errors.New("--record-frames requires --record")
	}
	if *replaySession != "" && *replayPCAP != "" {
		return errors.New("--replay-session and --replay-pcap are mutually exclusive")
	}
	for _, p := range []string{*configPath, *rigPath, *replayPCAP} {
		if p == "" {
			continue
		}
		if err := security.ValidateInputPath(p); err != nil {
			return fmt.Errorf("invalid path %q: %w", p, err)
		}
	}
	return nil
}

func loadScene() (*skeleton.Graph, error) {
	if *rigPath == "" {
		return skeleton.DefaultHumanoid(), nil
	}
	return skeleton.LoadRig(*rigPath)
}

func loadTuning() (*config.TuningConfig, error) {
	if *configPath == "" {
		return nil, nil
	}
	return config.LoadTuningConfig(*configPath)
}

// sourceLabel names the inputs feeding the pipeline, for session records.
func sourceLabel() string {
	var parts []string
	parts = append(parts, "http")
	if *udpAddr != "" {
		parts = append(parts, "udp")
	}
	if *serialPort != "" {
		parts = append(parts, "serial")
	}
	if *grpcAddr != "" {
		parts = append(parts, "grpc")
	}
	if *replayPCAP != "" {
		parts = append(parts, "pcap")
	}
	if *replaySession != "" {
		parts = append(parts, "session")
	}
	return strings.Join(parts, "+")
}

// Main
func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}
	if err := checkFlags(); err != nil {
		log.Fatal(err)
	}

	if *debugLogs {
		pipeline.SetLogWriters(os.Stderr, os.Stderr, os.Stderr)
	} else {
		pipeline.SetLogWriters(os.Stderr, nil, nil)
	}
	logf := monitoring.Component("Main")
	logf("%s", version.String())

	scene, err := loadScene()
	if err != nil {
		log.Fatalf("failed to load rig: %v", err)
	}
	tuning, err := loadTuning()
	if err != nil {
		log.Fatalf("failed to load tuning config: %v", err)
	}
	store := config.NewStore(tuning)
	clock := timeutil.RealClock{}

	driver, err := pipeline.NewDriver(scene, nil, store, clock)
	if err != nil {
		log.Fatalf("failed to create driver: %v", err)
	}

	trace := monitor.NewTrace(*traceCapacity)
	driver.AddPoseObserver(trace)

	var handler ingest.Handler = ingest.SinkHandler(driver)

	var database *db.DB
	if *dbPath != "" {
		database, err = db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open session database: %v", err)
		}
		defer database.Close()
	}

	var recorder *db.Recorder
	if *record {
		recorder, err = database.NewRecorder(handler, db.RecorderOptions{
			Label:        *sessionLabel,
			Source:       sourceLabel(),
			RecordFrames: *recordFrames,
			Clock:        clock,
		})
		if err != nil {
			log.Fatalf("failed to start recording: %v", err)
		}
		defer recorder.Close()
		handler = recorder
		driver.AddFrameObserver(recorder)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// frame loop: solve and apply at the render rate
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := clock.NewTicker(time.Duration(float64(time.Second) / *tickHz))
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				driver.Tick()
			case <-ctx.Done():
				logf("frame loop terminated")
				return
			}
		}
	}()

	stats := network.NewStats()

	if *udpAddr != "" {
		listener := network.NewUDPListener(network.UDPListenerConfig{
			Address: *udpAddr,
			RcvBuf:  *udpRcvBuf,
			Handler: handler,
			Stats:   stats,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("UDP listener error: %v", err)
			}
		}()
	}

	if *serialPort != "" {
		reader, err := serialin.Open(*serialPort, serialin.PortOptions{BaudRate: *serialBaud}, handler, stats)
		if err != nil {
			log.Fatalf("failed to open serial port: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer reader.Close()
			if err := reader.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("serial reader error: %v", err)
			}
		}()
	}

	if *grpcAddr != "" {
		publisher := stream.NewPublisher(stream.Config{ListenAddr: *grpcAddr, MaxSubscribers: *grpcSubs}, handler, driver)
		if err := publisher.Start(); err != nil {
			log.Fatalf("failed to start gRPC publisher: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			publisher.Stop()
		}()
	}

	if *replayPCAP != "" || *replaySession != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var n int
			var err error
			if *replayPCAP != "" {
				n, err = network.ReplayPCAP(ctx, *replayPCAP, network.ReplayOptions{Port: *replayPort, Speed: *replaySpeed, Stats: stats}, handler)
			} else {
				n, err = database.Replay(ctx, *replaySession, handler, db.ReplayOptions{Speed: *replaySpeed})
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("replay error after %d payloads: %v", n, err)
				return
			}
			logf("replay finished: %d payloads", n)
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(driver, handler).ServeMux()
		trace.AttachRoutes(mux)
		if database != nil {
			if err := database.AttachAdminRoutes(mux); err != nil {
				log.Printf("failed to attach admin routes: %v", err)
			}
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			logf("HTTP server listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	if s := stats.GetAndReset(); s.Packets > 0 {
		logf("final input stats: %+v", s)
	}
	log.Printf("Graceful shutdown complete")
}
