// Command session-push replays a recorded session into a running server
// over HTTP, posting each payload to the matching /set_* endpoint with the
// recorded pacing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/mocap.render/internal/api"
	"github.com/banshee-data/mocap.render/internal/db"
	"github.com/banshee-data/mocap.render/internal/httputil"
	"github.com/banshee-data/mocap.render/internal/security"
)

var (
	dbPath    = flag.String("db", "sessions.db", "Session database")
	sessionID = flag.String("session", "", "Session to replay (required)")
	target    = flag.String("target", "http://localhost"+api.DefaultListen, "Base URL of the server")
	speed     = flag.Float64("speed", 1.0, "Replay speed multiplier (0 for as fast as possible)")
	rejected  = flag.Bool("include-rejected", false, "Also send payloads that were rejected when recorded")
	timeout   = flag.Duration("timeout", 5*time.Second, "Per-request timeout")
)

// push pairs with the server at client and replays the session into it.
func push(ctx context.Context, database *db.DB, client *api.Client, id string, opts db.ReplayOptions) (int, error) {
	v, err := client.Pair(ctx)
	if err != nil {
		return 0, fmt.Errorf("pairing failed: %w", err)
	}
	if v != api.PairVersion {
		log.Printf("[SessionPush] server reports version %d, expected %d", v, api.PairVersion)
	}
	return database.Replay(ctx, id, client, opts)
}

func main() {
	flag.Parse()
	if *sessionID == "" {
		log.Fatal("--session is required")
	}
	if err := security.ValidateInputPath(*dbPath); err != nil {
		log.Fatalf("invalid database path: %v", err)
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(*target, httputil.NewStandardClient(&http.Client{Timeout: *timeout}))
	n, err := push(ctx, database, client, *sessionID, db.ReplayOptions{Speed: *speed, IncludeRejected: *rejected})
	if err != nil {
		log.Printf("push stopped after %d payloads: %v", n, err)
		os.Exit(1)
	}
	log.Printf("[SessionPush] sent %d payloads to %s", n, *target)
}
