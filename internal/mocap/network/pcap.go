package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	"github.com/banshee-data/mocap.render/internal/monitoring"
)

// ReplayOptions controls a capture replay.
type ReplayOptions struct {
	// Port selects UDP datagrams by destination port. Zero accepts every
	// UDP payload.
	Port int
	// Speed scales the capture's inter-packet gaps. Zero or less replays as
	// fast as possible.
	Speed float64
	Stats *Stats
}

// ReplayPCAP reads a classic pcap file and hands every matching UDP payload
// to handler, in capture order.
func ReplayPCAP(ctx context.Context, path string, opts ReplayOptions, handler ingest.Handler) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open pcap file: %w", err)
	}
	defer f.Close()
	return ReplayPCAPReader(ctx, f, opts, handler)
}

// ReplayPCAPReader is ReplayPCAP over an open capture stream. It returns the
// number of payloads handed to handler.
func ReplayPCAPReader(ctx context.Context, r io.Reader, opts ReplayOptions, handler ingest.Handler) (int, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read pcap header: %w", err)
	}
	stats := opts.Stats
	if stats == nil {
		stats = NewStats()
	}

	var (
		count    int
		lastSeen time.Time
	)
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		data, ci, err := reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read packet %d: %w", count+1, err)
		}

		packet := gopacket.NewPacket(data, reader.LinkType(), gopacket.Lazy)
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || (opts.Port != 0 && int(udp.DstPort) != opts.Port) {
			continue
		}

		if opts.Speed > 0 && !lastSeen.IsZero() {
			gap := time.Duration(float64(ci.Timestamp.Sub(lastSeen)) / opts.Speed)
			if err := sleepCtx(ctx, gap); err != nil {
				return count, err
			}
		}
		lastSeen = ci.Timestamp

		payload := append([]byte(nil), udp.Payload...)
		kind, err := handler.HandlePayload(payload)
		stats.Add(kind, len(payload), err)
		if err != nil {
			monitoring.Logf("[PCAP] dropping %s payload at %v: %v", kind, ci.Timestamp, err)
		}
		count++
	}
	monitoring.Logf("[PCAP] replayed %d payloads", count)
	return count, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
