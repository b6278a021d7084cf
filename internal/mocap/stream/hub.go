package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/mocap.render/internal/mocap/pipeline"
	"github.com/banshee-data/mocap.render/internal/monitoring"
)

// ErrTooManySubscribers is returned by Subscribe when the hub is full.
var ErrTooManySubscribers = errors.New("too many subscribers")

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("hub closed")

// subscriberBuffer is the number of reports queued per subscriber before
// reports to it are dropped.
const subscriberBuffer = 10

// Hub fans frame reports out to subscribers. It is a pipeline.FrameObserver;
// ObserveFrame never blocks the tick loop, so a slow subscriber loses
// reports instead.
type Hub struct {
	maxSubs int

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]chan *structpb.Struct
	closed bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewHub returns a hub accepting up to maxSubs subscribers. A non-positive
// maxSubs means no limit.
func NewHub(maxSubs int) *Hub {
	return &Hub{maxSubs: maxSubs, subs: make(map[uint64]chan *structpb.Struct)}
}

// Subscribe registers a subscriber. The returned cancel func must be called
// to release it; the channel is closed when it is.
func (h *Hub) Subscribe() (<-chan *structpb.Struct, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, nil, ErrHubClosed
	}
	if h.maxSubs > 0 && len(h.subs) >= h.maxSubs {
		return nil, nil, ErrTooManySubscribers
	}
	h.nextID++
	id := h.nextID
	ch := make(chan *structpb.Struct, subscriberBuffer)
	h.subs[id] = ch
	monitoring.Logf("[Stream] subscriber %d connected (total: %d)", id, len(h.subs))

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; !ok {
			return
		}
		delete(h.subs, id)
		close(ch)
		monitoring.Logf("[Stream] subscriber %d disconnected (remaining: %d)", id, len(h.subs))
	}
	return ch, cancel, nil
}

// Close ends every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// ObserveFrame encodes the report once and offers it to every subscriber.
func (h *Hub) ObserveFrame(report pipeline.FrameReport) {
	if h.Subscribers() == 0 {
		return
	}
	msg, err := FrameToStruct(report)
	if err != nil {
		monitoring.Logf("[Stream] dropping frame %d: %v", report.Seq, err)
		return
	}
	h.published.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

// HubStats are the hub counters.
type HubStats struct {
	Subscribers int    `json:"subscribers"`
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
}

// Stats returns the hub counters.
func (h *Hub) Stats() HubStats {
	return HubStats{
		Subscribers: h.Subscribers(),
		Published:   h.published.Load(),
		Dropped:     h.dropped.Load(),
	}
}

// FrameToStruct converts a report to the Struct sent on the wire. The
// document has the report's JSON shape.
func FrameToStruct(report pipeline.FrameReport) (*structpb.Struct, error) {
	return toStruct(report)
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return structpb.NewStruct(m)
}
