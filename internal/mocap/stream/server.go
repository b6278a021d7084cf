package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	"github.com/banshee-data/mocap.render/internal/mocap/pipeline"
	"github.com/banshee-data/mocap.render/internal/monitoring"
)

// FrameSource is the part of the pipeline driver the server reads.
type FrameSource interface {
	AddFrameObserver(pipeline.FrameObserver)
	Latest() pipeline.FrameReport
}

// Ensure Server implements the service.
var _ RetargetServer = (*Server)(nil)

// Server implements the Retarget service.
type Server struct {
	handler ingest.Handler
	source  FrameSource
	hub     *Hub
}

// NewServer returns a server dispatching pushed payloads to handler and
// streaming the reports of source. The server's hub is registered with
// source.
func NewServer(handler ingest.Handler, source FrameSource, maxSubs int) *Server {
	s := &Server{handler: handler, source: source, hub: NewHub(maxSubs)}
	source.AddFrameObserver(s.hub)
	return s
}

// Hub returns the server's subscriber hub.
func (s *Server) Hub() *Hub { return s.hub }

// Push decodes the Struct back to payload JSON and dispatches it.
func (s *Server) Push(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	data, err := protojson.Marshal(in)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "encode payload: %v", err)
	}
	kind, err := s.handler.HandlePayload(data)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s payload rejected: %v", kind, err)
	}
	return structpb.NewStruct(map[string]interface{}{"event_type": kind})
}

// Latest returns the report of the most recent tick.
func (s *Server) Latest(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	msg, err := FrameToStruct(s.source.Latest())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode frame: %v", err)
	}
	return msg, nil
}

// Subscribe streams frame reports until the client goes away.
func (s *Server) Subscribe(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	frames, cancel, err := s.hub.Subscribe()
	switch {
	case errors.Is(err, ErrHubClosed):
		return status.Error(codes.Unavailable, err.Error())
	case err != nil:
		return status.Error(codes.ResourceExhausted, err.Error())
	}
	defer cancel()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-frames:
			if !ok {
				return nil
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

// Config configures a Publisher.
type Config struct {
	// ListenAddr is the TCP address to serve on, e.g. "localhost:50051".
	ListenAddr string
	// MaxSubscribers bounds concurrent Subscribe streams.
	MaxSubscribers int
}

// DefaultConfig returns the default publisher configuration.
func DefaultConfig() Config {
	return Config{ListenAddr: "localhost:50051", MaxSubscribers: 5}
}

// Publisher owns the gRPC server lifecycle.
type Publisher struct {
	config Config
	server *grpc.Server
	svc    *Server

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewPublisher returns a publisher serving a new Server.
func NewPublisher(cfg Config, handler ingest.Handler, source FrameSource) *Publisher {
	return &Publisher{config: cfg, svc: NewServer(handler, source, cfg.MaxSubscribers)}
}

// Service returns the served Retarget implementation.
func (p *Publisher) Service() *Server { return p.svc }

// Start listens on the configured address and serves in the background.
func (p *Publisher) Start() error {
	lis, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return p.Serve(lis)
}

// Serve serves on lis in the background.
func (p *Publisher) Serve(lis net.Listener) error {
	if !p.running.CompareAndSwap(false, true) {
		return errors.New("publisher already running")
	}
	p.server = grpc.NewServer()
	RegisterRetargetServer(p.server, p.svc)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		monitoring.Logf("[Stream] gRPC server listening on %s", lis.Addr())
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			monitoring.Logf("[Stream] gRPC server error: %v", err)
		}
	}()
	return nil
}

// Stop ends open subscriptions, drains unary calls and stops the server.
func (p *Publisher) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	p.svc.hub.Close()
	p.server.GracefulStop()
	p.wg.Wait()
	monitoring.Logf("[Stream] gRPC server stopped")
}
