package stream

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the Retarget service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a client on cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Push sends one payload and returns the event type the server saw.
func (c *Client) Push(ctx context.Context, payload []byte, opts ...grpc.CallOption) (string, error) {
	in := new(structpb.Struct)
	if err := protojson.Unmarshal(payload, in); err != nil {
		return "", fmt.Errorf("payload is not a JSON object: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, pushMethod, in, out, opts...); err != nil {
		return "", err
	}
	return out.GetFields()["event_type"].GetStringValue(), nil
}

// Latest returns the most recent frame report.
func (c *Client) Latest(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, latestMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Subscribe opens a stream of frame reports.
func (c *Client) Subscribe(ctx context.Context, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	cs, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], subscribeMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: cs}
	if err := x.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := x.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
