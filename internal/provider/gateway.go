package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	GatewayServiceName = "voxtask.speech.v1.SpeechGateway"

	gatewayTranscribeMethod = "/" + GatewayServiceName + "/Transcribe"
	gatewaySplitMethod      = "/" + GatewayServiceName + "/SplitTasks"
)

// Gateway talks to a self-hosted speech gateway over gRPC. Payloads travel as
// google.protobuf.Struct so no generated stubs are required on either side.
//
// Transcribe request:  {"audio_base64": string, "mime_type": string, "name": string}
// Transcribe response: {"text": string}
// SplitTasks request:  {"text": string}
// SplitTasks response: {"tasks": [string, ...]}
type Gateway struct {
	endpoint    string
	conn        *grpc.ClientConn
	dialTimeout time.Duration
}

// DialGateway creates a lazily-connecting client for endpoint.
func DialGateway(endpoint string, dialTimeout time.Duration) (*Gateway, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("gateway endpoint is empty")
	}
	if dialTimeout <= 0 {
		dialTimeout = 3 * time.Second
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial gateway grpc %q: %w", endpoint, err)
	}
	return &Gateway{endpoint: endpoint, conn: conn, dialTimeout: dialTimeout}, nil
}

func (g *Gateway) Name() string { return "Gateway" }

// Endpoint returns the dialed gateway address.
func (g *Gateway) Endpoint() string { return g.endpoint }

func (g *Gateway) Close() error {
	return g.conn.Close()
}

func (g *Gateway) TranscribeAudio(ctx context.Context, h Handle) (string, error) {
	audio, err := readAudio(h)
	if err != nil {
		return "", transcriptionError(g.Name(), err)
	}

	req, err := structpb.NewStruct(map[string]any{
		"audio_base64": base64.StdEncoding.EncodeToString(audio.Data),
		"mime_type":    audio.MimeType,
		"name":         audio.Name,
	})
	if err != nil {
		return "", transcriptionError(g.Name(), err)
	}

	resp, err := g.invoke(ctx, gatewayTranscribeMethod, req)
	if err != nil {
		return "", transcriptionError(g.Name(), err)
	}
	if text, ok := resp.GetFields()["text"].GetKind().(*structpb.Value_StringValue); ok {
		return text.StringValue, nil
	}
	if segments := resp.GetFields()["segments"].GetListValue(); segments != nil {
		return joinSegments(segments), nil
	}
	return "", transcriptionError(g.Name(), errors.New("response carried no text"))
}

// joinSegments assembles final recognizer segments into one whitespace-normalized transcript.
// Non-string entries are skipped.
func joinSegments(list *structpb.ListValue) string {
	parts := make([]string, 0, len(list.GetValues()))
	for _, value := range list.GetValues() {
		if s, ok := value.GetKind().(*structpb.Value_StringValue); ok {
			parts = append(parts, s.StringValue)
		}
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// ParseTasks degrades to the whole text when the response is not a list of strings.
func (g *Gateway) ParseTasks(ctx context.Context, text string) ([]string, error) {
	req, err := structpb.NewStruct(map[string]any{"text": text})
	if err != nil {
		return nil, fmt.Errorf("gateway split: %w", err)
	}

	resp, err := g.invoke(ctx, gatewaySplitMethod, req)
	if err != nil {
		return nil, fmt.Errorf("gateway split: %w", err)
	}

	list := resp.GetFields()["tasks"].GetListValue()
	if list == nil {
		return singleTask(text), nil
	}
	tasks := make([]string, 0, len(list.GetValues()))
	for _, value := range list.GetValues() {
		s, ok := value.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return singleTask(text), nil
		}
		tasks = append(tasks, s.StringValue)
	}
	return tasks, nil
}

// Ready reports whether the gateway answers the standard health service as SERVING.
func (g *Gateway) Ready(ctx context.Context) error {
	if err := g.awaitConnection(ctx); err != nil {
		return err
	}
	resp, err := healthpb.NewHealthClient(g.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: GatewayServiceName})
	if err != nil {
		return fmt.Errorf("gateway health check: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("gateway health status %s", resp.GetStatus())
	}
	return nil
}

func (g *Gateway) invoke(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	if err := g.awaitConnection(ctx); err != nil {
		return nil, err
	}
	resp := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (g *Gateway) awaitConnection(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, g.dialTimeout)
	defer cancel()
	g.conn.Connect()
	if err := waitForReady(readyCtx, g.conn); err != nil {
		return fmt.Errorf("wait for gateway grpc readiness: %w", err)
	}
	return nil
}

// waitForReady blocks until the connection enters Ready or fails.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}

// GatewayServer is the server side of the speech gateway contract.
type GatewayServer interface {
	Transcribe(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SplitTasks(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterGatewayServer exposes srv on registrar under the gateway service name.
func RegisterGatewayServer(registrar grpc.ServiceRegistrar, srv GatewayServer) {
	registrar.RegisterService(&gatewayServiceDesc, srv)
}

var gatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: GatewayServiceName,
	HandlerType: (*GatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Transcribe", Handler: gatewayHandler(GatewayServer.Transcribe, gatewayTranscribeMethod)},
		{MethodName: "SplitTasks", Handler: gatewayHandler(GatewayServer.SplitTasks, gatewaySplitMethod)},
	},
	Metadata: "voxtask/speech/v1/gateway.proto",
}

func gatewayHandler(
	call func(GatewayServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
	fullMethod string,
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := &structpb.Struct{}
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GatewayServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(GatewayServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
