// Package grpcx carries REST exchanges over a gRPC gateway.
package grpcx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/baaskit/internal/controllers"
)

// The gateway exposes one unary method taking and returning a Struct:
// request {method, url, body}, reply {status, body}.
const (
	serviceName = "baas.v1.Gateway"
	callMethod  = "/" + serviceName + "/Call"
)

type Transport struct {
	endpoint string
	timeout  time.Duration
	conn     *grpc.ClientConn
}

// New dials endpoint lazily. Extra dial options are appended after the
// defaults (insecure credentials and the timeout interceptor).
func New(endpoint string, timeout time.Duration, opts ...grpc.DialOption) (*Transport, error) {
	t := &Transport{endpoint: endpoint, timeout: timeout}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(t.timeoutInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, dialOpts...)
	if err != nil {
		return nil, err
	}
	t.conn = conn
	return t, nil
}

func (t *Transport) Close() error {
	return t.conn.Close()
}

func withHeaders(ctx context.Context, headers http.Header) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	for k, vs := range headers {
		key := strings.ToLower(k)
		md.Delete(key)
		md.Set(key, vs...)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func (t *Transport) timeoutInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if t.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t.timeout)
			defer cancel()
		}
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (t *Transport) Send(ctx context.Context, method, url string, body []byte, headers http.Header) (*controllers.Response, error) {
	req, err := encodeRequest(method, url, body)
	if err != nil {
		return nil, &controllers.TransportError{Err: err}
	}

	reply := new(structpb.Struct)
	if err := t.conn.Invoke(withHeaders(ctx, headers), callMethod, req, reply); err != nil {
		return nil, mapError(err)
	}
	return decodeResponse(reply)
}

func encodeRequest(method, url string, body []byte) (*structpb.Struct, error) {
	fields := map[string]any{"method": method, "url": url}
	if len(body) > 0 {
		var decoded any
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("request body: %w", err)
		}
		fields["body"] = decoded
	}
	return structpb.NewStruct(fields)
}

func decodeResponse(reply *structpb.Struct) (*controllers.Response, error) {
	code := http.StatusOK
	if v, ok := reply.GetFields()["status"]; ok {
		code = int(v.GetNumberValue())
	}
	body := json.RawMessage(`{}`)
	if v, ok := reply.GetFields()["body"]; ok {
		raw, err := json.Marshal(v.AsInterface())
		if err != nil {
			return nil, &controllers.TransportError{Status: code, Err: err}
		}
		body = raw
	}
	return &controllers.Response{Status: code, Body: body}, nil
}

// mapError turns an RPC failure into a transport error. Connectivity
// failures carry no response text; any other status carries its message,
// which the gateway sets to the server's JSON error body.
func mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return &controllers.TransportError{Err: err}
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return &controllers.TransportError{Err: err}
	default:
		return &controllers.TransportError{
			Status:       httpStatus(st.Code()),
			ResponseText: st.Message(),
			Err:          err,
		}
	}
}

func httpStatus(c codes.Code) int {
	switch c {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
