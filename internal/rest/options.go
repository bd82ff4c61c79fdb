package rest

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrijs2005/baaskit/internal/logging"
)

// Observer is notified once per finished request. code is 0 on success and
// the normalized error code otherwise.
type Observer interface {
	ObserveRequest(method string, code int, elapsed time.Duration)
}

type Option func(*Controller)

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Controller) { c.tracer = tp.Tracer(tracerName) }
}

// RequestOption adjusts a single Request call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	useMasterKey   *bool
	sessionToken   *string
	installationID string
}

// WithMasterKey overrides the configured UseMasterKey default.
func WithMasterKey(use bool) RequestOption {
	return func(o *requestOptions) { o.useMasterKey = &use }
}

// WithSessionToken sends token instead of asking the user controller. An
// empty token sends no session at all.
func WithSessionToken(token string) RequestOption {
	return func(o *requestOptions) { o.sessionToken = &token }
}

// WithInstallationID sends id instead of asking the installation controller.
// An empty id is ignored.
func WithInstallationID(id string) RequestOption {
	return func(o *requestOptions) { o.installationID = id }
}
