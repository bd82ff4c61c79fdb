package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrijs2005/baaskit/internal/apierror"
	"github.com/dmitrijs2005/baaskit/internal/common"
	"github.com/dmitrijs2005/baaskit/internal/config"
	"github.com/dmitrijs2005/baaskit/internal/controllers"
	"github.com/dmitrijs2005/baaskit/internal/logging"
)

const tracerName = "github.com/dmitrijs2005/baaskit/internal/rest"

// Controller is the request pipeline bound to one configuration and registry.
type Controller struct {
	cfg      *config.Config
	registry *controllers.Registry
	logger   logging.Logger
	observer Observer
	tracer   trace.Tracer
	now      func() time.Time
}

func NewController(cfg *config.Config, reg *controllers.Registry, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg,
		registry: reg,
		logger:   logging.Nop(),
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request sends data to path and returns the raw JSON response body.
//
// A missing master key is reported as common.ErrMasterKeyNotProvided before
// any I/O. Every later failure is returned as *apierror.Error.
func (c *Controller) Request(ctx context.Context, method, path string, data map[string]any, opts ...RequestOption) (json.RawMessage, error) {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	payload, err := c.buildPayload(method, data, &o)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "rest.Request", trace.WithAttributes(
		attribute.String("baas.method", method),
		attribute.String("baas.path", path),
	))
	defer span.End()

	url := JoinURL(c.cfg.ServerURL, path)
	start := c.now()

	body, status, err := c.dispatch(ctx, url, payload, &o)
	elapsed := c.now().Sub(start)
	if err != nil {
		apiErr := apierror.Normalize(err)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, apiErr.Message)
		span.SetAttributes(attribute.Int("baas.error_code", apiErr.Code))
		c.logger.Warn(ctx, "request failed",
			"method", method, "url", url, "code", apiErr.Code, "error", apiErr.Message)
		c.observe(method, apiErr.Code, elapsed)
		return nil, apiErr
	}

	span.SetAttributes(attribute.Int("baas.status", status))
	c.logger.Debug(ctx, "request completed", "method", method, "url", url, "status", status, "elapsed", elapsed)
	c.observe(method, 0, elapsed)
	return body, nil
}

// Ajax performs a raw exchange through the bound transport. Failures are
// normalized the same way Request normalizes them.
func (c *Controller) Ajax(ctx context.Context, method, url string, body []byte, headers http.Header) (*controllers.Response, error) {
	t, err := c.registry.Transport()
	if err != nil {
		return nil, apierror.Normalize(err)
	}
	if headers == nil {
		headers = http.Header{}
	}
	resp, err := t.Send(ctx, method, url, body, headers)
	if err != nil {
		return nil, apierror.Normalize(err)
	}
	return resp, nil
}

// buildPayload runs the synchronous part of the pipeline.
func (c *Controller) buildPayload(method string, data map[string]any, o *requestOptions) (*Payload, error) {
	p := newPayload(data)
	if method != http.MethodPost {
		p.Method = method
	}

	p.ApplicationID = c.cfg.ApplicationID
	p.JavaScriptKey = c.cfg.JavaScriptKey
	p.ClientVersion = c.cfg.ClientVersion()

	useMasterKey := c.cfg.UseMasterKey
	if o.useMasterKey != nil {
		useMasterKey = *o.useMasterKey
	}
	if useMasterKey {
		if c.cfg.MasterKey == "" {
			return nil, common.ErrMasterKeyNotProvided
		}
		p.MasterKey = c.cfg.MasterKey
		p.JavaScriptKey = ""
	}

	if c.cfg.ForceRevocableSession {
		p.RevocableSession = "1"
	}
	return p, nil
}

// dispatch resolves the installation id, then the session token, then sends.
func (c *Controller) dispatch(ctx context.Context, url string, p *Payload, o *requestOptions) (json.RawMessage, int, error) {
	iid, err := c.installationID(ctx, o)
	if err != nil {
		return nil, 0, err
	}
	p.InstallationID = iid

	token, err := c.sessionToken(ctx, o)
	if err != nil {
		return nil, 0, err
	}
	p.SessionToken = token

	body, err := p.Encode()
	if err != nil {
		return nil, 0, err
	}

	t, err := c.registry.Transport()
	if err != nil {
		return nil, 0, err
	}

	c.logger.Debug(ctx, "dispatching request", "url", url, "method", p.Method, "bytes", len(body))
	resp, err := t.Send(ctx, http.MethodPost, url, body, p.Headers())
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.Status, nil
}

func (c *Controller) installationID(ctx context.Context, o *requestOptions) (string, error) {
	if o.installationID != "" {
		return o.installationID, nil
	}
	ic, err := c.registry.Installation()
	if err != nil {
		return "", err
	}
	return ic.CurrentInstallationID(ctx)
}

func (c *Controller) sessionToken(ctx context.Context, o *requestOptions) (string, error) {
	if o.sessionToken != nil {
		return *o.sessionToken, nil
	}
	uc, err := c.registry.UserController()
	if errors.Is(err, controllers.ErrNotConfigured) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	u, err := uc.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", nil
	}
	return u.SessionToken(), nil
}

func (c *Controller) observe(method string, code int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(method, code, elapsed)
	}
}
