// Package sdk assembles a ready-to-use client: it binds every capability
// slot from explicit options or, failing that, from the adapters the
// configuration names.
package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrijs2005/baaskit/internal/config"
	"github.com/dmitrijs2005/baaskit/internal/controllers"
	"github.com/dmitrijs2005/baaskit/internal/cryptox"
	"github.com/dmitrijs2005/baaskit/internal/files"
	"github.com/dmitrijs2005/baaskit/internal/installation"
	"github.com/dmitrijs2005/baaskit/internal/logging"
	"github.com/dmitrijs2005/baaskit/internal/rest"
	"github.com/dmitrijs2005/baaskit/internal/users"
)

type options struct {
	transport      controllers.Transport
	storage        controllers.StorageController
	fileController controllers.FileController
	installation   controllers.InstallationController
	userController controllers.UserController
	crypto         controllers.CryptoController
	chooser        files.Chooser
	logger         logging.Logger
	observer       rest.Observer
	tracerProvider trace.TracerProvider
}

type Option func(*options)

func WithTransport(t controllers.Transport) Option {
	return func(o *options) { o.transport = t }
}

func WithStorage(s controllers.StorageController) Option {
	return func(o *options) { o.storage = s }
}

func WithFileController(f controllers.FileController) Option {
	return func(o *options) { o.fileController = f }
}

func WithInstallation(i controllers.InstallationController) Option {
	return func(o *options) { o.installation = i }
}

// WithUserController replaces the built-in user controller in the registry.
// Users() keeps returning the built-in one.
func WithUserController(u controllers.UserController) Option {
	return func(o *options) { o.userController = u }
}

func WithCrypto(c controllers.CryptoController) Option {
	return func(o *options) { o.crypto = c }
}

// WithChooser sets where file content comes from. Defaults to a PathChooser
// over cfg.FilesDir.
func WithChooser(c files.Chooser) Option {
	return func(o *options) { o.chooser = c }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithObserver(obs rest.Observer) Option {
	return func(o *options) { o.observer = obs }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

type Client struct {
	cfg      *config.Config
	registry *controllers.Registry
	rest     *rest.Controller
	files    *files.Pipeline
	users    *users.Controller
	closers  []io.Closer
}

// New validates cfg and binds every capability. On error, anything already
// opened is closed.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *Client, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{cfg: cfg, registry: controllers.NewRegistry()}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	if o.transport == nil {
		f, err := pick(transportFactories, "transport", cfg.Transport)
		if err != nil {
			return nil, err
		}
		t, closer, err := f(ctx, cfg, o.logger)
		if err != nil {
			return nil, err
		}
		c.addCloser(closer)
		o.transport = t
	}
	c.registry.SetTransport(limited(o.transport, cfg))

	if o.storage == nil {
		f, err := pick(storageFactories, "storage", cfg.Storage)
		if err != nil {
			return nil, err
		}
		s, closer, err := f(ctx, cfg, o.logger)
		if err != nil {
			return nil, err
		}
		c.addCloser(closer)
		o.storage = s
	}
	c.registry.SetStorage(o.storage)

	if o.crypto == nil {
		o.crypto = cryptox.AESGCM{}
	}
	c.registry.SetCrypto(o.crypto)

	if o.installation == nil {
		o.installation = installation.NewController(cfg, c.registry)
	}
	c.registry.SetInstallation(o.installation)

	restOpts := []rest.Option{rest.WithLogger(o.logger)}
	if o.observer != nil {
		restOpts = append(restOpts, rest.WithObserver(o.observer))
	}
	if o.tracerProvider != nil {
		restOpts = append(restOpts, rest.WithTracerProvider(o.tracerProvider))
	}
	c.rest = rest.NewController(cfg, c.registry, restOpts...)

	c.users = users.NewController(cfg, c.registry, c.rest, users.WithLogger(o.logger))
	if o.userController != nil {
		c.registry.SetUserController(o.userController)
	} else {
		c.registry.SetUserController(c.users)
	}

	if o.fileController == nil {
		if o.chooser == nil {
			o.chooser = files.PathChooser{Dir: cfg.FilesDir}
		}
		f, err := pick(fileFactories, "files", cfg.Files)
		if err != nil {
			return nil, err
		}
		if o.fileController, err = f(ctx, cfg, c.registry, o.chooser, o.logger); err != nil {
			return nil, err
		}
	}
	c.registry.SetFileController(o.fileController)
	c.files = files.NewPipeline(c.registry, files.WithPipelineLogger(o.logger))

	return c, nil
}

func (c *Client) addCloser(cl io.Closer) {
	if cl != nil {
		c.closers = append(c.closers, cl)
	}
}

// Request runs one call through the request pipeline.
func (c *Client) Request(ctx context.Context, method, path string, data map[string]any, opts ...rest.RequestOption) (json.RawMessage, error) {
	return c.rest.Request(ctx, method, path, data, opts...)
}

func (c *Client) NewFile(name string) *files.File {
	return files.New(name)
}

func (c *Client) SaveFile(ctx context.Context, f *files.File) (*files.File, error) {
	return c.files.Save(ctx, f)
}

func (c *Client) InstallationID(ctx context.Context) (string, error) {
	ic, err := c.registry.Installation()
	if err != nil {
		return "", err
	}
	return ic.CurrentInstallationID(ctx)
}

func (c *Client) REST() *rest.Controller          { return c.rest }
func (c *Client) Users() *users.Controller        { return c.users }
func (c *Client) Registry() *controllers.Registry { return c.registry }
func (c *Client) Config() *config.Config          { return c.cfg }

func (c *Client) Storage() controllers.StorageController {
	s, _ := c.registry.Storage()
	return s
}

// Close releases adapters opened by New, newest first.
func (c *Client) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
