package files

import (
	"context"

	"github.com/dmitrijs2005/baaskit/internal/apierror"
	"github.com/dmitrijs2005/baaskit/internal/controllers"
	"github.com/dmitrijs2005/baaskit/internal/logging"
)

// Pipeline saves file handles through the bound file controller.
type Pipeline struct {
	registry *controllers.Registry
	logger   logging.Logger
}

type PipelineOption func(*Pipeline)

func WithPipelineLogger(l logging.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

func NewPipeline(reg *controllers.Registry, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{registry: reg, logger: logging.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Save uploads f once. Every call, concurrent or later, observes the outcome
// of that single upload, including its failure. The upload itself is not
// tied to ctx; ctx only bounds how long this caller waits.
func (p *Pipeline) Save(ctx context.Context, f *File) (*File, error) {
	f.mu.Lock()
	op := f.save
	if op == nil {
		op = &saveOp{done: make(chan struct{})}
		f.save = op
		name := f.name
		f.mu.Unlock()
		go p.upload(context.WithoutCancel(ctx), f, op, name)
	} else {
		f.mu.Unlock()
	}

	select {
	case <-op.done:
		if op.err != nil {
			return nil, op.err
		}
		return f, nil
	case <-ctx.Done():
		return nil, apierror.Normalize(&controllers.TransportError{Err: ctx.Err()})
	}
}

func (p *Pipeline) upload(ctx context.Context, f *File, op *saveOp, name string) {
	defer close(op.done)

	fc, err := p.registry.FileController()
	if err != nil {
		op.err = apierror.Normalize(err)
		return
	}

	p.logger.Debug(ctx, "uploading file", "name", name)
	saved, err := fc.SaveFile(ctx, name)
	if err != nil {
		op.err = apierror.Normalize(err)
		p.logger.Warn(ctx, "file upload failed", "name", name, "error", op.err)
		return
	}

	if saved == nil {
		op.err = apierror.New(apierror.FileSaveError, "file controller returned no result")
		return
	}
	f.resolve(saved.Name, saved.URL)
	p.logger.Info(ctx, "file saved", "name", saved.Name, "url", saved.URL)
}
