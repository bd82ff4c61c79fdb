// Package storage holds the key/value backends behind
// controllers.StorageController. All of them are best effort: failures are
// logged and swallowed, and writes that would push the stored bytes past the
// configured capacity are dropped.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/baaskit/internal/logging"
)

// DefaultCapacity bounds the bytes (keys plus values) one store may hold.
const DefaultCapacity = 10 << 20

var errCapacityExceeded = errors.New("storage capacity exceeded")

type options struct {
	capacity int64
	timeout  time.Duration
	logger   logging.Logger
}

type Option func(*options)

// WithCapacity sets the byte limit. Non-positive values keep the default.
func WithCapacity(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithTimeout bounds each backend round trip. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{capacity: DefaultCapacity, logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.timeout)
}

func itemSize(key, value string) int64 {
	return int64(len(key) + len(value))
}
