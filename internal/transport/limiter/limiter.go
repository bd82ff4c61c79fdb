// Package limiter paces outgoing exchanges on the client side.
package limiter

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/baaskit/internal/controllers"
)

// Transport waits for a token before delegating to next.
type Transport struct {
	next    controllers.Transport
	limiter *rate.Limiter
}

func New(next controllers.Transport, limit rate.Limit, burst int) *Transport {
	if burst < 1 {
		burst = 1
	}
	return &Transport{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Send fails without a response when ctx ends before a token is available.
func (t *Transport) Send(ctx context.Context, method, url string, body []byte, headers http.Header) (*controllers.Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, &controllers.TransportError{Err: err}
	}
	return t.next.Send(ctx, method, url, body, headers)
}
