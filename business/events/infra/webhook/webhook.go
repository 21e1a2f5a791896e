// Package webhook POSTs events as JSON to an HTTP endpoint.
package webhook

import (
	"context"
	"time"

	"github.com/fd1az/flashloan-arb/business/events/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/httpclient"
)

// Poster is a subscriber that delivers each event with one POST. A transport
// error or non-2xx status fails the send.
type Poster struct {
	client httpclient.Client
	url    string
}

// New creates a poster backed by an instrumented client.
func New(url string, timeout time.Duration) (*Poster, error) {
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("webhook"),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithHeaders(map[string]string{"User-Agent": "flashloan-arb"}),
	)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("webhook client"))
	}
	return NewWithClient(client, url), nil
}

// NewWithClient creates a poster on an existing client.
func NewWithClient(client httpclient.Client, url string) *Poster {
	return &Poster{client: client, url: url}
}

// Send posts e.
func (p *Poster) Send(ctx context.Context, e domain.Event) error {
	_, err := p.client.NewRequest(
		httpclient.FailOnNon2xx(),
		httpclient.WithLabels(httpclient.Label{Key: "event_type", Value: string(e.Type)}),
	).SetBody(e).Post(ctx, p.url)
	if err != nil {
		return apperror.New(apperror.CodeSubscriberSendFailed,
			apperror.WithCause(err),
			apperror.WithContext("webhook "+p.url))
	}
	return nil
}
