// Package httpnet is the network adapter: it implements the content
// transport port over plain HTTP. Failures never surface as errors; a
// download either yields a body or it does not, and the caller decides
// what a missing body means.
package httpnet

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/nusup/internal/ports/secondary"
)

// DefaultTimeout bounds every request end to end, matching the patience
// of the original console updater.
const DefaultTimeout = 3 * time.Minute

// Transport fetches catalog and content bodies over HTTP.
type Transport struct {
	client *http.Client
	log    *logrus.Logger
}

var _ secondary.ContentTransport = (*Transport)(nil)

// New creates a transport with the given per-request timeout. A zero
// timeout means DefaultTimeout; logger may be nil.
func New(timeout time.Duration, logger *logrus.Logger) *Transport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Transport{
		client: &http.Client{Timeout: timeout},
		log:    logger,
	}
}

// Get implements secondary.ContentTransport.
func (t *Transport) Get(ctx context.Context, url string) ([]byte, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		t.log.WithError(err).WithField("url", url).Warn("http: bad request")
		return nil, false
	}
	return t.do(req)
}

// Post implements secondary.ContentTransport.
func (t *Transport) Post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.log.WithError(err).WithField("url", url).Warn("http: bad request")
		return nil, false
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return t.do(req)
}

func (t *Transport) do(req *http.Request) ([]byte, bool) {
	resp, err := t.client.Do(req)
	if err != nil {
		t.log.WithError(err).WithField("url", req.URL.String()).Warn("http: request failed")
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		t.log.WithFields(logrus.Fields{
			"url":    req.URL.String(),
			"status": resp.StatusCode,
		}).Warn("http: unexpected status")
		return nil, false
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.log.WithError(err).WithField("url", req.URL.String()).Warn("http: body read failed")
		return nil, false
	}
	return data, true
}
