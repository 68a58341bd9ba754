package real

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/opd-ai/onionrelay/interfaces"
	"github.com/opd-ai/onionrelay/onion"
	"github.com/sirupsen/logrus"
)

// ForwarderStats provides type-safe statistics about hand-offs.
type ForwarderStats struct {
	// Attempted is the number of hand-offs started.
	Attempted int64
	// Succeeded is the number of hand-offs acknowledged with a 2xx status.
	Succeeded int64
	// Failed is the number of hand-offs that errored or were rejected.
	Failed int64
}

// HTTPForwarder hands onion blobs to participants by POSTing
// {"message": blob} to http://host:addr/message. A failed hand-off is
// reported once and never retried.
type HTTPForwarder struct {
	client  *http.Client
	host    string
	timeout time.Duration

	attempted atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// NewHTTPForwarder creates a forwarder from config. proxyConfig may be nil.
func NewHTTPForwarder(config *interfaces.TransportConfig, proxyConfig *ProxyConfig) (*HTTPForwarder, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if err := applyProxy(transport, proxyConfig); err != nil {
		return nil, err
	}

	timeout := time.Duration(config.NetworkTimeout) * time.Millisecond
	host := config.Host
	if host == "" {
		host = "localhost"
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewHTTPForwarder",
		"host":     host,
		"timeout":  timeout,
	}).Info("Creating HTTP forwarder")

	return &HTTPForwarder{
		client:  &http.Client{Transport: transport, Timeout: timeout},
		host:    host,
		timeout: timeout,
	}, nil
}

// Forward implements IForwarder.Forward
func (f *HTTPForwarder) Forward(ctx context.Context, addr onion.Address, message string) error {
	f.attempted.Add(1)

	body, err := json.Marshal(interfaces.MessageBody{Message: message})
	if err != nil {
		f.failed.Add(1)
		return fmt.Errorf("failed to encode message body: %w", err)
	}

	target := f.URL(addr, "/message")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		f.failed.Add(1)
		return fmt.Errorf("failed to create request for %s: %w", target, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		f.failed.Add(1)
		logrus.WithFields(logrus.Fields{
			"function": "HTTPForwarder.Forward",
			"address":  addr.String(),
			"error":    err.Error(),
		}).Warn("Hand-off failed")
		return fmt.Errorf("hand-off to %s: %w", addr, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.failed.Add(1)
		logrus.WithFields(logrus.Fields{
			"function": "HTTPForwarder.Forward",
			"address":  addr.String(),
			"status":   resp.StatusCode,
		}).Warn("Hand-off rejected")
		return fmt.Errorf("hand-off to %s: status %d", addr, resp.StatusCode)
	}

	f.succeeded.Add(1)
	logrus.WithFields(logrus.Fields{
		"function":     "HTTPForwarder.Forward",
		"address":      addr.String(),
		"message_size": len(message),
	}).Debug("Hand-off acknowledged")
	return nil
}

// URL returns the URL of path on the participant listening at addr.
func (f *HTTPForwarder) URL(addr onion.Address, path string) string {
	return "http://" + net.JoinHostPort(f.host, addr.String()) + path
}

// IsSimulation implements IForwarder.IsSimulation
func (f *HTTPForwarder) IsSimulation() bool {
	return false
}

// Stats returns a snapshot of hand-off counters.
func (f *HTTPForwarder) Stats() ForwarderStats {
	return ForwarderStats{
		Attempted: f.attempted.Load(),
		Succeeded: f.succeeded.Load(),
		Failed:    f.failed.Load(),
	}
}
