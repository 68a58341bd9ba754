package real

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/opd-ai/onionrelay/interfaces"
	"github.com/opd-ai/onionrelay/onion"
)

// UserClient drives a running user participant through its HTTP entry points.
type UserClient struct {
	client *http.Client
	host   string
}

// NewUserClient creates a client for users listening on host.
func NewUserClient(host string, timeout time.Duration) *UserClient {
	if host == "" {
		host = "localhost"
	}
	return &UserClient{client: &http.Client{Timeout: timeout}, host: host}
}

// SendMessage asks the user at addr to send message to destinationUserID.
func (c *UserClient) SendMessage(ctx context.Context, addr onion.Address, destinationUserID uint32, message string) error {
	payload, err := json.Marshal(interfaces.SendMessageBody{
		Message:           message,
		DestinationUserID: &destinationUserID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(addr, "/sendMessage"), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send via %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("send via %s: %s", addr, readError(resp))
	}
	return nil
}

// Result fetches an observability endpoint such as "/getLastReceivedMessage"
// from the participant at addr and returns its result field.
func (c *UserClient) Result(ctx context.Context, addr onion.Address, path string) (interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(addr, path), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query %s%s: %w", addr, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query %s%s: %s", addr, path, readError(resp))
	}

	var body interfaces.ResultBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode %s%s: %w", addr, path, err)
	}
	return body.Result, nil
}

func (c *UserClient) url(addr onion.Address, path string) string {
	return "http://" + net.JoinHostPort(c.host, addr.String()) + path
}
