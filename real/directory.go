package real

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opd-ai/onionrelay/crypto"
	"github.com/opd-ai/onionrelay/interfaces"
	"github.com/opd-ai/onionrelay/limits"
	"github.com/opd-ai/onionrelay/onion"
	"github.com/sirupsen/logrus"
)

// DirectoryClient talks to the registry service over HTTP.
type DirectoryClient struct {
	client     *http.Client
	baseURL    string
	scheme     crypto.Scheme
	addressing onion.Addressing
}

// NewDirectoryClient creates a client for the registry at baseURL
// (for example "http://localhost:8080"). Listed keys are validated with scheme
// and relay addresses are derived with addressing.
func NewDirectoryClient(baseURL string, scheme crypto.Scheme, addressing onion.Addressing, timeout time.Duration) *DirectoryClient {
	return &DirectoryClient{
		client:     &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		scheme:     scheme,
		addressing: addressing,
	}
}

// Relays implements IDirectory.Relays. Entries whose key does not parse
// under the configured scheme are skipped.
func (d *DirectoryClient) Relays(ctx context.Context) ([]onion.Relay, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/getNodeRegistry", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch registry: status %d", resp.StatusCode)
	}

	var body interfaces.RegistryBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, limits.MaxProcessingBuffer)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}

	relays := make([]onion.Relay, 0, len(body.Nodes))
	for _, node := range body.Nodes {
		publicKey, err := crypto.DecodeText(node.PubKey)
		if err == nil {
			err = d.scheme.ParsePublicKey(publicKey)
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "DirectoryClient.Relays",
				"node_id":  node.NodeID,
				"error":    err.Error(),
			}).Warn("Skipping registry entry with unusable key")
			continue
		}
		relays = append(relays, onion.Relay{
			ID:        node.NodeID,
			PublicKey: publicKey,
			Address:   d.addressing.RelayAddress(node.NodeID),
		})
	}

	logrus.WithFields(logrus.Fields{
		"function": "DirectoryClient.Relays",
		"listed":   len(body.Nodes),
		"usable":   len(relays),
	}).Debug("Fetched relay directory")

	return relays, nil
}

// Register implements IRegistrar.Register
func (d *DirectoryClient) Register(ctx context.Context, id uint32, publicKey []byte) error {
	payload, err := json.Marshal(interfaces.NodeEntry{
		NodeID: id,
		PubKey: crypto.EncodeText(publicKey),
	})
	if err != nil {
		return fmt.Errorf("failed to encode registration: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/registerNode", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("register relay %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("register relay %d: %s", id, readError(resp))
	}

	logrus.WithFields(logrus.Fields{
		"function": "DirectoryClient.Register",
		"node_id":  id,
	}).Info("Relay registered with directory")
	return nil
}

// readError extracts the error message of a failed JSON call.
func readError(resp *http.Response) string {
	var body interfaces.ErrorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil && body.Error != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
