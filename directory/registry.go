package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/mux"
	"github.com/opd-ai/onionrelay/crypto"
	"github.com/opd-ai/onionrelay/interfaces"
	"github.com/opd-ai/onionrelay/node"
	"github.com/opd-ai/onionrelay/onion"
	"github.com/sirupsen/logrus"
)

// DefaultPort is the registry's port in the reference deployment.
const DefaultPort = 8080

// Registry is the relay directory service. Entries live in memory for the
// lifetime of the process; registering an existing id replaces its key.
type Registry struct {
	scheme     crypto.Scheme
	addressing onion.Addressing
	mu         sync.RWMutex
	nodes      map[uint32][]byte
}

// NewRegistry creates an empty registry accepting keys of scheme.
func NewRegistry(scheme crypto.Scheme, addressing onion.Addressing) *Registry {
	return &Registry{
		scheme:     scheme,
		addressing: addressing,
		nodes:      make(map[uint32][]byte),
	}
}

// Register implements IRegistrar.Register
func (r *Registry) Register(_ context.Context, id uint32, publicKey []byte) error {
	if id >= r.addressing.MaxNodes {
		return fmt.Errorf("%w: node %d", onion.ErrAddressOutOfRange, id)
	}
	if err := r.scheme.ParsePublicKey(publicKey); err != nil {
		return fmt.Errorf("node %d: %w", id, err)
	}

	r.mu.Lock()
	_, replaced := r.nodes[id]
	r.nodes[id] = append([]byte(nil), publicKey...)
	total := len(r.nodes)
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Registry.Register",
		"node_id":  id,
		"replaced": replaced,
		"total":    total,
	}).Info("Relay registered")
	return nil
}

// Relays implements IDirectory.Relays. Entries are ordered by id.
func (r *Registry) Relays(_ context.Context) ([]onion.Relay, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	relays := make([]onion.Relay, 0, len(r.nodes))
	for id, key := range r.nodes {
		relays = append(relays, onion.Relay{
			ID:        id,
			PublicKey: append([]byte(nil), key...),
			Address:   r.addressing.RelayAddress(id),
		})
	}
	sort.Slice(relays, func(i, j int) bool { return relays[i].ID < relays[j].ID })
	return relays, nil
}

// Listing returns the registry in its wire form.
func (r *Registry) Listing() interfaces.RegistryBody {
	relays, _ := r.Relays(context.Background())
	nodes := make([]interfaces.NodeEntry, 0, len(relays))
	for _, relay := range relays {
		nodes = append(nodes, interfaces.NodeEntry{
			NodeID: relay.ID,
			PubKey: crypto.EncodeText(relay.PublicKey),
		})
	}
	return interfaces.RegistryBody{Nodes: nodes}
}

// Router returns the registry's HTTP surface:
//
//	GET  /status            "live"
//	POST /registerNode      {"nodeId": n, "pubKey": "<base64>"}
//	GET  /getNodeRegistry   {"nodes": [...]}
func (r *Registry) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/status", node.StatusHandler).Methods(http.MethodGet)

	router.HandleFunc("/registerNode", func(w http.ResponseWriter, req *http.Request) {
		var body interfaces.NodeEntry
		if err := node.DecodeBody(w, req, &body); err != nil {
			node.WriteError(w, err)
			return
		}
		publicKey, err := crypto.DecodeText(body.PubKey)
		if err != nil {
			node.WriteError(w, fmt.Errorf("%w: %v", crypto.ErrInvalidPublicKey, err))
			return
		}
		if err := r.Register(req.Context(), body.NodeID, publicKey); err != nil {
			node.WriteError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("success"))
	}).Methods(http.MethodPost)

	router.HandleFunc("/getNodeRegistry", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(r.Listing()); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Registry.getNodeRegistry",
				"error":    err.Error(),
			}).Debug("Failed to write registry listing")
		}
	}).Methods(http.MethodGet)

	return router
}
