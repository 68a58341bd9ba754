package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opd-ai/onionrelay/crypto"
	"github.com/opd-ai/onionrelay/interfaces"
	"github.com/opd-ai/onionrelay/onion"
	"github.com/opd-ai/onionrelay/real"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRegistryRegisterAndList(t *testing.T) {
	scheme := crypto.NaCl()
	reg := NewRegistry(scheme, onion.DefaultAddressing())
	h := reg.Router()

	keys := map[uint32][]byte{}
	for _, id := range []uint32{2, 0, 1} {
		kp, err := scheme.GenerateKeyPair()
		require.NoError(t, err)
		keys[id] = kp.Public
		rec := post(t, h, "/registerNode", fmt.Sprintf(`{"nodeId":%d,"pubKey":%q}`, id, crypto.EncodeText(kp.Public)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/getNodeRegistry", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body interfaces.RegistryBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Nodes, 3)
	for i, n := range body.Nodes {
		assert.Equal(t, uint32(i), n.NodeID)
		assert.Equal(t, crypto.EncodeText(keys[n.NodeID]), n.PubKey)
	}

	relays, err := reg.Relays(context.Background())
	require.NoError(t, err)
	assert.Equal(t, onion.Address(4002), relays[2].Address)
}

func TestRegistryReplacesKey(t *testing.T) {
	scheme := crypto.NaCl()
	reg := NewRegistry(scheme, onion.DefaultAddressing())

	first, _ := scheme.GenerateKeyPair()
	second, _ := scheme.GenerateKeyPair()
	require.NoError(t, reg.Register(context.Background(), 5, first.Public))
	require.NoError(t, reg.Register(context.Background(), 5, second.Public))

	relays, err := reg.Relays(context.Background())
	require.NoError(t, err)
	require.Len(t, relays, 1)
	assert.Equal(t, second.Public, relays[0].PublicKey)
}

func TestRegistryRejects(t *testing.T) {
	reg := NewRegistry(crypto.NaCl(), onion.DefaultAddressing())
	h := reg.Router()

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"nodeId":`},
		{"not base64", `{"nodeId":1,"pubKey":"***"}`},
		{"wrong key size", fmt.Sprintf(`{"nodeId":1,"pubKey":%q}`, crypto.EncodeText([]byte("short")))},
		{"id out of range", fmt.Sprintf(`{"nodeId":1000,"pubKey":%q}`, crypto.EncodeText(make([]byte, 32)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, "/registerNode", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	assert.Empty(t, reg.Listing().Nodes)
}

func TestRegistryStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRegistry(crypto.NaCl(), onion.DefaultAddressing()).Router().
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "live", rec.Body.String())
}

func TestRegistryWithDirectoryClient(t *testing.T) {
	scheme := crypto.RSA()
	reg := NewRegistry(scheme, onion.DefaultAddressing())
	srv := httptest.NewServer(reg.Router())
	defer srv.Close()

	client := real.NewDirectoryClient(srv.URL, scheme, onion.DefaultAddressing(), 5*time.Second)

	kp, err := scheme.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, client.Register(context.Background(), 3, kp.Public))

	relays, err := client.Relays(context.Background())
	require.NoError(t, err)
	require.Len(t, relays, 1)
	assert.Equal(t, uint32(3), relays[0].ID)
	assert.Equal(t, kp.Public, relays[0].PublicKey)
	assert.Equal(t, onion.Address(4003), relays[0].Address)

	assert.Error(t, client.Register(context.Background(), 4, []byte("junk")))
}
