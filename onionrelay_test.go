package onionrelay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/onionrelay/circuit"
	"github.com/opd-ai/onionrelay/config"
	"github.com/opd-ai/onionrelay/crypto"
	"github.com/opd-ai/onionrelay/node"
	"github.com/opd-ai/onionrelay/real"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simulationOptions(relays, users int) *Options {
	cfg := config.Default()
	cfg.Transport.UseSimulation = true

	options := NewOptions()
	options.Relays = relays
	options.Users = users
	options.Config = cfg
	options.RandomSource = circuit.NewSeededSource(7)
	return options
}

func TestNetworkSimulationDelivers(t *testing.T) {
	network, err := New(simulationOptions(5, 2))
	require.NoError(t, err)
	defer network.Kill()

	assert.True(t, network.IsSimulation())
	assert.Equal(t, []uint32{0, 1, 2, 3, 4}, network.RelayIDs())

	relays, err := network.Directory().Relays(context.Background())
	require.NoError(t, err)
	assert.Len(t, relays, 5)

	require.NoError(t, network.Send(context.Background(), 0, 1, "hello onion"))
	network.Flush()

	sender, ok := network.User(0)
	require.True(t, ok)
	receiver, ok := network.User(1)
	require.True(t, ok)

	require.NotNil(t, receiver.State().LastReceived())
	assert.Equal(t, "hello onion", *receiver.State().LastReceived())
	require.NotNil(t, sender.State().LastSent())
	assert.Equal(t, "hello onion", *sender.State().LastSent())

	path := sender.State().LastCircuit()
	require.Len(t, path, 3)
	for _, hop := range path {
		relay, ok := network.Relay(hop)
		require.True(t, ok)
		assert.NotNil(t, relay.State().LastReceived(), "relay %d on the circuit saw no traffic", hop)
	}
}

func TestNetworkSendErrors(t *testing.T) {
	network, err := New(simulationOptions(2, 1))
	require.NoError(t, err)
	defer network.Kill()

	err = network.Send(context.Background(), 9, 0, "hi")
	assert.True(t, errors.Is(err, ErrUnknownParticipant))

	err = network.Send(context.Background(), 0, 0, "hi")
	assert.Error(t, err, "two relays cannot form a circuit")

	network.Kill()
	assert.False(t, network.IsRunning())
	assert.ErrorIs(t, network.Send(context.Background(), 0, 0, "hi"), ErrNetworkStopped)
}

func TestNewRejectsBadOptions(t *testing.T) {
	options := simulationOptions(-1, 0)
	_, err := New(options)
	assert.Error(t, err)

	options = simulationOptions(1001, 0)
	_, err = New(options)
	assert.Error(t, err)
}

func TestNetworkKeyStorePersistsRelayKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.db")

	options := simulationOptions(3, 0)
	options.Config.Crypto.KeyStore = path
	options.KeyStorePassphrase = []byte("correct horse")

	network, err := New(options)
	require.NoError(t, err)
	relay, ok := network.Relay(1)
	require.True(t, ok)
	first := relay.PublicKey()
	network.Kill()

	store, err := crypto.OpenKeyStore(path, []byte("correct horse"))
	require.NoError(t, err)
	defer store.Close()

	kp, err := store.Get(RelayKeyName(1))
	require.NoError(t, err)
	assert.Equal(t, first, kp.Public)
}

func freePort(t *testing.T) uint32 {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return uint32(l.Addr().(*net.TCPAddr).Port)
}

func TestNetworkOverHTTP(t *testing.T) {
	cfg := config.Default()
	cfg.Network.Host = "127.0.0.1"
	cfg.Network.MaxNodes = 10
	cfg.Network.RegistryPort = freePort(t)
	cfg.Network.BaseUserPort = 43100
	cfg.Network.BaseRelayPort = 43200
	require.NoError(t, cfg.FixupAndValidate())

	options := NewOptions()
	options.Relays = 3
	options.Users = 2
	options.Config = cfg

	network, err := New(options)
	if err != nil {
		t.Skipf("ports unavailable: %v", err)
	}
	defer network.Kill()
	assert.False(t, network.IsSimulation())

	client := real.NewUserClient(cfg.Network.Host, 5*time.Second)
	sender := cfg.Network.Addressing().UserAddress(0)
	require.NoError(t, client.SendMessage(context.Background(), sender, 1, "over the wire"))

	receiver, ok := network.User(1)
	require.True(t, ok)
	require.Eventually(t, func() bool {
		return receiver.State().LastReceived() != nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "over the wire", *receiver.State().LastReceived())

	result, err := client.Result(context.Background(), cfg.Network.Addressing().UserAddress(1), "/getLastReceivedMessage")
	require.NoError(t, err)
	assert.Equal(t, "over the wire", fmt.Sprint(result))
}

func TestNetworkStartParticipants(t *testing.T) {
	network, err := New(simulationOptions(0, 0))
	require.NoError(t, err)
	defer network.Kill()

	for _, id := range []uint32{10, 20, 30} {
		_, err := network.StartRelay(id)
		require.NoError(t, err)
	}
	_, err = network.StartRelay(20)
	assert.Error(t, err, "duplicate relay id")
	_, err = network.StartRelay(1000)
	assert.Error(t, err)

	_, err = network.StartUser(5)
	require.NoError(t, err)
	_, err = network.StartUser(6)
	require.NoError(t, err)

	require.NoError(t, network.Send(context.Background(), 5, 6, "late joiners"))
	network.Flush()
	receiver, _ := network.User(6)
	assert.Equal(t, "late joiners", *receiver.State().LastReceived())
	assert.Equal(t, []uint32{10, 20, 30}, network.RelayIDs())
}

// stallingListener accepts connections on addr and never answers them.
func stallingListener(t *testing.T, addr string) {
	t.Helper()
	l, err := net.Listen("tcp", addr)
	if err != nil {
		t.Skipf("port unavailable: %v", err)
	}

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		l.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			conn.Close()
		}
	})
}

func forwardingDrops(relay *node.Relay) float64 {
	families, err := relay.Metrics().Registry().Gather()
	if err != nil {
		return 0
	}
	total := 0.0
	for _, family := range families {
		if family.GetName() != "onionrelay_messages_dropped_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "reason" && label.GetValue() == node.DropForwarding {
					total += metric.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}

func TestNetworkOverHTTPStalledHopIsNotReported(t *testing.T) {
	cfg := config.Default()
	cfg.Network.Host = "127.0.0.1"
	cfg.Network.MaxNodes = 10
	cfg.Network.RegistryPort = freePort(t)
	cfg.Network.BaseUserPort = 43500
	cfg.Network.BaseRelayPort = 43600
	cfg.Transport.NetworkTimeout = 1000
	cfg.Transport.ForwardTimeout = 300
	require.NoError(t, cfg.FixupAndValidate())

	// User 1's inbox accepts the exit relay's connection but never replies.
	stallingListener(t, cfg.Network.ListenAddress(cfg.Network.Addressing().UserAddress(1)))

	options := NewOptions()
	options.Relays = 3
	options.Users = 1
	options.Config = cfg

	network, err := New(options)
	if err != nil {
		t.Skipf("ports unavailable: %v", err)
	}
	defer network.Kill()

	client := real.NewUserClient(cfg.Network.Host, 5*time.Second)
	sender := cfg.Network.Addressing().UserAddress(0)

	start := time.Now()
	require.NoError(t, client.SendMessage(context.Background(), sender, 1, "into the void"))
	assert.Less(t, time.Since(start), cfg.Transport.Timeout(), "sender waited on the stalled hop")

	user, ok := network.User(0)
	require.True(t, ok)
	path := user.State().LastCircuit()
	require.Len(t, path, 3)
	exit, ok := network.Relay(path[2])
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		return forwardingDrops(exit) == 1
	}, 5*time.Second, 20*time.Millisecond)
	for _, hop := range path[:2] {
		relay, _ := network.Relay(hop)
		assert.Zero(t, forwardingDrops(relay), "relay %d should have handed off", hop)
	}
}

func TestNetworksShareKeyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.db")

	// Two single-relay processes configured with the same store.
	var networks []*Network
	for i := 0; i < 2; i++ {
		options := simulationOptions(0, 0)
		options.NoRegistry = true
		options.Config.Crypto.KeyStore = path
		options.KeyStorePassphrase = []byte("shared")

		network, err := New(options)
		require.NoError(t, err)
		defer network.Kill()
		networks = append(networks, network)
	}

	first, err := networks[0].StartRelay(1)
	require.NoError(t, err)
	second, err := networks[1].StartRelay(2)
	require.NoError(t, err)

	store, err := crypto.OpenKeyStore(path, []byte("shared"))
	require.NoError(t, err)
	defer store.Close()
	for _, relay := range []*node.Relay{first, second} {
		kp, err := store.Get(RelayKeyName(relay.ID()))
		require.NoError(t, err)
		assert.Equal(t, relay.PublicKey(), kp.Public)
	}
}
