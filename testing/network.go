package testing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/onionrelay/interfaces"
	"github.com/opd-ai/onionrelay/onion"
	"github.com/sirupsen/logrus"
)

// ErrNoEndpoint is returned when nothing is attached at the target address.
var ErrNoEndpoint = errors.New("no endpoint at address")

// Endpoint consumes a message handed to an address. A non-nil error plays
// the role of a non-2xx response.
type Endpoint func(ctx context.Context, message string) error

// SimulatedNetwork implements IForwarder entirely in memory. Participants
// attach an Endpoint at their address; Forward calls it synchronously.
type SimulatedNetwork struct {
	endpoints   map[onion.Address]Endpoint
	failures    map[onion.Address]error
	deliveryLog []DeliveryRecord
	config      *interfaces.TransportConfig
	mu          sync.RWMutex
}

// DeliveryRecord represents a hand-off event for testing verification
type DeliveryRecord struct {
	Address     onion.Address
	MessageSize int
	Timestamp   int64
	Success     bool
	Error       error
}

// NetworkStats provides type-safe statistics about the simulation.
type NetworkStats struct {
	Endpoints            int
	TotalDeliveries      int
	SuccessfulDeliveries int
	FailedDeliveries     int
}

// NewSimulatedNetwork creates a new in-memory network for testing
func NewSimulatedNetwork(config *interfaces.TransportConfig) *SimulatedNetwork {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function": "NewSimulatedNetwork",
		"timeout":  config.NetworkTimeout,
	}).Info("Creating simulated network for testing")

	return &SimulatedNetwork{
		endpoints:   make(map[onion.Address]Endpoint),
		failures:    make(map[onion.Address]error),
		deliveryLog: make([]DeliveryRecord, 0),
		config:      config,
	}
}

// Attach registers endpoint at addr, replacing any previous one.
func (s *SimulatedNetwork) Attach(addr onion.Address, endpoint Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.endpoints[addr] = endpoint

	logrus.WithFields(logrus.Fields{
		"function":        "SimulatedNetwork.Attach",
		"address":         addr.String(),
		"total_endpoints": len(s.endpoints),
	}).Debug("Endpoint attached to simulation")
}

// Detach removes the endpoint at addr. Later hand-offs to addr fail.
func (s *SimulatedNetwork) Detach(addr onion.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.endpoints, addr)
}

// FailDeliveriesTo makes every hand-off to addr fail with err until ClearFailure.
func (s *SimulatedNetwork) FailDeliveriesTo(addr onion.Address, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[addr] = err
}

// ClearFailure removes an injected failure.
func (s *SimulatedNetwork) ClearFailure(addr onion.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.failures, addr)
}

// Forward implements IForwarder.Forward with simulation. The endpoint runs
// on the caller's goroutine without the network lock held, so endpoints may
// forward further.
func (s *SimulatedNetwork) Forward(ctx context.Context, addr onion.Address, message string) error {
	logrus.WithFields(logrus.Fields{
		"function":     "SimulatedNetwork.Forward",
		"address":      addr.String(),
		"message_size": len(message),
	}).Debug("Simulating hand-off")

	s.mu.RLock()
	endpoint, ok := s.endpoints[addr]
	injected := s.failures[addr]
	s.mu.RUnlock()

	var err error
	switch {
	case injected != nil:
		err = injected
	case !ok:
		err = fmt.Errorf("%w %s", ErrNoEndpoint, addr)
	default:
		if s.config.NetworkTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(s.config.NetworkTimeout)*time.Millisecond)
			defer cancel()
		}
		err = endpoint(ctx, message)
	}

	s.record(addr, len(message), err)

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SimulatedNetwork.Forward",
			"address":  addr.String(),
			"error":    err.Error(),
		}).Warn("Simulated hand-off failed")
	}
	return err
}

func (s *SimulatedNetwork) record(addr onion.Address, size int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deliveryLog = append(s.deliveryLog, DeliveryRecord{
		Address:     addr,
		MessageSize: size,
		Timestamp:   time.Now().UnixNano(),
		Success:     err == nil,
		Error:       err,
	})
}

// IsSimulation implements IForwarder.IsSimulation
func (s *SimulatedNetwork) IsSimulation() bool {
	return true
}

// GetDeliveryLog returns the complete delivery log for test verification
func (s *SimulatedNetwork) GetDeliveryLog() []DeliveryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := make([]DeliveryRecord, len(s.deliveryLog))
	copy(log, s.deliveryLog)
	return log
}

// ClearDeliveryLog clears the delivery log for test cleanup
func (s *SimulatedNetwork) ClearDeliveryLog() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deliveryLog = make([]DeliveryRecord, 0)
}

// GetTypedStats returns statistics about the simulation
func (s *SimulatedNetwork) GetTypedStats() NetworkStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := NetworkStats{
		Endpoints:       len(s.endpoints),
		TotalDeliveries: len(s.deliveryLog),
	}
	for _, record := range s.deliveryLog {
		if record.Success {
			stats.SuccessfulDeliveries++
		} else {
			stats.FailedDeliveries++
		}
	}
	return stats
}
