package node

import (
	"sync"

	"github.com/opd-ai/onionrelay/onion"
)

// State holds the observability cells of one participant. Every cell is
// last-write-wins and nil until first written; concurrent sends give no
// ordering guarantee beyond that.
type State struct {
	mu              sync.RWMutex
	lastSent        *string
	lastReceived    *string
	lastDecrypted   *string
	lastCircuit     []uint32
	lastDestination *onion.Address
}

// NewState creates an empty state.
func NewState() *State {
	return &State{}
}

func strPtr(s string) *string { return &s }

// RecordSent stores the last message handed to an entry relay.
func (s *State) RecordSent(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSent = strPtr(message)
}

// RecordReceived stores the last message received.
func (s *State) RecordReceived(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReceived = strPtr(message)
}

// RecordDecrypted stores the payload of the last peeled layer.
func (s *State) RecordDecrypted(payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDecrypted = strPtr(payload)
}

// RecordCircuit stores the relay identifiers of the last circuit used.
func (s *State) RecordCircuit(ids []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCircuit = append([]uint32(nil), ids...)
}

// RecordDestination stores the destination of the last peeled layer.
func (s *State) RecordDestination(addr onion.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDestination = &addr
}

// LastSent returns the last sent message, or nil.
func (s *State) LastSent() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyStr(s.lastSent)
}

// LastReceived returns the last received message, or nil.
func (s *State) LastReceived() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyStr(s.lastReceived)
}

// LastDecrypted returns the payload of the last peeled layer, or nil.
func (s *State) LastDecrypted() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyStr(s.lastDecrypted)
}

// LastCircuit returns a copy of the last circuit, or nil.
func (s *State) LastCircuit() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastCircuit == nil {
		return nil
	}
	return append([]uint32(nil), s.lastCircuit...)
}

// LastDestination returns the destination of the last peeled layer, or nil.
func (s *State) LastDestination() *onion.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastDestination == nil {
		return nil
	}
	addr := *s.lastDestination
	return &addr
}

func copyStr(p *string) *string {
	if p == nil {
		return nil
	}
	return strPtr(*p)
}
