package interfaces_test

import (
	"context"
	"testing"

	"github.com/opd-ai/onionrelay/interfaces"
	"github.com/opd-ai/onionrelay/onion"
	"github.com/opd-ai/onionrelay/real"
	simulation "github.com/opd-ai/onionrelay/testing"
)

// Compile-time checks that every implementation satisfies its interface.
var (
	_ interfaces.IForwarder = (*real.HTTPForwarder)(nil)
	_ interfaces.IForwarder = (*simulation.SimulatedNetwork)(nil)
	_ interfaces.IDirectory = (*real.DirectoryClient)(nil)
	_ interfaces.IDirectory = (*simulation.SimulatedDirectory)(nil)
	_ interfaces.IRegistrar = (*real.DirectoryClient)(nil)
	_ interfaces.IRegistrar = (*simulation.SimulatedDirectory)(nil)
)

type recordingForwarder struct {
	addrs []onion.Address
}

func (r *recordingForwarder) Forward(_ context.Context, addr onion.Address, _ string) error {
	r.addrs = append(r.addrs, addr)
	return nil
}

func (r *recordingForwarder) IsSimulation() bool { return true }

func TestCustomForwarderSatisfiesInterface(t *testing.T) {
	var f interfaces.IForwarder = &recordingForwarder{}
	if err := f.Forward(context.Background(), 4001, "blob"); err != nil {
		t.Fatalf("Forward returned error: %v", err)
	}
	if got := f.(*recordingForwarder).addrs; len(got) != 1 || got[0] != 4001 {
		t.Errorf("unexpected forwarded addresses: %v", got)
	}
	if !f.IsSimulation() {
		t.Error("IsSimulation should return true")
	}
}
