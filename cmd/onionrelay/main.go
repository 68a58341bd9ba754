// Command onionrelay runs the participants of an onion-routing overlay: the
// relay registry, relays, users, or a whole network in one process.
package main

import (
	"context"
	"os"

	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// envPassphrase unlocks the relay key store.
const envPassphrase = "ONION_KEYSTORE_PASSPHRASE"

// globalFlags holds the flags every subcommand shares.
type globalFlags struct {
	ConfigFile string
	Simulation bool
}

// newRootCommand creates the root cobra command
func newRootCommand() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   "onionrelay",
		Short: "Minimal onion-routing overlay",
		Long: `onionrelay runs the participants of a small onion-routing overlay.

Users send text messages to each other through a circuit of three relays.
The sender wraps the message in one encryption layer per relay and each relay
peels exactly one layer before handing the rest to the next hop. A registry
publishes every relay's public key.

Every participant is an HTTP service on its own port: the registry on 8080,
relay N on 4000+N and user N on 3000+N, unless the configuration file says
otherwise.`,
		Example: `  # Start the registry, three relays and two users in separate processes
  onionrelay registry
  onionrelay relay --id 0 & onionrelay relay --id 1 & onionrelay relay --id 2 &
  onionrelay user --id 0 & onionrelay user --id 1 &

  # Or run a whole network in one process
  onionrelay network --relays 10 --users 2

  # Ask user 0 to send a message to user 1
  onionrelay send --from 0 --to 1 --message "hello"

  # Print the default configuration as TOML
  onionrelay config > onionrelay.toml`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "f", "",
		"path to the configuration file (TOML format); defaults plus ONION_* environment when empty")
	cmd.PersistentFlags().BoolVar(&flags.Simulation, "simulation", false,
		"run participants over the in-memory network instead of HTTP")

	cmd.AddCommand(
		newRegistryCommand(&flags),
		newRelayCommand(&flags),
		newUserCommand(&flags),
		newNetworkCommand(&flags),
		newSendCommand(&flags),
		newGenKeyCommand(&flags),
		newConfigCommand(&flags),
	)
	return cmd
}

func main() {
	rootCmd := newRootCommand()

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(versioninfo.Short()),
	); err != nil {
		os.Exit(1)
	}
}
