package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/opd-ai/onionrelay"
	"github.com/opd-ai/onionrelay/config"
	"github.com/opd-ai/onionrelay/crypto"
	"github.com/opd-ai/onionrelay/real"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// loadConfig reads the configuration named by flags and applies its logging
// section. The returned closer releases the log file, if any.
func loadConfig(flags *globalFlags) (*config.Config, io.Closer, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.ConfigFile == "" {
		cfg, err = config.LoadDefault()
	} else {
		cfg, err = config.LoadFile(flags.ConfigFile)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config file '%v': %v", flags.ConfigFile, err)
	}
	if flags.Simulation {
		cfg.Transport.UseSimulation = true
	}

	closer, err := cfg.Logging.Apply()
	if err != nil {
		return nil, nil, err
	}
	return cfg, closer, nil
}

// newOptions builds network options with the key store passphrase taken from
// the environment.
func newOptions(cfg *config.Config) *onionrelay.Options {
	options := onionrelay.NewOptions()
	options.Relays = 0
	options.Users = 0
	options.Config = cfg
	if p := os.Getenv(envPassphrase); p != "" {
		options.KeyStorePassphrase = []byte(p)
	}
	return options
}

// runUntilSignal starts a network with options, lets setup add participants
// and blocks until SIGINT or SIGTERM.
func runUntilSignal(ctx context.Context, options *onionrelay.Options, setup func(*onionrelay.Network) error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	network, err := onionrelay.New(options)
	if err != nil {
		return fmt.Errorf("failed to start: %v", err)
	}
	defer network.Kill()

	if setup != nil {
		if err := setup(network); err != nil {
			return err
		}
	}

	<-ctx.Done()
	logrus.WithFields(logrus.Fields{
		"function": "runUntilSignal",
	}).Info("Shutting down")
	return nil
}

func newRegistryCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "Serve the relay registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closer, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer closer.Close()
			return runUntilSignal(cmd.Context(), newOptions(cfg), nil)
		},
	}
}

func newRelayCommand(flags *globalFlags) *cobra.Command {
	var id uint32

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run one relay and register it with the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closer, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer closer.Close()

			options := newOptions(cfg)
			options.NoRegistry = true
			return runUntilSignal(cmd.Context(), options, func(n *onionrelay.Network) error {
				_, err := n.StartRelay(id)
				return err
			})
		},
	}
	cmd.Flags().Uint32Var(&id, "id", 0, "relay id; the relay listens on the relay base port plus id")
	return cmd
}

func newUserCommand(flags *globalFlags) *cobra.Command {
	var id uint32

	cmd := &cobra.Command{
		Use:   "user",
		Short: "Run one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closer, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer closer.Close()

			options := newOptions(cfg)
			options.NoRegistry = true
			return runUntilSignal(cmd.Context(), options, func(n *onionrelay.Network) error {
				_, err := n.StartUser(id)
				return err
			})
		},
	}
	cmd.Flags().Uint32Var(&id, "id", 0, "user id; the user listens on the user base port plus id")
	return cmd
}

func newNetworkCommand(flags *globalFlags) *cobra.Command {
	var relays, users int

	cmd := &cobra.Command{
		Use:   "network",
		Short: "Run the registry, relays and users in one process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closer, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer closer.Close()

			options := newOptions(cfg)
			options.Relays = relays
			options.Users = users
			return runUntilSignal(cmd.Context(), options, nil)
		},
	}
	cmd.Flags().IntVar(&relays, "relays", 10, "number of relays")
	cmd.Flags().IntVar(&users, "users", 2, "number of users")
	return cmd
}

func newSendCommand(flags *globalFlags) *cobra.Command {
	var (
		from, to uint32
		message  string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Ask a running user to send a message to another user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closer, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer closer.Close()

			client := real.NewUserClient(cfg.Network.Host, cfg.Transport.Timeout())
			addr := cfg.Network.Addressing().UserAddress(from)
			if err := client.SendMessage(cmd.Context(), addr, to, message); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "success")
			return err
		},
	}
	cmd.Flags().Uint32Var(&from, "from", 0, "sending user id")
	cmd.Flags().Uint32Var(&to, "to", 0, "destination user id")
	cmd.Flags().StringVarP(&message, "message", "m", "", "message text")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newGenKeyCommand(flags *globalFlags) *cobra.Command {
	var id uint32

	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Create or load a relay key in the key store and print its public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closer, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer closer.Close()
			return genKey(cmd.OutOrStdout(), cfg, id, []byte(os.Getenv(envPassphrase)))
		},
	}
	cmd.Flags().Uint32Var(&id, "id", 0, "relay id")
	return cmd
}

func genKey(w io.Writer, cfg *config.Config, id uint32, passphrase []byte) error {
	if cfg.Crypto.KeyStore == "" {
		return fmt.Errorf("no key store configured; set Crypto.KeyStore or %s", config.EnvKeyStore)
	}
	scheme, err := cfg.Crypto.SchemeImpl()
	if err != nil {
		return err
	}

	store, err := crypto.OpenKeyStore(cfg.Crypto.KeyStore, passphrase)
	if err != nil {
		return err
	}
	defer store.Close()

	kp, generated, err := store.LoadOrGenerate(onionrelay.RelayKeyName(id), scheme)
	if err != nil {
		return err
	}
	defer func() { _ = crypto.WipeKeyPair(kp) }()

	state := "loaded"
	if generated {
		state = "generated"
	}
	_, err = fmt.Fprintf(w, "%s %s key for relay %d: %s\n", state, scheme.Name(), id, crypto.EncodeText(kp.Public))
	return err
}

func newConfigCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closer, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer closer.Close()
			return config.Store(cfg, cmd.OutOrStdout())
		},
	}
}
