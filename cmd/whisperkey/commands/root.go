package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"whisperkey/internal/app"
	"whisperkey/internal/domain"
)

var (
	configPath   string
	home         string
	passphrase   string
	directoryURL string
	backend      string
	username     string
	verbose      bool
	metricsFile  string

	appCtx   *app.App
	registry *prometheus.Registry
)

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "whisperkey",
		Short:        "End-to-end encrypted direct message keys and envelopes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Load(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("home") {
				cfg.Home = home
			}
			if flags.Changed("directory") {
				cfg.DirectoryURL = directoryURL
			}
			if flags.Changed("backend") {
				cfg.Store.Backend = backend
			}
			if flags.Changed("passphrase") {
				cfg.Passphrase = passphrase
			}

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			cfg.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			registry = prometheus.NewRegistry()
			cfg.Registerer = registry

			if cfg.Store.Backend != app.BackendMemory {
				if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
					return err
				}
			}
			w, err := app.NewWire(ctxOf(cmd), cfg)
			if err != nil {
				return err
			}
			appCtx = app.New(w, domain.UserID(username))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if metricsFile != "" {
				if err = prometheus.WriteToTextfile(metricsFile, registry); err != nil {
					err = fmt.Errorf("write metrics: %w", err)
				}
			}
			return errors.Join(err, appCtx.Close())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default <home>/config.yaml)")
	pf.StringVar(&home, "home", "", "config dir (default ~/.whisperkey)")
	pf.StringVarP(&passphrase, "passphrase", "p", "", "passphrase to seal the key file")
	pf.StringVar(&directoryURL, "directory", "", "directory base URL (e.g. http://127.0.0.1:8080)")
	pf.StringVar(&backend, "backend", "", "key store backend: file, sqlite or memory")
	pf.StringVarP(&username, "user", "u", "", "your user id")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		publicKeyCmd(),
		encryptCmd(),
		decryptCmd(),
		phraseCmd(),
	)
	return root
}

func requireUser() error {
	if username == "" {
		return errors.New("user required (-u)")
	}
	return nil
}

// inputArg returns args[i] or, when absent or "-", all of stdin.
func inputArg(cmd *cobra.Command, args []string, i int) (string, error) {
	if len(args) > i && args[i] != "-" {
		return args[i], nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
