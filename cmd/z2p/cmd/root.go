package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Tombleron/z2p/internal/config"
	"github.com/Tombleron/z2p/internal/logger"
	"github.com/Tombleron/z2p/internal/vault"
)

var (
	envFlag string
	confDir string
)

var rootCmd = &cobra.Command{
	Use:   "z2p",
	Short: "Newsletter subscription service",
	Long: `z2p serves the newsletter subscription API backed by PostgreSQL.

Configuration is layered from conf/base.yaml, conf/<env>.yaml, and
APP__-prefixed environment variables (APP__DATABASE__PORT=5433).
APP_ENV selects the environment: local (default) or prod.`,
	SilenceUsage: true,
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "environment layer (local|prod), overrides "+config.EnvVar)
	rootCmd.PersistentFlags().StringVar(&confDir, "conf", "", "directory holding base.yaml (default: discovered conf/)")
}

// loadConfig builds a Loader from the persistent flags.  Vault is used as
// the secret resolver when VAULT_ADDR is set.
func loadConfig(ctx context.Context, log *zap.SugaredLogger) (*config.Config, error) {
	l := &config.Loader{Dir: confDir, Log: log}

	if envFlag != "" {
		env, err := config.ParseEnvironment(envFlag)
		if err != nil {
			return nil, err
		}
		l.Environment = &env
	}

	if vault.Enabled() {
		cli, err := vault.New(ctx, log)
		if err != nil {
			return nil, err
		}
		l.Resolver = cli
	}

	return l.Load(ctx)
}

// setup loads configuration with a console logger, then switches to the
// configured file logger.
func setup(ctx context.Context) (*config.Config, *zap.SugaredLogger, error) {
	boot := logger.Bootstrap()
	cfg, err := loadConfig(ctx, boot)
	if err != nil {
		boot.Errorw("configuration failed", "err", err)
		return nil, nil, err
	}

	log, err := logger.Init(cfg.Log, runningInTTY())
	if err != nil {
		return nil, nil, fmt.Errorf("start logger: %w", err)
	}
	return cfg, log.With("env", cfg.Environment.String()), nil
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
