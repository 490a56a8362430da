/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/allbin/devlink/internal/config"
	"github.com/allbin/devlink/internal/logger"
	"github.com/allbin/devlink/internal/tracer"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	log     = logger.Discard()

	closeLog       = func() error { return nil }
	shutdownTracer = func(context.Context) error { return nil }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "devlink",
	Short: "Bridge USB and serial devices to a kiosk UI",
	Long: `devlink gives a kiosk UI access to local USB and serial devices.

The host side ("devlink serve") owns the devices and exposes a small set of
operations over a local WebSocket bridge. The remaining commands are clients
of that bridge; when no host is running they start one in-process.

Configuration is read from devlink.yaml (current directory,
$XDG_CONFIG_HOME/devlink or /etc/devlink) and DEVLINK_* environment
variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := config.NewViper(cfgFile)
		flags := cmd.Root().PersistentFlags()
		if err := v.BindPFlag("log.level", flags.Lookup("log-level")); err != nil {
			return err
		}
		if err := v.BindPFlag("bridge.addr", flags.Lookup("bridge-addr")); err != nil {
			return err
		}

		loaded, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = loaded

		l, closer, err := logger.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		log, closeLog = l, closer
		if used := v.ConfigFileUsed(); used != "" {
			log.Debug("config loaded", "file", used)
		}

		shutdown, err := tracer.Setup(cmd.Context(), cfg.Trace)
		if err != nil {
			return fmt.Errorf("tracer: %w", err)
		}
		shutdownTracer = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return errors.Join(shutdownTracer(context.Background()), closeLog())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is devlink.yaml on the search path)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("bridge-addr", "", "bridge address (default 127.0.0.1:7420)")
}

// quietLogger keeps log lines off the terminal while a TUI owns it.
func quietLogger() *slog.Logger {
	if cfg.Log.Output == "stderr" || cfg.Log.Output == "stdout" || cfg.Log.Output == "" {
		return logger.Discard()
	}
	return log
}
