/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/allbin/devlink/bridge"
	"github.com/allbin/devlink/host"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the device host and expose it over the bridge",
	Long: `Run the device host. The host owns at most one USB device and one serial
port at a time and exposes them to UI clients over a WebSocket bridge.

With host.watch_devices enabled, USB hotplug events trigger a rescan and the
new device list is pushed to every client.

Example usage:
  devlink serve
  DEVLINK_BRIDGE_TOKEN=secret devlink serve --bridge-addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	h, err := newHost()
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Close(); err != nil {
			log.Warn("host close failed", "error", err)
		}
	}()

	srv := bridge.NewServer(bridge.NewLocal(h), cfg.Bridge.Addr,
		bridge.WithToken(cfg.Bridge.Token),
		bridge.WithServerLogger(log.With("component", "bridge")),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })

	if cfg.Host.WatchDevices {
		watcher := host.NewWatcher(h, cfg.Host.RescanInterval, log.With("component", "watcher"))
		g.Go(func() error {
			if err := watcher.Run(ctx); err != nil {
				// Hotplug is optional; the bridge keeps serving without it.
				log.Warn("device watcher stopped", "error", err)
			}
			return nil
		})
	}

	select {
	case <-srv.Ready():
		log.Info("host ready", "addr", srv.BoundAddr(), "serial_backend", cfg.Serial.Backend)
	case <-ctx.Done():
	}

	err = g.Wait()
	log.Info("host stopped")
	return err
}
