/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/allbin/devlink/bridge"
	"github.com/allbin/devlink/internal/tui/models"
	"github.com/allbin/devlink/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// consoleCmd represents the console command
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive device console",
	Long: `Open an interactive console over the device host.

The console lists USB devices and serial ports, connects and disconnects
them and shows serial traffic in real time. Keys:
- tab cycles between the USB, serial and log panes
- enter connects the highlighted device, d disconnects
- i enters insert mode to type data, tab toggles ASCII/HEX sending
- h and a toggle the hex and ASCII columns, c clears the log

Without a running host an in-process host is used; --no-local shows the
console without any host instead.

Example usage:
  devlink console
  devlink console --no-local`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		noLocal, _ := cmd.Flags().GetBool("no-local")
		if err := runConsole(cmd.Context(), !noLocal); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)

	consoleCmd.Flags().Bool("no-local", false, "Do not start an in-process host when none is running")
}

func runConsole(ctx context.Context, allowLocal bool) error {
	// Log lines would tear the alt screen.
	log = quietLogger()

	var b bridge.Bridge
	opened, _, closeBridge, err := openBridge(ctx, allowLocal)
	if err == nil {
		b = opened
		defer closeBridge()
	}

	feed := models.NewFeed(256)
	client := session.New(b,
		session.WithLogger(log.With("component", "session")),
		session.WithSerialDataHandler(feed.SerialData),
	)
	defer client.Close()

	m := models.NewConsole(ctx, client, feed)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
