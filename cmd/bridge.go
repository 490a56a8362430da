/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allbin/devlink/bridge"
	"github.com/allbin/devlink/host"
	"github.com/charmbracelet/lipgloss"
)

const dialTimeout = 2 * time.Second

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("40")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// newHost builds a host over the configured transports.
func newHost() (*host.Host, error) {
	serialTransport, err := host.NewSerialTransport(cfg.Serial)
	if err != nil {
		return nil, err
	}
	return host.New(host.SysfsUSB{}, serialTransport,
		host.WithLogger(log.With("component", "host")),
		host.WithDefaultBaudRate(cfg.Serial.DefaultBaud),
	), nil
}

// openBridge dials the running host. When none answers and allowLocal is
// set, an in-process host is started instead; local is then true and the
// devices are released when the returned close func runs.
func openBridge(ctx context.Context, allowLocal bool) (b bridge.Bridge, local bool, closeFn func(), err error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	client, err := bridge.Dial(dialCtx, cfg.Bridge.Addr, cfg.Bridge.Token,
		bridge.WithClientLogger(log.With("component", "bridge")))
	if err == nil {
		log.Debug("using running host", "addr", cfg.Bridge.Addr)
		return client, false, func() { client.Close() }, nil
	}
	if !allowLocal {
		return nil, false, nil, fmt.Errorf("no host at %s: %w", cfg.Bridge.Addr, err)
	}

	log.Debug("no running host, starting one in-process", "addr", cfg.Bridge.Addr, "error", err)
	h, herr := newHost()
	if herr != nil {
		return nil, false, nil, errors.Join(err, herr)
	}
	return bridge.NewLocal(h), true, func() {
		if err := h.Close(); err != nil {
			log.Warn("host close failed", "error", err)
		}
	}, nil
}

func printResult(res host.Result) {
	if res.Success {
		fmt.Printf("%s %s\n", successStyle.Render("✓"), res.Message)
		return
	}
	fmt.Printf("%s %s\n", errorStyle.Render("✗"), res.Message)
}
