package host

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// DefaultUsbDeviceRoot is where usbfs creates one directory per bus.
const DefaultUsbDeviceRoot = "/dev/bus/usb"

// Watcher rescans USB devices when device nodes appear or disappear. Each
// rescan goes through ListUsbDevices, so subscribers of UsbDevicesList get
// the fresh list.
type Watcher struct {
	host    *Host
	root    string
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewWatcher creates a watcher that rescans at most once per interval.
func NewWatcher(h *Host, interval time.Duration, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		host:    h,
		root:    DefaultUsbDeviceRoot,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		log:     log,
	}
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}

	trigger := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.rescanLoop(ctx, trigger)
	}()
	defer func() { <-done }()

	w.log.Info("watching for USB hotplug", "root", w.root)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				// A new bus directory needs its own watch.
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := fw.Add(ev.Name); err != nil {
						w.log.Warn("failed to watch directory", "path", ev.Name, "error", err)
					}
				}
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) {
				w.log.Debug("device node changed", "path", ev.Name, "op", ev.Op.String())
				select {
				case trigger <- struct{}{}:
				default:
				}
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}

// rescanLoop coalesces triggers and spaces rescans by the limiter.
func (w *Watcher) rescanLoop(ctx context.Context, trigger <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-trigger:
		}
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
		devices := w.host.ListUsbDevices()
		w.log.Debug("USB rescan", "devices", len(devices))
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	if err := fw.Add(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("read %s: %w", root, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if err := fw.Add(path); err != nil {
			w.log.Warn("failed to watch directory", "path", path, "error", err)
		}
	}
	return nil
}
