// Package devicewatch listens for udev netlink events and reports GPS
// receivers appearing on or leaving the system's serial ports.
package devicewatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"gpsbridge/internal/logging"
)

// Event describes a serial device arriving or departing.
type Event struct {
	// Action is "add" or "remove".
	Action string
	// Device is the device node path, e.g. /dev/ttyUSB0.
	Device string
}

// Handler receives matched device events.
type Handler func(ctx context.Context, event Event)

// Watcher monitors udev netlink events for serial GPS receivers.
type Watcher struct {
	logger  *slog.Logger
	handler Handler

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// New creates a watcher that invokes handler for every serial device event.
func New(logger *slog.Logger, handler Handler) *Watcher {
	return &Watcher{
		logger:  logging.NewComponentLogger(logger, "devicewatch"),
		handler: handler,
	}
}

// Start begins listening for udev netlink events. Failure to connect to the
// netlink socket is logged but not fatal; callers can still address devices
// by explicit path.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		w.logger.Warn("failed to connect to netlink socket; device events unavailable",
			logging.Error(err))
		return nil
	}

	w.conn = conn
	w.quit = make(chan struct{})
	w.running = true

	quit := w.quit
	go w.monitorLoop(ctx, quit)

	w.logger.Info("device watcher started")
	return nil
}

// Stop shuts down the watcher.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	if w.quit != nil {
		close(w.quit)
		w.quit = nil
	}
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
	w.running = false

	w.logger.Info("device watcher stopped")
}

// Running reports whether the watcher is active.
func (w *Watcher) Running() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()

	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			w.handleEvent(ctx, uevent)
		case err := <-errs:
			w.logger.Warn("netlink monitor error", logging.Error(err))
		}
	}
}

// buildMatcher matches SUBSYSTEM=tty events for add and remove actions.
// Receivers show up as /dev/ttyUSB* or /dev/ttyACM* nodes.
func buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "tty",
		},
	})
	return rules
}

func (w *Watcher) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	devname := extractDeviceName(uevent)
	if devname == "" {
		w.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj))
		return
	}

	if !isSerialReceiver(devname) {
		w.logger.Debug("ignoring non-serial device",
			logging.String("device", devname))
		return
	}

	w.logger.Info("serial device event",
		logging.String("device", devname),
		logging.String("action", string(uevent.Action)))

	if w.handler == nil {
		return
	}
	w.handler(ctx, Event{Action: string(uevent.Action), Device: devname})
}

// isSerialReceiver reports whether devname looks like a USB serial adapter,
// which is how handheld GPS receivers attach on modern systems.
func isSerialReceiver(devname string) bool {
	base := devname
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	return strings.HasPrefix(base, "ttyUSB") || strings.HasPrefix(base, "ttyACM")
}

// extractDeviceName gets the device node path from a uevent, falling back to
// the last DEVPATH element when DEVNAME is absent.
func extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/dev/") {
			return "/dev/" + devname
		}
		return devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return "/dev/" + parts[len(parts)-1]
}
