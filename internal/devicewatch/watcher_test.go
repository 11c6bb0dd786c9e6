package devicewatch

import (
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

func TestExtractDeviceName(t *testing.T) {
	tests := []struct {
		name   string
		uevent netlink.UEvent
		want   string
	}{
		{
			name:   "devname present",
			uevent: netlink.UEvent{Env: map[string]string{"DEVNAME": "/dev/ttyUSB0"}},
			want:   "/dev/ttyUSB0",
		},
		{
			name:   "devname without dev prefix",
			uevent: netlink.UEvent{Env: map[string]string{"DEVNAME": "ttyACM1"}},
			want:   "/dev/ttyACM1",
		},
		{
			name:   "fallback to devpath",
			uevent: netlink.UEvent{Env: map[string]string{"DEVPATH": "/devices/pci0000:00/usb1/1-2/tty/ttyUSB0"}},
			want:   "/dev/ttyUSB0",
		},
		{
			name:   "no identifying env",
			uevent: netlink.UEvent{Env: map[string]string{}},
			want:   "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractDeviceName(tc.uevent); got != tc.want {
				t.Fatalf("extractDeviceName = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsSerialReceiver(t *testing.T) {
	tests := []struct {
		device string
		want   bool
	}{
		{"/dev/ttyUSB0", true},
		{"/dev/ttyACM2", true},
		{"/dev/ttyS0", false},
		{"/dev/sda1", false},
		{"ttyUSB3", true},
	}

	for _, tc := range tests {
		if got := isSerialReceiver(tc.device); got != tc.want {
			t.Errorf("isSerialReceiver(%q) = %v, want %v", tc.device, got, tc.want)
		}
	}
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w := New(nil, nil)
	if w.Running() {
		t.Fatal("watcher should not be running before Start")
	}
	// Stop on an unstarted watcher must be a no-op.
	w.Stop()
}
