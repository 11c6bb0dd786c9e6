package bridge

import "strings"

// IsSpecialSource reports whether path addresses a device rather than a
// regular file: a device directory entry, a USB bus address, or a serial
// COM port with a positive number. Special sources must not be opened by
// the bridge; the converter communicates with the device itself.
func IsSpecialSource(path string) bool {
	if strings.HasPrefix(path, "/dev/") || strings.HasPrefix(path, "usb:") {
		return true
	}
	if rest, ok := strings.CutPrefix(path, "COM"); ok {
		return leadingInt(rest) > 0
	}
	return false
}

// leadingInt parses the decimal digits at the start of s, ignoring any
// trailing text ("3:baud" parses as 3). Returns 0 when s has no digits.
func leadingInt(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			break
		}
		n = n*10 + int(s[i]-'0')
		if n > 1<<20 {
			break
		}
	}
	return n
}
