// Package bridge converts vendor/device GPS formats into GPX feature layers
// by delegating translation to the external gpsbabel executable.
//
// A Bridge owns one conversion at a time: it validates the request, decides
// between piping the source through the converter's standard input and
// handing the converter the path directly, captures the converter's exit
// status and diagnostics, retries once in direct mode when the converter
// refuses piped input for the format, and exposes the converted artifact as
// filtered, non-empty feature layers. The temporary artifact lives for the
// duration of one Open/Close cycle and is always removed.
//
// Sources under /dev/, usb: addresses, and COM ports are never opened by the
// bridge itself; the converter talks to the device directly.
package bridge
