// Command gpsbridge converts vendor GPS data through an external gpsbabel
// process and presents the result as feature layers.
package main
