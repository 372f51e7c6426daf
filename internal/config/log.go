// Package config holds the server binary's CLI configuration scaffolding:
// logging flags and the sample-config writer. Command-specific flags live
// next to their respective main packages.
package config

// LogConfig groups the server binary's logging-related flags. The client
// binary takes its log level from LIBUSB_PROXY_DEBUG instead.
type LogConfig struct {
	Level   string `help:"Log level: trace, debug, info, warn, error." default:"info" enum:"trace,debug,info,warn,error" env:"LIBUSB_PROXY_LOG_LEVEL"`
	File    string `help:"Also write logs to this file; console logs then all go to stderr." env:"LIBUSB_PROXY_LOG_FILE"`
	RawFile string `help:"Write a hex dump of every wire frame to this file." env:"LIBUSB_PROXY_RAW_LOG_FILE"`
}
