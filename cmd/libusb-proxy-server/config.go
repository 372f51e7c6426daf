package main

import (
	"fmt"

	"github.com/jprendes/libusb-proxy/internal/config"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration file template for the serve command."`
}

// ConfigInit writes a sample config file for Serve's flags.
type ConfigInit struct {
	Format string `help:"Output format." enum:"json,yaml,toml" default:"json"`
	Output string `help:"Destination file path; defaults to serve.<format> in the working directory."`
	Force  bool   `help:"Overwrite the destination if it already exists."`
}

func (c *ConfigInit) Run() error {
	dest := c.Output
	if dest == "" {
		dest = "serve." + config.NormalizeFormat(c.Format)
	}
	if err := config.WriteSample(&Serve{}, c.Format, dest, c.Force); err != nil {
		return fmt.Errorf("writing sample config: %w", err)
	}
	return nil
}
