package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/elee1766/lumen/src/config"
)

// ConfigCmd inspects and creates configuration
type ConfigCmd struct {
	Show ConfigShowCmd `cmd:"" default:"1" help:"Print the effective configuration"`
	Init ConfigInitCmd `cmd:"" help:"Write a default config file"`
	Path ConfigPathCmd `cmd:"" help:"Print config, storage and log locations"`
}

// ConfigShowCmd prints the effective configuration
type ConfigShowCmd struct {
	Secrets bool `help:"Include the API key"`
}

// Run executes the config show command
func (c *ConfigShowCmd) Run(cli *CLI) error {
	mgr, err := loadConfig(cli)
	if err != nil {
		return err
	}
	data, err := mgr.ExportConfig(c.Secrets)
	if err != nil {
		return err
	}
	fmt.Println(string(data))

	info := mgr.GetInfo()
	for _, w := range info.Warnings {
		fmt.Fprintln(os.Stderr, "warning: "+w)
	}
	return nil
}

// ConfigInitCmd writes the default configuration
type ConfigInitCmd struct {
	Path  string `arg:"" optional:"" type:"path" help:"Destination, .toml or .json"`
	Force bool   `help:"Overwrite an existing file"`
}

// Run executes the config init command
func (c *ConfigInitCmd) Run(_ context.Context) error {
	path := c.Path
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.toml")
	}
	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("invalid destination: %s exists, use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	mgr, err := config.NewManagerWithConfig(config.DefaultConfig())
	if err != nil {
		return err
	}
	if err := mgr.SaveTo(path); err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// ConfigPathCmd prints locations
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(cli *CLI) error {
	mgr, err := loadConfig(cli)
	if err != nil {
		return err
	}
	cfg := mgr.GetConfig()
	active := mgr.GetConfigPath()
	if active == "" {
		active = "(none, using defaults)"
	}
	fmt.Printf("config:  %s\n", active)
	fmt.Printf("storage: %s (%s)\n", cfg.StoragePath(), cfg.Storage.Backend)
	fmt.Printf("logs:    %s\n", cfg.LogPath())
	fmt.Printf("images:  %s\n", config.DefaultImageDir())
	if cfg.API.APIKey != "" {
		fmt.Printf("api key: %s\n", maskAPIKey(cfg.API.APIKey))
	}
	return nil
}
