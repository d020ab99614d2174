package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"romshelf/internal/client"
	"romshelf/internal/config"
)

type globalFlags struct {
	config string
	server string
	token  string
	json   bool
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) serverURL() (string, error) {
	if server := strings.TrimSpace(c.flags.server); server != "" {
		return server, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.Paths.APIBind, nil
}

func (c *commandContext) apiToken() string {
	if token := strings.TrimSpace(c.flags.token); token != "" {
		return token
	}
	return strings.TrimSpace(os.Getenv("ROMSHELF_TOKEN"))
}

func (c *commandContext) apiClient() (*client.Client, error) {
	server, err := c.serverURL()
	if err != nil {
		return nil, err
	}
	return client.New(server, client.WithToken(c.apiToken()))
}

func (c *commandContext) jsonOutput() bool {
	return c.flags.json
}

// wrapRequestError points at the daemon when it cannot be reached.
func wrapRequestError(err error, server string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to romshelfd at %s: connection refused; start it with `romshelf serve`", server)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
