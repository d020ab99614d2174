package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"scan.concurrency":    c.Scan.Concurrency,
		"artwork.small_width": c.Artwork.SmallWidth,
	})
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ResourcesDir) == "" {
		return errors.New("paths.resources_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		return errors.New("paths.database_path must be set")
	}
	return nil
}

func (c *Config) validateAuth() error {
	if c.Auth.JWTSecret == "" && c.Auth.DefaultUserID <= 0 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/romshelf/config.toml"
		}
		return fmt.Errorf("auth.default_user_id must be positive when auth.jwt_secret is empty. Set ROMSHELF_JWT_SECRET or edit %s (create with 'romshelf config init')", defaultPath)
	}
	if c.Auth.DefaultUserID < 0 {
		return errors.New("auth.default_user_id must be >= 0")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		return errors.New("auth.jwt_secret must be at least 16 characters")
	}
	return nil
}

func (c *Config) validateArchive() error {
	switch c.Archive.Compression {
	case "deflate", "store":
	default:
		return fmt.Errorf("archive.compression must be \"deflate\" or \"store\", got %q", c.Archive.Compression)
	}
	if c.Archive.ChunkSizeKiB <= 0 {
		return errors.New("archive.chunk_size_kib must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
