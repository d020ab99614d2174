// Package config loads, normalizes, and validates romshelf configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ROMSHELF_JWT_SECRET. The Config type centralizes every knob the daemon and
// CLI need, so library, resources, and database locations are discovered in
// one pass.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
