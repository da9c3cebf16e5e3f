// Package config loads, normalizes, and validates hlspack configuration.
//
// Configuration lives in a TOML file (~/.config/hlspack/config.toml by
// default, or ./hlspack.toml in the working directory). Load applies
// defaults first, then overlays the file, then normalizes paths and
// validates the result so downstream components never see an unusable
// config value.
package config
