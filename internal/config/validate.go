package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEncoding() error {
	switch c.Encoding.HWAccel {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("encoding.hwaccel must be one of auto, on, off (got %q)", c.Encoding.HWAccel)
	}
	if c.Encoding.SegmentSeconds < 1 {
		return errors.New("encoding.segment_seconds must be at least 1")
	}
	if c.Encoding.AudioBitrateKbps < 8 {
		return errors.New("encoding.audio_bitrate_kbps must be at least 8")
	}
	if c.Encoding.Workers < 1 || c.Encoding.Workers > 16 {
		return errors.New("encoding.workers must be between 1 and 16")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
