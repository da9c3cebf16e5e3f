package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEncoding()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEncoding() {
	c.Encoding.HWAccel = strings.ToLower(strings.TrimSpace(c.Encoding.HWAccel))
	if c.Encoding.HWAccel == "" {
		c.Encoding.HWAccel = defaultHWAccel
	}
	c.Encoding.Preset = strings.TrimSpace(c.Encoding.Preset)
	if c.Encoding.Preset == "" {
		c.Encoding.Preset = defaultPreset
	}
	if c.Encoding.SegmentSeconds == 0 {
		c.Encoding.SegmentSeconds = defaultSegmentSeconds
	}
	if c.Encoding.AudioBitrateKbps == 0 {
		c.Encoding.AudioBitrateKbps = defaultAudioBitrateKbps
	}
	if c.Encoding.Workers == 0 {
		c.Encoding.Workers = defaultWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
