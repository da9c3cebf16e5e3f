package config

const (
	defaultLogDir           = "~/.local/share/hlspack/logs"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultHWAccel          = "auto"
	defaultPreset           = "fast"
	defaultSegmentSeconds   = 10
	defaultAudioBitrateKbps = 128
	defaultWorkers          = 1
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Encoding: Encoding{
			HWAccel:          defaultHWAccel,
			Preset:           defaultPreset,
			SegmentSeconds:   defaultSegmentSeconds,
			AudioBitrateKbps: defaultAudioBitrateKbps,
			Workers:          defaultWorkers,
		},
		Cleanup: Cleanup{
			RemoveIntermediates: false,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
