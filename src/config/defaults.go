package config

import "time"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		API: APIConfig{
			Timeout:        Duration{5 * time.Minute},
			ThinkingBudget: 32768,
		},
		Models: ModelsConfig{
			Default:     "gemini-2.5-flash",
			Pro:         "gemini-2.5-pro",
			Title:       "gemini-2.5-flash-lite",
			ImageEdit:   "gemini-2.5-flash-image",
			Image:       "imagen-4.0-generate-001",
			AspectRatio: "1:1",
		},
		Storage: StorageConfig{
			Backend:       "sqlite",
			AutosaveDelay: Duration{250 * time.Millisecond},
		},
		Preview: PreviewConfig{
			Addr: "127.0.0.1:0",
		},
		Location: LocationConfig{
			Mode:      "ip",
			LookupURL: "http://ip-api.com/json/",
			Timeout:   Duration{3 * time.Second},
		},
		Composer: ComposerConfig{
			MaxAttachmentBytes: 20 << 20,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}
