package config

const (
	defaultDataDir       = "~/.local/share/greenroom"
	defaultCacheDir      = "~/.cache/greenroom/recordings"
	defaultLogDir        = "~/.local/share/greenroom/logs"
	defaultCacheMaxMiB   = 200
	defaultCacheAgeDays  = 30
	defaultUploadPath    = "/api/recordings"
	defaultRemoteTimeout = 60
	defaultRefreshLeeway = 30
	defaultProbeInterval = 30
	defaultProbeTimeout  = 5
	defaultSyncInterval  = 15
	defaultNtfyTimeout   = 10
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
		},
		Cache: Cache{
			MaxMiB:     defaultCacheMaxMiB,
			MaxAgeDays: defaultCacheAgeDays,
		},
		Remote: Remote{
			UploadPath:     defaultUploadPath,
			RequestTimeout: defaultRemoteTimeout,
		},
		Session: Session{
			RefreshLeeway: defaultRefreshLeeway,
		},
		Connectivity: Connectivity{
			ProbeInterval: defaultProbeInterval,
			ProbeTimeout:  defaultProbeTimeout,
		},
		Engine: Engine{
			SyncInterval: defaultSyncInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
