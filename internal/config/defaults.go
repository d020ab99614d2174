package config

const (
	defaultLibraryDir      = "~/library"
	defaultResourcesDir    = "~/.local/share/romshelf/resources"
	defaultLogDir          = "~/.local/share/romshelf/logs"
	defaultDatabasePath    = "~/.local/share/romshelf/romshelf.db"
	defaultAPIBind         = "127.0.0.1:7490"
	defaultUserID          = 1
	defaultTokenTTLHours   = 24 * 30
	defaultCompression     = "deflate"
	defaultChunkSizeKiB    = 64
	defaultScanConcurrency = 4
	defaultSmallCoverWidth = 264
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir:   defaultLibraryDir,
			ResourcesDir: defaultResourcesDir,
			LogDir:       defaultLogDir,
			DatabasePath: defaultDatabasePath,
			APIBind:      defaultAPIBind,
		},
		Auth: Auth{
			DefaultUserID: defaultUserID,
			TokenTTLHours: defaultTokenTTLHours,
		},
		Archive: Archive{
			Compression:  defaultCompression,
			ChunkSizeKiB: defaultChunkSizeKiB,
		},
		Scan: Scan{
			Concurrency: defaultScanConcurrency,
			Purge:       true,
		},
		Artwork: Artwork{
			SmallWidth: defaultSmallCoverWidth,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
