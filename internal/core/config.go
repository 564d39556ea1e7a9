package core

// Config holds runtime configuration for a bridge and its engine adapter.
type Config struct {
	MemoryLimitMB      int    `toml:"memory_limit_mb"`      // QuickJS and V8 heap limit, 0 = engine default
	MaxStackDepth      int    `toml:"max_stack_depth"`      // otto and goja call stack limit, 0 = unlimited
	LegacyStringDecode bool   `toml:"legacy_string_decode"` // drop undecodable strings silently instead of failing
	LogLevel           string `toml:"log_level"`            // zap level name for the package logger
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		MemoryLimitMB: 64,
		LogLevel:      "info",
	}
}
