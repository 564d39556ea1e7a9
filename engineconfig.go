package valuebridge

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// LoadConfig reads a TOML config file. Keys missing from the file keep
// their DefaultConfig values; unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "parse error in %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	return cfg, nil
}

// ConfigureLogging installs a production logger at cfg.LogLevel as the
// package logger.
func ConfigureLogging(cfg Config) error {
	l, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}
