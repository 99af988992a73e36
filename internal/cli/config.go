package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	applog "github.com/mesh-intelligence/booklib/internal/log"
	"github.com/mesh-intelligence/booklib/internal/paths"
)

// Config keys.
const (
	cfgKeyDB        = "db"
	cfgKeyLogLevel  = "log.level"
	cfgKeyLogFormat = "log.format"
	cfgKeyLogFile   = "log.file"
)

// configFile holds the structure written to config.yaml by init.
type configFile struct {
	DB  string    `yaml:"db,omitempty"`
	Log logConfig `yaml:"log"`
}

type logConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// loadConfig reads config.yaml from configDir. A missing file is not an
// error. BOOKLIB_LOG_* variables override the log keys.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetDefault(cfgKeyLogFormat, "console")
	v.SetConfigName(strings.TrimSuffix(paths.ConfigFileName, ".yaml"))
	v.SetConfigType(paths.DefaultConfigType)
	v.AddConfigPath(configDir)

	for key, env := range map[string]string{
		cfgKeyLogLevel:  applog.EnvLevel,
		cfgKeyLogFormat: applog.EnvFormat,
		cfgKeyLogFile:   applog.EnvFile,
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. It reports whether a file was written.
func writeConfigIfMissing(path, db string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	cfg := configFile{
		DB:  db,
		Log: logConfig{Level: "warn", Format: "console"},
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# booklib configuration\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
