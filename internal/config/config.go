package config

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"jurnalguru/internal/utils"

	_ "embed"
)

var configOnce sync.Once

var globalConfig *Config

var customConfigPath string // Custom config path set via --config flag

//go:embed config.sample.yaml
var sampleConfig []byte

const (
	CONFIG_DIR_PATH  = utils.AppName
	CONFIG_FILE_PATH = "config.yaml"
	CONFIG_DIR_PERM  = 0755
	CONFIG_FILE_PERM = 0644

	// EnvPrefix prefixes environment overrides: drive.client_id is read
	// from JURNALGURU_DRIVE_CLIENT_ID.
	EnvPrefix = "JURNALGURU"
)

// Config represents the application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Drive    DriveConfig    `mapstructure:"drive" yaml:"drive"`
	Sync     SyncConfig     `mapstructure:"sync" yaml:"sync"`
	Backup   BackupConfig   `mapstructure:"backup" yaml:"backup"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DriveConfig names the backup folder and file and holds the OAuth client.
type DriveConfig struct {
	FolderName   string        `mapstructure:"folder_name" yaml:"folder_name" validate:"required"`
	SyncFile     string        `mapstructure:"sync_file" yaml:"sync_file" validate:"required,endswith=.json"`
	Endpoint     string        `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	ClientID     string        `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string        `mapstructure:"client_secret" yaml:"client_secret"`
	AuthURL      string        `mapstructure:"auth_url" yaml:"auth_url" validate:"omitempty,url"`
	TokenURL     string        `mapstructure:"token_url" yaml:"token_url" validate:"omitempty,url"`
	RedirectURL  string        `mapstructure:"redirect_url" yaml:"redirect_url" validate:"omitempty,url"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
}

type SyncConfig struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
	QuietPeriod    time.Duration `mapstructure:"quiet_period" yaml:"quiet_period" validate:"gt=0"`
	SuccessDisplay time.Duration `mapstructure:"success_display" yaml:"success_display" validate:"gt=0"`
	WatchDatabase  bool          `mapstructure:"watch_database" yaml:"watch_database"`
}

type BackupConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	Frequency string `mapstructure:"frequency" yaml:"frequency" validate:"oneof=off daily weekly"`
}

type LogConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days" validate:"gte=0"`
	Verbose    bool   `mapstructure:"verbose" yaml:"verbose"`
}

func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Drive.ClientSecret != "" && c.Drive.ClientID == "" {
		return fmt.Errorf("drive.client_secret is set but drive.client_id is empty")
	}
	return nil
}

// DatabasePath returns the expanded database path, empty for the default.
func (c *Config) DatabasePath() string {
	p, err := utils.ExpandPath(c.Database.Path)
	if err != nil {
		return c.Database.Path
	}
	return p
}

// BackupDir returns the expanded local backup directory.
func (c *Config) BackupDir() string {
	p, err := utils.ExpandPath(c.Backup.Directory)
	if err != nil {
		return c.Backup.Directory
	}
	return p
}

// SetCustomConfigPath sets a custom config path to use instead of the default user config directory.
// If path is a directory, it looks for "config.yaml" inside it.
// This must be called before GetConfig() is called for the first time.
func SetCustomConfigPath(path string) {
	if path == "" || path == "." {
		customConfigPath = filepath.Join(".", CONFIG_DIR_PATH, CONFIG_FILE_PATH)
		return
	}
	path, _ = utils.ExpandPath(path)
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		customConfigPath = filepath.Join(path, CONFIG_FILE_PATH)
	} else {
		customConfigPath = path
	}
}

func GetConfig() *Config {
	configOnce.Do(func() {
		configPath, err := GetConfigPath()
		if err != nil {
			log.Fatalf("Config path couldn't be retrieved: %v", err)
		}
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := createConfigFromSample(configPath); err != nil {
				utils.Warnf("Using built-in defaults: %v", err)
			}
		}
		config, err := Load(configPath)
		if err != nil {
			log.Fatal(utils.ErrInvalidConfig(configPath, err.Error()))
		}
		globalConfig = config
	})
	return globalConfig
}

func GetConfigPath() (string, error) {
	if customConfigPath != "" {
		return customConfigPath, nil
	}

	dir, err := utils.AppDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(dir, CONFIG_FILE_PATH), nil
}

func createConfigFromSample(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), CONFIG_DIR_PERM); err != nil {
		return err
	}
	if err := os.WriteFile(configPath, sampleConfig, CONFIG_FILE_PERM); err != nil {
		return err
	}
	utils.Infof("Created config at %s", configPath)
	return nil
}

// Load reads the config at configPath over the built-in sample, applies
// .env files and JURNALGURU_* environment overrides, and validates the
// result. A missing file leaves the sample values in place.
func Load(configPath string) (*Config, error) {
	loadDotEnv(filepath.Dir(configPath))

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(sampleConfig)); err != nil {
		return nil, fmt.Errorf("built-in sample config is invalid: %w", err)
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("invalid YAML in config file %s: %w", configPath, err)
		}
	case os.IsNotExist(err):
		utils.Debugf("No config at %s, using defaults", configPath)
	default:
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv loads .env from the config directory, then the working
// directory. Variables already set win.
func loadDotEnv(configDir string) {
	for _, p := range []string{filepath.Join(configDir, ".env"), ".env"} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			utils.Warnf("Failed to load %s: %v", p, err)
		}
	}
}

// SampleConfig returns the built-in sample configuration.
func SampleConfig() []byte {
	return append([]byte(nil), sampleConfig...)
}
