package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Every field can be overridden through environment variables (see ApplyEnv);
// a missing Castopod section simply disables uploads.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Castopod  CastopodConfig  `toml:"castopod"`
	Scheduler SchedulerConfig `toml:"scheduler"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PipelineConfig describes the external pipeline subprocess and the download pass.
type PipelineConfig struct {
	Command           string `toml:"command"`
	Workdir           string `toml:"workdir"`
	LogPath           string `toml:"log_path"`
	DownloadDir       string `toml:"download_dir"`
	AudioFormat       string `toml:"audio_format"`
	SkipConfiguration bool   `toml:"skip_configuration"`
	APIBaseURL        string `toml:"api_base_url"`
}

// CastopodConfig contains podcast host API credentials and publication settings.
type CastopodConfig struct {
	BaseURL           string `toml:"base_url"`
	Username          string `toml:"username"`
	Password          string `toml:"password"`
	UserID            int    `toml:"user_id"`
	Timezone          string `toml:"timezone"`
	PublicationMethod string `toml:"publication_method"`
	EpisodeType       string `toml:"episode_type"`
	VerifySSL         bool   `toml:"verify_ssl"`
}

// SchedulerConfig contains the background loop intervals, in seconds.
type SchedulerConfig struct {
	ScheduleIntervalSeconds int `toml:"schedule_interval_seconds"`
	QueueIntervalSeconds    int `toml:"queue_interval_seconds"`
}

// Enabled reports whether enough Castopod settings are present for uploads.
func (c CastopodConfig) Enabled() bool {
	return c.BaseURL != "" && c.Username != "" && c.Password != "" && c.UserID > 0
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidInput)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnvFile loads a dotenv file if it exists. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from the process environment.
//
// The variable names match the ones the pipeline subprocess receives, so a
// single environment configures both the service and the spawned pipeline.
func (c *Config) ApplyEnv() {
	setString(&c.Pipeline.APIBaseURL, "PODWIRE_API_BASE_URL")
	setString(&c.Pipeline.Command, "PIPELINE_COMMAND")
	setString(&c.Pipeline.Workdir, "PIPELINE_WORKDIR")
	setString(&c.Pipeline.LogPath, "PIPELINE_LOG_PATH")
	setString(&c.Pipeline.DownloadDir, "PIPELINE_DOWNLOAD_DIR")
	setString(&c.Pipeline.AudioFormat, "PIPELINE_AUDIO_FORMAT")
	setBool(&c.Pipeline.SkipConfiguration, "PIPELINE_SKIP_CONFIGURATION")

	setString(&c.Castopod.BaseURL, "CASTOPOD_API_BASE_URL")
	setString(&c.Castopod.Username, "CASTOPOD_API_USERNAME")
	setString(&c.Castopod.Password, "CASTOPOD_API_PASSWORD")
	setInt(&c.Castopod.UserID, "CASTOPOD_API_USER_ID")
	setString(&c.Castopod.Timezone, "CASTOPOD_API_TIMEZONE")
	setString(&c.Castopod.PublicationMethod, "CASTOPOD_API_PUBLICATION_METHOD")
	setString(&c.Castopod.EpisodeType, "CASTOPOD_API_EPISODE_TYPE")
	setBool(&c.Castopod.VerifySSL, "CASTOPOD_API_VERIFY_SSL")

	c.Castopod.BaseURL = strings.TrimRight(c.Castopod.BaseURL, "/")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			*dst = true
		case "0", "false", "no":
			*dst = false
		}
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
