package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/go_weather/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ClientTypeOpenMeteo = "openmeteo"
	ClientTypeMemory    = "memory"

	DefaultHourlyParameters = "temperature_2m,windspeed_10m,relative_humidity_2m,precipitation"
)

type Config struct {
	Server  ServerConfig
	Data    DataConfig
	Weather WeatherConfig
	Misc    MiscConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutDownTimeout    time.Duration
	RequestTimeout     time.Duration // 0 disables the per-request deadline
	CORSAllowedOrigins string
}

type DataConfig struct {
	FilePath        string
	PersistInterval time.Duration
	WatchEnabled    bool
}

type WeatherConfig struct {
	ClientType              string
	BaseURL                 string
	Timezone                string
	RefreshEnabled          bool
	RefreshInterval         time.Duration
	UpstreamTimeout         time.Duration // 0 keeps the transport default
	DefaultHourlyParameters string
}

type MiscConfig struct {
	GinMode  string
	LogLevel string
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads config.yaml (if any), .env and environment variables.
// Environment variables use the GO_WEATHER_ prefix, e.g. GO_WEATHER_DATA_FILE_PATH.
// PORT and HOST are honoured without prefix.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.WithComponent("config").Debugf("no .env file loaded: %v", err)
	}

	confPath := getEnvOrDefault("GO_WEATHER_CONFIG_PATH", "./config")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(confPath)

	setDefaults()

	viper.SetEnvPrefix("GO_WEATHER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
		logger.WithComponent("config").Infof("no config file found in %s, using defaults and env vars", confPath)
	}

	port, err := getEnvOrViperPort("PORT", "server.port")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnvOrDefault("HOST", viper.GetString("server.host")),
			Port:               port,
			ReadTimeout:        viper.GetDuration("server.read_timeout"),
			WriteTimeout:       viper.GetDuration("server.write_timeout"),
			IdleTimeout:        viper.GetDuration("server.idle_timeout"),
			ShutDownTimeout:    viper.GetDuration("server.shutdown_timeout"),
			RequestTimeout:     viper.GetDuration("server.request_timeout"),
			CORSAllowedOrigins: viper.GetString("server.cors_allowed_origins"),
		},
		Data: DataConfig{
			FilePath:        viper.GetString("data.file_path"),
			PersistInterval: viper.GetDuration("data.persist_interval"),
			WatchEnabled:    viper.GetBool("data.watch_enabled"),
		},
		Weather: WeatherConfig{
			ClientType:              strings.ToLower(viper.GetString("weather.client_type")),
			BaseURL:                 viper.GetString("weather.base_url"),
			Timezone:                viper.GetString("weather.timezone"),
			RefreshEnabled:          viper.GetBool("weather.refresh_enabled"),
			RefreshInterval:         viper.GetDuration("weather.refresh_interval"),
			UpstreamTimeout:         viper.GetDuration("weather.upstream_timeout"),
			DefaultHourlyParameters: viper.GetString("weather.default_hourly_parameters"),
		},
		Misc: MiscConfig{
			GinMode:  viper.GetString("misc.gin_mode"),
			LogLevel: viper.GetString("misc.log_level"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := ensureDataFile(cfg.Data.FilePath); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.idle_timeout", 120*time.Second)
	viper.SetDefault("server.shutdown_timeout", 5*time.Second)
	viper.SetDefault("server.request_timeout", 0)
	viper.SetDefault("server.cors_allowed_origins", "*")

	viper.SetDefault("data.file_path", "./database.json")
	viper.SetDefault("data.persist_interval", 5*time.Second)
	viper.SetDefault("data.watch_enabled", true)

	viper.SetDefault("weather.client_type", ClientTypeOpenMeteo)
	viper.SetDefault("weather.base_url", "https://api.open-meteo.com/v1/forecast")
	viper.SetDefault("weather.timezone", "Europe/Moscow")
	viper.SetDefault("weather.refresh_enabled", true)
	viper.SetDefault("weather.refresh_interval", 900*time.Second)
	viper.SetDefault("weather.upstream_timeout", 0)
	viper.SetDefault("weather.default_hourly_parameters", DefaultHourlyParameters)

	viper.SetDefault("misc.gin_mode", "release")
	viper.SetDefault("misc.log_level", "info")
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return errors.New("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return errors.New("server write timeout must be positive")
	}
	if c.Server.IdleTimeout <= 0 {
		return errors.New("server idle timeout must be positive")
	}
	if c.Server.ShutDownTimeout <= 0 {
		return errors.New("server shutdown timeout must be positive")
	}
	if c.Server.RequestTimeout < 0 {
		return errors.New("server request timeout cannot be negative")
	}

	if strings.TrimSpace(c.Data.FilePath) == "" {
		return errors.New("data file path is required")
	}
	if c.Data.PersistInterval <= 0 {
		return errors.New("data persist interval must be positive")
	}

	switch c.Weather.ClientType {
	case ClientTypeOpenMeteo:
		u, err := url.Parse(c.Weather.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid weather base url: %q", c.Weather.BaseURL)
		}
	case ClientTypeMemory:
	default:
		return fmt.Errorf("unknown weather client type: %s (supported: %s, %s)", c.Weather.ClientType, ClientTypeOpenMeteo, ClientTypeMemory)
	}
	if c.Weather.Timezone != "" && c.Weather.Timezone != "auto" {
		if _, err := time.LoadLocation(c.Weather.Timezone); err != nil {
			return fmt.Errorf("invalid weather timezone %q: %w", c.Weather.Timezone, err)
		}
	}
	if c.Weather.RefreshEnabled && c.Weather.RefreshInterval <= 0 {
		return errors.New("weather refresh interval must be positive")
	}
	if c.Weather.UpstreamTimeout < 0 {
		return errors.New("weather upstream timeout cannot be negative")
	}

	switch c.Misc.GinMode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("invalid gin mode: %s", c.Misc.GinMode)
	}

	return nil
}

// ensureDataFile creates the data file with an empty document if it does not exist.
func ensureDataFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat data file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		return fmt.Errorf("create data file: %w", err)
	}
	logger.WithComponent("config").Infof("created empty data file at %s", path)
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvOrViperPort(envKey, viperKey string) (int, error) {
	if v := os.Getenv(envKey); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", envKey, err)
		}
		return port, nil
	}
	return viper.GetInt(viperKey), nil
}
