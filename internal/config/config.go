package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	ReadBufferMax int           `mapstructure:"read_buffer_max"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type SensorsConfig struct {
	URL      string        `mapstructure:"url"`
	Attempts int           `mapstructure:"attempts"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// HeuristicPrefix is the device path whose unnamed fans/temps are classified by type.
	HeuristicPrefix string `mapstructure:"heuristic_prefix"`
}

type WeatherConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Latitude  string        `mapstructure:"latitude"`
	Longitude string        `mapstructure:"longitude"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type PingConfig struct {
	Target     string        `mapstructure:"target"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Privileged bool          `mapstructure:"privileged"`
}

type IntervalsConfig struct {
	Tick      time.Duration `mapstructure:"tick"`
	Hardware  time.Duration `mapstructure:"hardware"`
	Processes time.Duration `mapstructure:"processes"`
	Weather   time.Duration `mapstructure:"weather"`
	Ping      time.Duration `mapstructure:"ping"`
}

type AlertsConfig struct {
	CPUTemp  float64 `mapstructure:"cpu_temp"`
	GPUTemp  float64 `mapstructure:"gpu_temp"`
	CPULoad  float64 `mapstructure:"cpu_load"`
	GPULoad  float64 `mapstructure:"gpu_load"`
	VRAMLoad float64 `mapstructure:"vram_load"`
	RAMUsed  float64 `mapstructure:"ram_used_gb"`
}

type GateConfig struct {
	Heartbeat time.Duration `mapstructure:"heartbeat"`
}

type HealthConfig struct {
	Addr string `mapstructure:"addr"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Sensors   SensorsConfig   `mapstructure:"sensors"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	Ping      PingConfig      `mapstructure:"ping"`
	Intervals IntervalsConfig `mapstructure:"intervals"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Gate      GateConfig      `mapstructure:"gate"`
	Health    HealthConfig    `mapstructure:"health"`
	Workers   int             `mapstructure:"workers"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_buffer_max", 4096)
	v.SetDefault("server.write_timeout", 500*time.Millisecond)

	v.SetDefault("sensors.url", "http://localhost:8085/data.json")
	v.SetDefault("sensors.attempts", 3)
	v.SetDefault("sensors.timeout", 2*time.Second)
	v.SetDefault("sensors.heuristic_prefix", "/lpc/it8688e/0")

	v.SetDefault("weather.enabled", true)
	v.SetDefault("weather.latitude", "55.7558")
	v.SetDefault("weather.longitude", "37.6173")
	v.SetDefault("weather.timeout", 10*time.Second)

	v.SetDefault("ping.target", "8.8.8.8")
	v.SetDefault("ping.timeout", 2*time.Second)
	v.SetDefault("ping.privileged", false)

	v.SetDefault("intervals.tick", 100*time.Millisecond)
	v.SetDefault("intervals.hardware", time.Second)
	v.SetDefault("intervals.processes", 2500*time.Millisecond)
	v.SetDefault("intervals.weather", 10*time.Minute)
	v.SetDefault("intervals.ping", 5*time.Second)

	v.SetDefault("alerts.cpu_temp", 87)
	v.SetDefault("alerts.gpu_temp", 80)
	v.SetDefault("alerts.cpu_load", 95)
	v.SetDefault("alerts.gpu_load", 95)
	v.SetDefault("alerts.vram_load", 95)
	v.SetDefault("alerts.ram_used_gb", 28)

	v.SetDefault("gate.heartbeat", 2*time.Second)
	v.SetDefault("health.addr", "127.0.0.1:8086")
	v.SetDefault("workers", 6)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// LoadConfig reads path if it exists; a missing file leaves defaults plus
// NOCTURNE_* environment overrides in effect.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// env overrides: NOCTURNE_SERVER_PORT, NOCTURNE_SENSORS_URL etc.
	v.SetEnvPrefix("nocturne")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !isNotExist(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.sanitize()

	return &cfg, nil
}

// quick sanity checks
func (c *Config) sanitize() {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		c.Server.Port = 8090
	}
	if c.Server.ReadBufferMax <= 0 {
		c.Server.ReadBufferMax = 4096
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 500 * time.Millisecond
	}
	if c.Sensors.Attempts < 1 {
		c.Sensors.Attempts = 1
	}
	if c.Intervals.Tick <= 0 {
		c.Intervals.Tick = 100 * time.Millisecond
	}
	if c.Workers < 1 {
		c.Workers = 4
	}
	if c.Gate.Heartbeat <= 0 {
		c.Gate.Heartbeat = 2 * time.Second
	}
}

func isNotExist(err error, notFound *viper.ConfigFileNotFoundError) bool {
	if errors.As(err, notFound) {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}
