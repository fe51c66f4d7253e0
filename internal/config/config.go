package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/moffa90/go-r503/protocol"
)

// SerialConfig describes the UART link to the module.
type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

// SensorConfig holds the module address and handshake settings.
type SensorConfig struct {
	Address        uint32 `mapstructure:"address"`
	Password       uint32 `mapstructure:"password"`
	VerifyPassword bool   `mapstructure:"verifyPassword"`
}

// PresenceConfig selects the GPIO wired to the module's WAKEUP output.
type PresenceConfig struct {
	Enable bool   `mapstructure:"enable"`
	Pin    string `mapstructure:"pin"`
}

// EnrollConfig tunes the enrollment and identification workflows.
type EnrollConfig struct {
	Samples      int           `mapstructure:"samples"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
	MaxPolls     int           `mapstructure:"maxPolls"`
}

// LumberjackConfig configures log file rotation.
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig sets the log level and outputs.
// An empty File.Filename logs to stderr only.
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Addr   string `mapstructure:"addr"`
	Path   string `mapstructure:"path"`
}

// Config is the top-level configuration.
type Config struct {
	Serial   SerialConfig   `mapstructure:"serial"`
	Sensor   SensorConfig   `mapstructure:"sensor"`
	Presence PresenceConfig `mapstructure:"presence"`
	Enroll   EnrollConfig   `mapstructure:"enroll"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// Load reads configuration from a YAML/TOML/JSON file and the environment.
// When path is empty R503_CONFIG is consulted, then configs/r503.yaml.
// A missing default file is not an error; defaults and environment apply.
//
// Every key can be overridden as R503_<SECTION>_<KEY>, e.g. R503_SERIAL_PORT.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("R503")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("r503")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", "/dev/ttyAMA0")
	v.SetDefault("serial.baud", 57600)
	v.SetDefault("serial.readTimeout", "1s")

	v.SetDefault("sensor.address", uint32(protocol.DefaultAddress))
	v.SetDefault("sensor.password", uint32(protocol.DefaultPassword))
	v.SetDefault("sensor.verifyPassword", true)

	v.SetDefault("presence.enable", false)
	v.SetDefault("presence.pin", "GPIO17")

	v.SetDefault("enroll.samples", 5)
	v.SetDefault("enroll.pollInterval", "100ms")
	v.SetDefault("enroll.maxPolls", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 28)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", false)
	v.SetDefault("metrics.addr", ":9503")
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Serial.Port == "" {
		errs = append(errs, errors.New("serial.port is required"))
	}
	if c.Serial.Baud%9600 != 0 || c.Serial.Baud < 9600 || c.Serial.Baud > 12*9600 {
		errs = append(errs, fmt.Errorf("serial.baud %d: must be a multiple of 9600 up to 115200", c.Serial.Baud))
	}
	if c.Serial.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("serial.readTimeout %s: must be positive", c.Serial.ReadTimeout))
	}
	if c.Presence.Enable && c.Presence.Pin == "" {
		errs = append(errs, errors.New("presence.pin is required when presence is enabled"))
	}
	if c.Enroll.Samples < protocol.MinBuffer || c.Enroll.Samples > protocol.MaxBuffer {
		errs = append(errs, fmt.Errorf("enroll.samples %d: must be %d..%d", c.Enroll.Samples, protocol.MinBuffer, protocol.MaxBuffer))
	}
	if c.Enroll.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("enroll.pollInterval %s: must not be negative", c.Enroll.PollInterval))
	}
	if c.Enroll.MaxPolls < 0 {
		errs = append(errs, fmt.Errorf("enroll.maxPolls %d: must not be negative", c.Enroll.MaxPolls))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q: must be json or console", c.Logging.Format))
	}
	if c.Metrics.Enable && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path %q: must start with /", c.Metrics.Path))
	}
	return errors.Join(errs...)
}
