package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. BMS_MQTT_BROKER.
const EnvPrefix = "BMS"

type Config struct {
	Port      string          `mapstructure:"port"`
	LogLevel  string          `mapstructure:"log_level"`
	DB        DBConfig        `mapstructure:"db"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Hardware  HardwareConfig  `mapstructure:"hardware"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type MQTTConfig struct {
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	QoS            int           `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	QueueSize      int           `mapstructure:"queue_size"`
	Subscriptions  []string      `mapstructure:"subscriptions"`
	Topics         TopicConfig   `mapstructure:"topics"`
}

// TopicConfig names the outbound command topics.
type TopicConfig struct {
	Control        string `mapstructure:"control"`
	ElectronicLoad string `mapstructure:"electronic_load"`
	Status         string `mapstructure:"status"`
}

type HardwareConfig struct {
	URL            string        `mapstructure:"url"`
	Enabled        bool          `mapstructure:"enabled"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type AuthConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type SimulatorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Cells    int           `mapstructure:"cells"`
}

var (
	errEmptyBroker       = errors.New("mqtt.broker must not be empty")
	errNoSubscriptions   = errors.New("mqtt.subscriptions must list at least one topic filter")
	errBadQoS            = errors.New("mqtt.qos must be 0, 1 or 2")
	errEmptyHardwareURL  = errors.New("hardware.url must not be empty when hardware.enabled is true")
	errMissingSigningKey = errors.New("auth.signing_key must be set when auth.enabled is true")
	errSimulatorInterval = errors.New("simulator.interval must be positive when simulator.enabled is true")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db.path", "bms.db")

	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "bms-bridge")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.connect_timeout", 10*time.Second)
	v.SetDefault("mqtt.publish_timeout", 5*time.Second)
	v.SetDefault("mqtt.queue_size", 256)
	v.SetDefault("mqtt.subscriptions", []string{
		"bms/status",
		"bms/control",
		"bms/fet/status",
		"electronic_load/control",
	})
	v.SetDefault("mqtt.topics.control", "bms/control")
	v.SetDefault("mqtt.topics.electronic_load", "electronic_load/control")
	v.SetDefault("mqtt.topics.status", "bms/status")

	v.SetDefault("hardware.url", "http://localhost:8001")
	v.SetDefault("hardware.enabled", true)
	v.SetDefault("hardware.probe_timeout", 5*time.Second)
	v.SetDefault("hardware.request_timeout", 5*time.Second)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("simulator.enabled", false)
	v.SetDefault("simulator.interval", time.Second)
	v.SetDefault("simulator.cells", 4)
}

// Flags registers the command line flags understood by Load.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to config file (default: configs/config.yml)")
	fs.String("port", "", "HTTP listen port")
	fs.String("log_level", "", "log level: debug, info, warn, error")
}

// Load reads .env, the config file, BMS_* environment variables and flags,
// in increasing order of precedence.
func Load(fs *pflag.FlagSet) (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := ""
	if fs != nil {
		path, _ = fs.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if fs != nil {
		for _, name := range []string{"port", "log_level"} {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(name, f); err != nil {
					return nil, fmt.Errorf("bind flag %q: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.MQTT.Broker) == "" {
		return errEmptyBroker
	}
	if len(c.MQTT.Subscriptions) == 0 {
		return errNoSubscriptions
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return errBadQoS
	}
	if c.Hardware.Enabled && strings.TrimSpace(c.Hardware.URL) == "" {
		return errEmptyHardwareURL
	}
	if c.Auth.Enabled && c.Auth.SigningKey == "" {
		return errMissingSigningKey
	}
	if c.Simulator.Enabled && c.Simulator.Interval <= 0 {
		return errSimulatorInterval
	}
	return nil
}
