// Initializing common application configuration
package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Remote      RemoteConfig      `mapstructure:"remote"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Scanner     ScannerConfig     `mapstructure:"scanner"`
	Fundraising FundraisingConfig `mapstructure:"fundraising"`
}

type ServerConfig struct {
	AppVersion  string        `mapstructure:"app_version"`
	Host        string        `mapstructure:"host"`
	Port        string        `mapstructure:"port"`
	Timeout     time.Duration `mapstructure:"timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	Mode        string        `mapstructure:"mode"`
}

// StorageConfig selects the local persistence chain. Redis is optional; the
// file snapshot is always kept as the fallback tier.
type StorageConfig struct {
	Dir       string `mapstructure:"dir"`
	UseRedis  bool   `mapstructure:"use_redis"`
	Namespace string `mapstructure:"namespace"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RemoteConfig points at the remote ticket store. An empty base url leaves
// the service in offline-only mode.
type RemoteConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	ServiceKey   string        `mapstructure:"service_key"`
	TicketsTable string        `mapstructure:"tickets_table"`
	ScansTable   string        `mapstructure:"scans_table"`
	Timeout      time.Duration `mapstructure:"timeout"`
	EventID      string        `mapstructure:"event_id"`
}

type SyncConfig struct {
	AutoSync     bool          `mapstructure:"auto_sync"`
	Interval     time.Duration `mapstructure:"interval"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type ScannerConfig struct {
	Debounce       time.Duration `mapstructure:"debounce"`
	AcceptCooldown time.Duration `mapstructure:"accept_cooldown"`
	RejectCooldown time.Duration `mapstructure:"reject_cooldown"`
	Location       string        `mapstructure:"location"`
}

type FundraisingConfig struct {
	TargetAmount float64 `mapstructure:"target_amount"`
}

func LoadConfig() (*viper.Viper, error) {

	viperInstance := viper.New()

	viperInstance.AddConfigPath("./config")
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	err := viperInstance.ReadInConfig()

	if err != nil {
		return nil, err
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		return nil, err
	}

	// Secrets come from the environment, never from the yaml file.
	if key := os.Getenv("REMOTE_SERVICE_KEY"); key != "" {
		c.Remote.ServiceKey = key
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		c.Redis.Password = pass
	}
	return &c, nil
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
