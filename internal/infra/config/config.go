package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Identity  IdentitySettings  `mapstructure:"identity"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Bootstrap BootstrapSettings `mapstructure:"bootstrap"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// IdentitySettings points at the hosted identity service the gate
// delegates authentication to.
type IdentitySettings struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryMaxWait   time.Duration `mapstructure:"retry_max_wait"`
}

type PostgresSettings struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisSettings configures the durable flag store connection.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	FlagPrefix string `mapstructure:"flag_prefix"`
}

// BootstrapSettings tunes the state machine itself.
type BootstrapSettings struct {
	// InstallID scopes durable flags to one device install. Generated and
	// logged when empty.
	InstallID string `mapstructure:"install_id"`
	// InitialLink is the cold-start URL, when the process was launched by
	// a deep link. Empty is the common case.
	InitialLink string `mapstructure:"initial_link"`
	// CallTimeout bounds every external lookup the machine issues; a
	// timeout is handled like any other failure so no readiness flag can
	// stay unresolved forever.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("GATE")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"identity.base_url",
		"identity.api_key",
		"identity.request_timeout",
		"identity.retry_max_wait",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.flag_prefix",
		"bootstrap.install_id",
		"bootstrap.initial_link",
		"bootstrap.call_timeout",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gymtrack-gate")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "127.0.0.1")
	v.SetDefault("app.port", 8090)

	v.SetDefault("identity.base_url", "http://localhost:9999/auth/v1")
	v.SetDefault("identity.request_timeout", 5*time.Second)
	v.SetDefault("identity.retry_max_wait", 4*time.Second)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "gymtrack")
	v.SetDefault("postgres.password", "gymtrack_password")
	v.SetDefault("postgres.database", "gymtrack")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 5)
	v.SetDefault("postgres.min_conns", 1)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.flag_prefix", "gymtrack:flags")

	v.SetDefault("bootstrap.call_timeout", 6*time.Second)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}
