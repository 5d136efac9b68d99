package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverFixture  = "fixture"
)

var ErrUnknownStoreDriver = errors.New("unknown store driver")

type AppConfig struct {
	API          *APIConfig          `mapstructure:"api"`
	Gin          *GinConfig          `mapstructure:"gin"`
	Postgres     *PostgresConfig     `mapstructure:"postgres"`
	Store        *StoreConfig        `mapstructure:"store"`
	Cache        *CacheConfig        `mapstructure:"cache"`
	Realtime     *RealtimeConfig     `mapstructure:"realtime"`
	Leaderboard  *LeaderboardConfig  `mapstructure:"leaderboard"`
	Gamification *GamificationConfig `mapstructure:"gamification"`
}

type APIConfig struct {
	Environment        string        `mapstructure:"environment"`
	Port               string        `mapstructure:"port"`
	BaseURL            string        `mapstructure:"base_url"`
	AllowedCORSDomains []string      `mapstructure:"allowed_cors_domains"`
	JWTSigningKey      string        `mapstructure:"jwt_signing_key"`
	TokenTTL           time.Duration `mapstructure:"token_ttl"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"ssl_mode"`
	Migrate  bool   `mapstructure:"migrate"`
}

// DSN renders the connection string understood by both gorm and pgx.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode,
	)
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type CacheConfig struct {
	DefaultStaleTime time.Duration            `mapstructure:"default_stale_time"`
	StaleTimes       map[string]time.Duration `mapstructure:"stale_times"`
	FetchTimeout     time.Duration            `mapstructure:"fetch_timeout"`
	RetryAttempts    uint64                   `mapstructure:"retry_attempts"`
	RetryBackoff     time.Duration            `mapstructure:"retry_backoff"`
}

type RealtimeConfig struct {
	Channel          string        `mapstructure:"channel"`
	ReconnectMaxWait time.Duration `mapstructure:"reconnect_max_wait"`
}

type LeaderboardConfig struct {
	Limit int `mapstructure:"limit"`
	// SnapshotSchedule is a cron expression. Empty disables scheduled snapshots.
	SnapshotSchedule string `mapstructure:"snapshot_schedule"`
}

type GamificationConfig struct {
	PapersPerLevel       int           `mapstructure:"papers_per_level"`
	DeviceStaleThreshold time.Duration `mapstructure:"device_stale_threshold"`
}

// Loader owns the viper instance so the cache section can be watched after Load.
type Loader struct {
	v *viper.Viper

	mu       sync.Mutex
	onChange []func(*CacheConfig)
}

func Load(path string) (*AppConfig, error) {
	conf, _, err := NewLoader(path)
	return conf, err
}

func NewLoader(path string) (*AppConfig, *Loader, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	conf, err := decode(v)
	if err != nil {
		return nil, nil, err
	}

	return conf, &Loader{v: v}, nil
}

// WatchCache re-reads the cache section whenever the config file changes on disk.
func (l *Loader) WatchCache(fn func(*CacheConfig)) {
	l.mu.Lock()
	first := len(l.onChange) == 0
	l.onChange = append(l.onChange, fn)
	l.mu.Unlock()

	if !first {
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		conf, err := decode(l.v)
		if err != nil {
			return
		}

		l.mu.Lock()
		listeners := append([]func(*CacheConfig){}, l.onChange...)
		l.mu.Unlock()

		for _, f := range listeners {
			f(conf.Cache)
		}
	})
	l.v.WatchConfig()
}

func decode(v *viper.Viper) (*AppConfig, error) {
	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	switch conf.Store.Driver {
	case StoreDriverPostgres, StoreDriverFixture:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStoreDriver, conf.Store.Driver)
	}

	return conf, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.environment", "development")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.token_ttl", 24*time.Hour)
	v.SetDefault("gin.mode", "debug")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("store.driver", StoreDriverPostgres)
	v.SetDefault("cache.default_stale_time", time.Minute)
	v.SetDefault("cache.fetch_timeout", 10*time.Second)
	v.SetDefault("cache.retry_attempts", 1)
	v.SetDefault("cache.retry_backoff", time.Second)
	v.SetDefault("realtime.channel", "table_changes")
	v.SetDefault("realtime.reconnect_max_wait", 30*time.Second)
	v.SetDefault("leaderboard.limit", 20)
	v.SetDefault("gamification.papers_per_level", 100)
	v.SetDefault("gamification.device_stale_threshold", 30*time.Minute)
}
