package buildCFG

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"
)

// Source is the subset of *config.Config the builders read from.
type Source interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetDuration(key string) time.Duration
	GetStringSlice(key string) []string
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type ServerConfig struct {
	Port            string
	Mode            string
	ShutdownTimeout time.Duration
	TrustedProxies  []string
}

type StorageConfig struct {
	Driver        string
	MigrationsDir string
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

type SyncConfig struct {
	QueueSize     int
	Timeout       time.Duration
	MaxTries      uint
	NotionBaseURL string
}

type CheckInConfig struct {
	EmailDomain string
	RateRPS     float64
	RateBurst   int
}

type AdminConfig struct {
	Username     string
	Password     string
	JWTSecret    string
	TokenTTL     time.Duration
	RequireToken bool
}

func BuildServerConfig(cfg Source, log *zerolog.Logger) ServerConfig {
	sc := ServerConfig{
		Port:            stringOr(cfg, "server.port", "8080"),
		Mode:            stringOr(cfg, "server.mode", "release"),
		ShutdownTimeout: durationOr(cfg, "server.shutdown_timeout", 10*time.Second),
		TrustedProxies:  cfg.GetStringSlice("server.trusted_proxies"),
	}
	log.Debug().Str("port", sc.Port).Str("mode", sc.Mode).Msg("server config built")
	return sc
}

func BuildStorageConfig(cfg Source, log *zerolog.Logger) (StorageConfig, error) {
	sc := StorageConfig{
		Driver:        strings.ToLower(stringOr(cfg, "storage.driver", StorageMemory)),
		MigrationsDir: stringOr(cfg, "database.migrations_dir", "migrations/postgres"),
	}
	if sc.Driver != StorageMemory && sc.Driver != StoragePostgres {
		return StorageConfig{}, errors.New("storage.driver must be memory or postgres")
	}
	log.Debug().Str("driver", sc.Driver).Msg("storage config built")
	return sc, nil
}

func BuildDBConfig(cfg Source, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	master := cfg.GetString("database.master_dsn")
	if master == "" {
		return "", nil, nil, errors.New("database.master_dsn is required")
	}
	slaves := cfg.GetStringSlice("database.slave_dsns")

	opts := &dbpg.Options{
		MaxOpenConns:    intOr(cfg, "database.max_open_conns", 10),
		MaxIdleConns:    intOr(cfg, "database.max_idle_conns", 5),
		ConnMaxLifetime: durationOr(cfg, "database.conn_max_lifetime", 30*time.Minute),
	}
	log.Debug().Int("slaves", len(slaves)).Int("max_open_conns", opts.MaxOpenConns).Msg("database config built")
	return master, slaves, opts, nil
}

// BuildRabbitConfig returns a zero Url when RabbitMQ is not configured; the
// caller falls back to the in-process queue.
func BuildRabbitConfig(cfg Source, log *zerolog.Logger) RabbitConfig {
	rc := RabbitConfig{
		Url:      cfg.GetString("rabbitmq.url"),
		Exchange: stringOr(cfg, "rabbitmq.exchange", "checkin"),
		Queue:    stringOr(cfg, "rabbitmq.queue", "checkin.sync"),
	}
	log.Debug().Bool("enabled", rc.Url != "").Str("queue", rc.Queue).Msg("rabbitmq config built")
	return rc
}

func BuildSyncConfig(cfg Source, log *zerolog.Logger) SyncConfig {
	sc := SyncConfig{
		QueueSize:     intOr(cfg, "sync.queue_size", 256),
		Timeout:       durationOr(cfg, "sync.timeout", 10*time.Second),
		MaxTries:      uint(intOr(cfg, "sync.max_tries", 5)),
		NotionBaseURL: cfg.GetString("sync.notion_base_url"),
	}
	log.Debug().Int("queue_size", sc.QueueSize).Uint("max_tries", sc.MaxTries).Msg("sync config built")
	return sc
}

func BuildCheckInConfig(cfg Source, log *zerolog.Logger) CheckInConfig {
	cc := CheckInConfig{
		EmailDomain: stringOr(cfg, "checkin.email_domain", "@caltech.edu"),
		RateRPS:     float64(intOr(cfg, "checkin.rate_rps", 5)),
		RateBurst:   intOr(cfg, "checkin.rate_burst", 10),
	}
	log.Debug().Str("email_domain", cc.EmailDomain).Msg("check-in config built")
	return cc
}

func BuildAdminConfig(cfg Source, log *zerolog.Logger) (AdminConfig, error) {
	ac := AdminConfig{
		Username:     cfg.GetString("admin.username"),
		Password:     cfg.GetString("admin.password"),
		JWTSecret:    cfg.GetString("admin.jwt_secret"),
		TokenTTL:     durationOr(cfg, "admin.token_ttl", 12*time.Hour),
		RequireToken: cfg.GetBool("admin.require_token"),
	}
	if ac.RequireToken && ac.JWTSecret == "" {
		return AdminConfig{}, errors.New("admin.require_token needs admin.jwt_secret")
	}
	if ac.Username == "" || ac.Password == "" {
		log.Warn().Msg("admin credentials are not configured, login is disabled")
	}
	return ac, nil
}

func stringOr(cfg Source, key, def string) string {
	if v := strings.TrimSpace(cfg.GetString(key)); v != "" {
		return v
	}
	return def
}

func intOr(cfg Source, key string, def int) int {
	if v := cfg.GetInt(key); v > 0 {
		return v
	}
	return def
}

func durationOr(cfg Source, key string, def time.Duration) time.Duration {
	if v := cfg.GetDuration(key); v > 0 {
		return v
	}
	return def
}
