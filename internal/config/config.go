package config

import (
	"flag"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultDriver         = "sqlite"
	DefaultDatabaseDSN    = "weave.db"
	DefaultBaseURL        = "localhost:8081"
	DefaultAuthSecret     = "dev-secret-key"
	DefaultAdminLogin     = "admin"
	DefaultMaxBodyMB      = 32
	DefaultRequestTimeout = 30 * time.Second
	DefaultRetentionDays  = 30
	DefaultGuardMode      = "legacy"
	DefaultLogLevel       = "info"
)

var knownDrivers = map[string]bool{
	"sqlite": true, "sqlite3": true,
	"mysql":    true,
	"postgres": true, "postgresql": true, "pgx": true,
	"sqlserver": true, "mssql": true,
}

type Config struct {
	// Storage
	DatabaseDriver string `env:"DATABASE_DRIVER"`
	DatabaseDSN    string `env:"DATABASE_URI"`

	// HTTP
	BaseURL        string        `env:"BASE_URL"`
	EnableHTTPS    bool          `env:"ENABLE_HTTPS"`
	TLSCertFile    string        `env:"TLS_CERT_FILE"`
	TLSKeyFile     string        `env:"TLS_KEY_FILE"`
	PathPrefix     string        `env:"PATH_PREFIX"`
	MaxBodyMB      int64         `env:"MAX_BODY_MB"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// Admin API
	AuthSecret    string `env:"AUTH_SECRET"`
	AdminLogin    string `env:"ADMIN_LOGIN"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// Protocol
	BcryptCost    int    `env:"BCRYPT_COST"`
	RetentionDays int    `env:"RETENTION_DAYS"`
	GuardMode     string `env:"UNMODIFIED_GUARD"`

	// Logging
	LogLevel string `env:"LOG_LEVEL"`
	LogFile  string `env:"LOG_FILE"`

	Version bool `env:"-"` // show version and exit (flag only)
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// флаги перекрывают env
	flag.StringVar(&cfg.DatabaseDriver, "driver", cfg.DatabaseDriver, "драйвер БД: sqlite, mysql, postgres, sqlserver")
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "address:port to listen on")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS")
	flag.StringVar(&cfg.TLSCertFile, "tls-cert", cfg.TLSCertFile, "TLS certificate file")
	flag.StringVar(&cfg.TLSKeyFile, "tls-key", cfg.TLSKeyFile, "TLS key file")
	flag.StringVar(&cfg.PathPrefix, "prefix", cfg.PathPrefix, "префикс пути протокола, например /weave")
	flag.Int64Var(&cfg.MaxBodyMB, "max-body-mb", cfg.MaxBodyMB, "максимальный размер тела запроса, МБ")
	flag.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "таймаут обработки запроса")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.StringVar(&cfg.AdminLogin, "admin-login", cfg.AdminLogin, "логин администратора")
	flag.StringVar(&cfg.AdminPassword, "admin-password", cfg.AdminPassword, "пароль администратора; пустой отключает /admin")
	flag.IntVar(&cfg.BcryptCost, "bcrypt-cost", cfg.BcryptCost, "стоимость bcrypt")
	flag.IntVar(&cfg.RetentionDays, "retention-days", cfg.RetentionDays, "срок хранения эфемерных записей, дней")
	flag.StringVar(&cfg.GuardMode, "guard", cfg.GuardMode, "режим X-If-Unmodified-Since: legacy или strict")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "уровень логирования")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "файл лога (с ротацией); пусто - stderr")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show version and exit")

	flag.Parse()

	cfg.applyDefaults()
	return cfg
}

var hostPortRe = regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)

// applyDefaults подставляет значения по умолчанию вместо пустых и невалидных.
func (cfg *Config) applyDefaults() {
	cfg.DatabaseDriver = strings.ToLower(cfg.DatabaseDriver)
	if !knownDrivers[cfg.DatabaseDriver] {
		cfg.DatabaseDriver = DefaultDriver
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = DefaultDatabaseDSN
	}
	// BaseURL: только "address:port" (без схемы и пути)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PathPrefix != "" {
		cfg.PathPrefix = "/" + strings.Trim(cfg.PathPrefix, "/")
		if cfg.PathPrefix == "/" {
			cfg.PathPrefix = ""
		}
	}
	if cfg.MaxBodyMB <= 0 {
		cfg.MaxBodyMB = DefaultMaxBodyMB
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = DefaultAuthSecret
	}
	if cfg.AdminLogin == "" {
		cfg.AdminLogin = DefaultAdminLogin
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	cfg.GuardMode = strings.ToLower(cfg.GuardMode)
	if cfg.GuardMode != "legacy" && cfg.GuardMode != "strict" {
		cfg.GuardMode = DefaultGuardMode
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
}

// AdminEnabled - админский API поднимается только при заданном пароле.
func (cfg *Config) AdminEnabled() bool {
	return cfg.AdminPassword != ""
}

// MaxBodyBytes - лимит тела запроса в байтах.
func (cfg *Config) MaxBodyBytes() int64 {
	return cfg.MaxBodyMB << 20
}
