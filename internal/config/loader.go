package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSQLiteDSN enables foreign keys, waits on busy locks and starts
// write transactions eagerly.
const DefaultSQLiteDSN = "file:workforce.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

// Config captures environment driven configuration values for the workforce service.
type Config struct {
	HTTPPort       int
	RequestTimeout time.Duration

	DBDriver string
	DBDSN    string

	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	CheckinRotateInterval time.Duration
	CheckinGrace          time.Duration

	OnBehalfPolicy string

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int
	// TrustedProxies lists the peers whose X-Forwarded-For and X-Real-IP
	// headers are believed. Empty means the headers are ignored.
	TrustedProxies []netip.Prefix

	LogLevel  string
	LogFormat string

	Bootstrap Bootstrap
}

// Bootstrap describes the optional first manager account.
type Bootstrap struct {
	Username string
	Password string
	Name     string
}

// Enabled reports whether a bootstrap account was configured.
func (b Bootstrap) Enabled() bool {
	return b.Username != ""
}

// LoadDotEnv preloads variables from .env files without overriding values
// already present in the environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load parses configuration values from the current process environment.
// Missing and invalid keys are collected and reported together.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:              8080,
		RequestTimeout:        30 * time.Second,
		DBDriver:              "sqlite",
		SessionTTL:            24 * time.Hour,
		SessionSweepInterval:  time.Minute,
		CheckinRotateInterval: time.Minute,
		CheckinGrace:          time.Minute,
		OnBehalfPolicy:        "any",
		CORSOrigins:           []string{"*"},
		RateLimitRPM:          120,
		AuthRateLimitRPM:      20,
		LogLevel:              "info",
		LogFormat:             "json",
	}

	var missing, invalid []string
	p := parser{invalid: &invalid}

	p.positiveInt("WORKFORCE_HTTP_PORT", &cfg.HTTPPort)
	p.duration("WORKFORCE_REQUEST_TIMEOUT", &cfg.RequestTimeout)
	p.oneOf("WORKFORCE_DB_DRIVER", &cfg.DBDriver, "sqlite", "postgres")
	p.duration("WORKFORCE_SESSION_TTL", &cfg.SessionTTL)
	p.duration("WORKFORCE_SESSION_SWEEP_INTERVAL", &cfg.SessionSweepInterval)
	p.duration("WORKFORCE_CHECKIN_ROTATE_INTERVAL", &cfg.CheckinRotateInterval)
	p.duration("WORKFORCE_CHECKIN_GRACE", &cfg.CheckinGrace)
	p.oneOf("WORKFORCE_ON_BEHALF_POLICY", &cfg.OnBehalfPolicy, "any", "self", "manager")
	p.positiveInt("WORKFORCE_RATE_LIMIT_RPM", &cfg.RateLimitRPM)
	p.positiveInt("WORKFORCE_AUTH_RATE_LIMIT_RPM", &cfg.AuthRateLimitRPM)
	p.oneOf("WORKFORCE_LOG_LEVEL", &cfg.LogLevel, "debug", "info", "warn", "warning", "error")
	p.oneOf("WORKFORCE_LOG_FORMAT", &cfg.LogFormat, "json", "pretty")
	p.prefixes("WORKFORCE_TRUSTED_PROXIES", &cfg.TrustedProxies)

	if origins := env("WORKFORCE_CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = cfg.CORSOrigins[:0]
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	cfg.DBDSN = env("WORKFORCE_DB_DSN")
	if cfg.DBDSN == "" {
		if cfg.DBDriver == "postgres" {
			missing = append(missing, "WORKFORCE_DB_DSN")
		} else {
			cfg.DBDSN = DefaultSQLiteDSN
		}
	}

	cfg.Bootstrap = Bootstrap{
		Username: env("WORKFORCE_BOOTSTRAP_USERNAME"),
		Password: os.Getenv("WORKFORCE_BOOTSTRAP_PASSWORD"),
		Name:     env("WORKFORCE_BOOTSTRAP_NAME"),
	}
	if cfg.Bootstrap.Enabled() && cfg.Bootstrap.Password == "" {
		missing = append(missing, "WORKFORCE_BOOTSTRAP_PASSWORD")
	}
	if cfg.Bootstrap.Enabled() && cfg.Bootstrap.Name == "" {
		cfg.Bootstrap.Name = cfg.Bootstrap.Username
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.HTTPPort)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

type parser struct {
	invalid *[]string
}

func (p parser) positiveInt(key string, dst *int) {
	value := env(key)
	if value == "" {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		*p.invalid = append(*p.invalid, key)
		return
	}
	*dst = n
}

func (p parser) duration(key string, dst *time.Duration) {
	value := env(key)
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		*p.invalid = append(*p.invalid, key)
		return
	}
	*dst = d
}

func (p parser) oneOf(key string, dst *string, allowed ...string) {
	value := strings.ToLower(env(key))
	if value == "" {
		return
	}
	for _, candidate := range allowed {
		if value == candidate {
			*dst = value
			return
		}
	}
	*p.invalid = append(*p.invalid, key)
}

// prefixes reads a comma separated list of CIDR ranges or single addresses.
func (p parser) prefixes(key string, dst *[]netip.Prefix) {
	value := env(key)
	if value == "" {
		return
	}
	var out []netip.Prefix
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(item); err == nil {
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			*p.invalid = append(*p.invalid, key)
			return
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	*dst = out
}
