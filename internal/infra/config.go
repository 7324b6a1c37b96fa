package infra

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"cardroom"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"cardroom"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"cardroom"`

	// Connection pool. Every table action holds a connection for the
	// duration of its ledger transaction, so size against peak tables.
	PGPoolMaxConns       int `env:"PG_POOL_MAX_CONNS" envDefault:"20"`
	PGPoolMinConns       int `env:"PG_POOL_MIN_CONNS" envDefault:"2"`
	PGPoolMaxConnLifeMin int `env:"PG_POOL_MAX_CONN_LIFE_MIN" envDefault:"30"`
	PGPoolMaxConnIdleMin int `env:"PG_POOL_MAX_CONN_IDLE_MIN" envDefault:"5"`

	// Redis: the state cache plus the independent lock quorum nodes.
	// LOCK_REDIS_ADDRS must list an odd number of nodes on isolated instances;
	// a single address degrades to a plain single-node lock (dev only).
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	LockRedisAddrs string `env:"LOCK_REDIS_ADDRS" envDefault:"localhost:6379"`

	// Table tunables
	TableLockLeaseMs int `env:"TABLE_LOCK_LEASE_MS" envDefault:"2000"`
	TableIdleTTLMin  int `env:"TABLE_IDLE_TTL_MIN" envDefault:"30"`

	// Guard
	ActionRateLimit  int `env:"ACTION_RATE_LIMIT" envDefault:"20"`
	ActionRateWindow int `env:"ACTION_RATE_WINDOW_SEC" envDefault:"10"`

	// Server
	APIPort         int    `env:"API_PORT" envDefault:"3200"`
	DefaultCurrency string `env:"DEFAULT_CURRENCY" envDefault:"USD"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass (local dev only).
func (c *Config) Validate() error {
	if c.TableLockLeaseMs < 100 {
		return fmt.Errorf("TABLE_LOCK_LEASE_MS too short (%dms); minimum 100ms", c.TableLockLeaseMs)
	}
	if c.PGPoolMaxConns < 1 {
		return fmt.Errorf("PG_POOL_MAX_CONNS must be at least 1, got %d", c.PGPoolMaxConns)
	}
	if c.PGPoolMinConns > c.PGPoolMaxConns {
		return fmt.Errorf("PG_POOL_MIN_CONNS (%d) exceeds PG_POOL_MAX_CONNS (%d)", c.PGPoolMinConns, c.PGPoolMaxConns)
	}
	if c.AllowInsecureDefaults {
		return nil
	}
	if len(c.LockNodeAddrs())%2 == 0 {
		return fmt.Errorf("LOCK_REDIS_ADDRS must list an odd number of nodes, got %d", len(c.LockNodeAddrs()))
	}
	if len(c.LockNodeAddrs()) < 3 {
		return fmt.Errorf("LOCK_REDIS_ADDRS needs at least 3 nodes for a meaningful quorum; set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	return nil
}

// LockNodeAddrs splits the configured lock node list.
func (c *Config) LockNodeAddrs() []string {
	var addrs []string
	for _, a := range strings.Split(c.LockRedisAddrs, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
