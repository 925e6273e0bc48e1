package clickhouse

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
)

// Config is the connection section of the application YAML. Zero fields
// take the default tags.
type Config struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"default"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
	MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
	ConnMaxLifetime  time.Duration `yaml:"conn_max_lifetime" default:"5m"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time"`
}

// normalize fills defaults and checks required fields.
func (c Config) normalize() (Config, error) {
	if err := defaults.Set(&c); err != nil {
		return c, fmt.Errorf("clickhouse defaults: %w", err)
	}
	if c.Host == "" {
		return c, fmt.Errorf("clickhouse host is required")
	}
	return c, nil
}

// Table qualifies name with the configured database.
func (c Config) Table(name string) string {
	if c.Database == "" {
		return name
	}
	return c.Database + "." + name
}
