// Package config loads the server configuration file.
//
// The file is YAML:
//
//	server_host: 127.0.0.1
//	server_port: 4848
//	username: admin
//	password: $2a$10$...   # bcrypt digest, see tablekv-server -hash-password
//	storage_policy: 1      # 0 memory, 1 disk
//	data_directory: ./data
//	concurrency: true
//	tables:
//	  - name: t1
//	    columns:
//	      - {name: id, type: int}
//	      - {name: label, type: "char[5]"}
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/nickyhof/tablekv/core"
)

type StoragePolicy int

const (
	StorageMemory StoragePolicy = 0
	StorageDisk   StoragePolicy = 1
)

func (p StoragePolicy) String() string {
	switch p {
	case StorageMemory:
		return "memory"
	case StorageDisk:
		return "disk"
	default:
		return "StoragePolicy(" + strconv.Itoa(int(p)) + ")"
	}
}

type Column struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type Table struct {
	Name    string   `yaml:"name"`
	Columns []Column `yaml:"columns"`
}

// S3 holds optional credentials for an s3:// snapshot URL.
type S3 struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type Config struct {
	ServerHost string `yaml:"server_host"`
	ServerPort int    `yaml:"server_port"`
	Username   string `yaml:"username"`
	// Password is a bcrypt digest, never the plain password.
	Password  string `yaml:"password"`
	JWTSecret string `yaml:"jwt_secret"`

	StoragePolicy      StoragePolicy `yaml:"storage_policy"`
	DataDirectory      string        `yaml:"data_directory"`
	Concurrency        bool          `yaml:"concurrency"`
	MaxRecordsPerTable int           `yaml:"max_records_per_table"`
	History            bool          `yaml:"history"`

	SnapshotURL string `yaml:"snapshot_url"`
	SnapshotS3  S3     `yaml:"snapshot_s3"`

	MetricsAddr  string  `yaml:"metrics_addr"`
	CommandRate  float64 `yaml:"command_rate"`
	CommandBurst int     `yaml:"command_burst"`

	Tables []Table `yaml:"tables"`

	// Catalog is built from Tables by Validate.
	Catalog *core.Catalog `yaml:"-"`
}

// Load reads, validates and returns the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-specified config path
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate applies defaults, checks every field and builds the catalog.
func (c *Config) Validate() error {
	if c.ServerHost == "" {
		return errors.New("server_host is required")
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("server_port %d out of range", c.ServerPort)
	}
	if c.Username == "" {
		return errors.New("username is required")
	}
	if _, err := bcrypt.Cost([]byte(c.Password)); err != nil {
		return fmt.Errorf("password must be a bcrypt digest: %w", err)
	}

	switch c.StoragePolicy {
	case StorageMemory:
	case StorageDisk:
		if c.DataDirectory == "" {
			return errors.New("data_directory is required with storage_policy 1")
		}
	default:
		return fmt.Errorf("unknown storage_policy %d", c.StoragePolicy)
	}
	if c.History && c.StoragePolicy != StorageDisk {
		return errors.New("history requires storage_policy 1")
	}

	if c.MaxRecordsPerTable == 0 {
		c.MaxRecordsPerTable = core.MaxRecordsPerTable
	}
	if c.MaxRecordsPerTable < 0 {
		return fmt.Errorf("max_records_per_table %d must be positive", c.MaxRecordsPerTable)
	}
	if c.CommandRate < 0 {
		return fmt.Errorf("command_rate %g must not be negative", c.CommandRate)
	}
	if c.CommandRate > 0 && c.CommandBurst <= 0 {
		c.CommandBurst = 1
	}

	if len(c.Tables) == 0 {
		return errors.New("at least one table is required")
	}
	tables := make([]core.Table, len(c.Tables))
	for i, t := range c.Tables {
		table := core.Table{Name: t.Name, Columns: make([]core.Column, len(t.Columns))}
		for j, col := range t.Columns {
			typ, err := core.ParseColumnType(col.Type)
			if err != nil {
				return fmt.Errorf("table %s column %s: %w", t.Name, col.Name, err)
			}
			table.Columns[j] = core.Column{Name: col.Name, Type: typ}
		}
		tables[i] = table
	}
	catalog, err := core.NewCatalog(tables)
	if err != nil {
		return err
	}
	c.Catalog = catalog
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}
