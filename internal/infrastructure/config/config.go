package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for entitykit.
// All configuration is loaded from YAML and can be overridden by environment variables.
//
// Besides the typed sections, every loaded document is also kept as a flattened
// dotted-key view (see Value and List) so that components can read keys the
// typed structure does not declare, such as instances.<type> bindings.
type Config struct {
	Environment string            `yaml:"environment"`
	Logging     LoggingConfig     `yaml:"logging"`
	Database    DatabaseConfig    `yaml:"database"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Admin       AdminConfig       `yaml:"admin"`
	Email       EmailConfig       `yaml:"email"`
	Instances   map[string]string `yaml:"instances"`
	Bootstrap   string            `yaml:"bootstrap"`

	values map[string]string
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DatabaseConfig contains SQLite settings for the SQL-backed entity store.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker settings for the entity change feed.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB settings for store telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// AdminConfig contains the admin HTTP listener settings.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// EmailConfig contains e-mail validation settings.
type EmailConfig struct {
	ValidUserDomains []string `yaml:"valid_user_domains"`
}

// Layer file names, lowest precedence first.
const (
	baseFile   = "app.yml"
	secretFile = "secret.yml"

	listSeparator = "|"
)

// Load reads configuration from a single YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ENTITYKIT_SECTION_KEY
// For example: ENTITYKIT_DATABASE_PATH, ENTITYKIT_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if err := cfg.overlay(path); err != nil {
		return nil, err
	}

	return cfg.finish()
}

// LoadLayered reads the layered configuration of an environment from dir.
//
// Files are applied in this order, later files overriding earlier ones:
//  1. app.yml (required)
//  2. app-<env>.yml (optional)
//  3. secret.yml (optional, usually not committed)
//
// Environment variable overrides and validation are applied last, as in Load.
func LoadLayered(dir, env string) (*Config, error) {
	cfg := defaultConfig()

	if err := cfg.overlay(filepath.Join(dir, baseFile)); err != nil {
		return nil, err
	}

	for _, name := range []string{"app-" + env + ".yml", secretFile} {
		err := cfg.overlay(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}

	return cfg.finish()
}

// Environment returns the name of the running environment.
// It is read from the ENVIRONMENT variable and defaults to "local".
func Environment() string {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		return v
	}
	return "local"
}

// overlay parses one YAML document onto the typed config and the flattened view.
func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	flatten("", doc, c.values)

	return nil
}

func (c *Config) finish() (*Config, error) {
	applyEnvOverrides(c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return c, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Environment: "",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Database: DatabaseConfig{
			Path:        "./data/entitykit.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "entitykit",
			},
			QoS:         1,
			TopicPrefix: "entitykit",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Admin: AdminConfig{
			Host: "127.0.0.1",
			Port: 9090,
		},
		Instances: map[string]string{},
		values:    map[string]string{},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ENTITYKIT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ENTITYKIT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("ENTITYKIT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ENTITYKIT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ENTITYKIT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("ENTITYKIT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("ENTITYKIT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Every problem is collected so that a broken file reports all of them at once.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "logging.level must be one of debug, info, warn, error")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the database is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if c.Admin.Enabled && (c.Admin.Port < 1 || c.Admin.Port > 65535) {
		errs = append(errs, "admin.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Value returns the flattened configuration value stored under key.
//
// Values of the form $NAME are resolved from the environment variable NAME;
// an unset variable is reported as missing.
func (c *Config) Value(key string) (string, bool) {
	v, ok := c.values[key]
	if !ok {
		return "", false
	}
	if name, isRef := strings.CutPrefix(v, "$"); isRef && name != "" {
		return os.LookupEnv(name)
	}
	return v, true
}

// List returns the list stored under key, or nil when the key is missing.
func (c *Config) List(key string) []string {
	v, ok := c.Value(key)
	if !ok || v == "" {
		return nil
	}
	return strings.Split(v, listSeparator)
}

// Keys returns every flattened key, in no particular order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	return keys
}

// flatten writes the scalar leaves of node into out under dotted keys.
func flatten(prefix string, node any, out map[string]string) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			flatten(join(prefix, k), child, out)
		}
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		out[prefix] = strings.Join(parts, listSeparator)
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(v)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
