package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Auth       AuthConfig       `json:"auth"`
	Curriculum CurriculumConfig `json:"curriculum"`
	Nudges     NudgesConfig     `json:"nudges"`
	Storage    StorageConfig    `json:"storage"`
	Logging    LoggingConfig    `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string   `json:"host"`
	Port            int      `json:"port"`
	ReadTimeout     Duration `json:"read_timeout"`
	WriteTimeout    Duration `json:"write_timeout"`
	IdleTimeout     Duration `json:"idle_timeout"`
	ShutdownTimeout Duration `json:"shutdown_timeout"`
	CORSOrigins     []string `json:"cors_origins"`
}

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DatabaseConfig selects and configures the backing store.
type DatabaseConfig struct {
	Driver         string   `json:"driver"`
	MongoURI       string   `json:"mongo_uri"`
	MongoDB        string   `json:"mongo_db"`
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	User           string   `json:"user"`
	Password       string   `json:"password"`
	DBName         string   `json:"db_name"`
	SSLMode        string   `json:"ssl_mode"`
	MaxConnections int      `json:"max_connections"`
	MaxIdleConns   int      `json:"max_idle_conns"`
	MaxLifetime    Duration `json:"max_lifetime"`
}

const (
	AuthModeFirebase = "firebase"
	AuthModeDev      = "dev"
)

// AuthConfig
type AuthConfig struct {
	Mode              string   `json:"mode"`
	FirebaseProjectID string   `json:"firebase_project_id"`
	DevSecret         string   `json:"dev_secret"`
	UserTouchTTL      Duration `json:"user_touch_ttl"`
}

// CurriculumConfig points at the step catalog. Empty means the embedded one.
type CurriculumConfig struct {
	StepsPath string `json:"steps_path"`
}

// NudgesConfig controls the stale project sweep.
type NudgesConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
}

// StorageConfig configures the S3 bucket used for export archives.
type StorageConfig struct {
	Bucket     string   `json:"bucket"`
	Region     string   `json:"region"`
	Prefix     string   `json:"prefix"`
	Endpoint   string   `json:"endpoint"`
	PresignTTL Duration `json:"presign_ttl"`

	// Static keys for S3 compatible endpoints. The default AWS credential
	// chain is used when empty.
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
}

// Enabled reports whether an export archive bucket is configured.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

// LoggingConfig
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Duration is a time.Duration that reads "30s" style strings from JSON.
// Plain numbers are taken as nanoseconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(data))
	}
	*d = Duration(n)
	return nil
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(15 * time.Second),
			IdleTimeout:     Duration(60 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
			CORSOrigins:     []string{"http://localhost:5173"},
		},
		Database: DatabaseConfig{
			Driver:         DriverMongo,
			MongoURI:       "mongodb://localhost:27017",
			MongoDB:        "vibetracker",
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "vibetracker",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    Duration(30 * time.Minute),
		},
		Auth: AuthConfig{
			Mode:         AuthModeFirebase,
			UserTouchTTL: Duration(5 * time.Minute),
		},
		Nudges: NudgesConfig{
			Enabled:  true,
			Schedule: "0 0 9 * * *",
		},
		Storage: StorageConfig{
			Region:     "us-east-1",
			Prefix:     "exports/",
			PresignTTL: Duration(15 * time.Minute),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := Default()

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

func overrideWithEnv(config *Config) error {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT %q: %w", port, err)
		}
		config.Server.Port = p
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		config.Server.CORSOrigins = splitList(origins)
	}

	if driver := os.Getenv("DATABASE_DRIVER"); driver != "" {
		config.Database.Driver = driver
	}
	if uri := os.Getenv("MONGODB_URL"); uri != "" {
		config.Database.MongoURI = uri
	}
	if db := os.Getenv("MONGODB_DB"); db != "" {
		config.Database.MongoDB = db
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		p, err := strconv.Atoi(dbPort)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_PORT %q: %w", dbPort, err)
		}
		config.Database.Port = p
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}

	if mode := os.Getenv("AUTH_MODE"); mode != "" {
		config.Auth.Mode = mode
	}
	if projectID := os.Getenv("FIREBASE_PROJECT_ID"); projectID != "" {
		config.Auth.FirebaseProjectID = projectID
	}
	if secret := os.Getenv("AUTH_DEV_SECRET"); secret != "" {
		config.Auth.DevSecret = secret
	}

	if path := os.Getenv("STEPS_PATH"); path != "" {
		config.Curriculum.StepsPath = path
	}

	if enabled := os.Getenv("NUDGES_ENABLED"); enabled != "" {
		b, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid NUDGES_ENABLED %q: %w", enabled, err)
		}
		config.Nudges.Enabled = b
	}
	if schedule := os.Getenv("NUDGES_SCHEDULE"); schedule != "" {
		config.Nudges.Schedule = schedule
	}

	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.Storage.Region = region
	}
	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		config.Storage.Endpoint = endpoint
	}
	if key := os.Getenv("S3_ACCESS_KEY_ID"); key != "" {
		config.Storage.AccessKeyID = key
	}
	if secret := os.Getenv("S3_SECRET_ACCESS_KEY"); secret != "" {
		config.Storage.SecretAccessKey = secret
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port must be between 1 and 65535")
	}
	switch c.Database.Driver {
	case DriverMongo:
		if c.Database.MongoURI == "" {
			return fmt.Errorf("invalid config: database.mongo_uri is required")
		}
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("invalid config: unknown database.driver %q", c.Database.Driver)
	}
	switch c.Auth.Mode {
	case AuthModeFirebase:
		if c.Auth.FirebaseProjectID == "" {
			return fmt.Errorf("invalid config: auth.firebase_project_id is required in firebase mode")
		}
	case AuthModeDev:
		if len(c.Auth.DevSecret) < 16 {
			return fmt.Errorf("invalid config: auth.dev_secret must be at least 16 characters")
		}
	default:
		return fmt.Errorf("invalid config: unknown auth.mode %q", c.Auth.Mode)
	}
	return nil
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
