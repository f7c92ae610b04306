package config

import (
	"log"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	AllowedOrigins     []string
	AnalysisServiceURL string
	AnalysisTimeout    time.Duration
	RiskThreshold      float64
	UploadDir          string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

func LoadFile(dotEnvPath string) (*Config, error) {
	// load .env if it exists (ignore if it does not)
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "config.godotenv(%s)", dotEnvPath)
		}
		log.Printf("config: loaded %s", dotEnvPath)
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "config.os.Stat(%s)", dotEnvPath)
	}

	v := newViper()

	// GetFloat64 reads an unparseable value as 0
	threshold, err := cast.ToFloat64E(strings.TrimSpace(v.GetString("risk_threshold")))
	if err != nil {
		return nil, errors.New("config: RISK_THRESHOLD must be a finite number")
	}

	cfg := &Config{
		Port:               strings.TrimSpace(v.GetString("port")),
		DBDriver:           strings.ToLower(v.GetString("db_driver")),
		DBHost:             v.GetString("db_host"),
		DBPort:             v.GetString("db_port"),
		DBUser:             v.GetString("db_user"),
		DBPassword:         v.GetString("db_password"),
		DBName:             v.GetString("db_name"),
		DBSSLMode:          v.GetString("db_sslmode"),
		SQLitePath:         v.GetString("sqlite_path"),
		AllowedOrigins:     splitList(v.GetString("allowed_origins")),
		AnalysisServiceURL: v.GetString("analysis_service_url"),
		AnalysisTimeout:    v.GetDuration("analysis_timeout"),
		RiskThreshold:      threshold,
		UploadDir:          v.GetString("upload_dir"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("port", "8080")
	v.SetDefault("db_driver", DriverPostgres)
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "academic_tracker")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("sqlite_path", "tracker.db")
	v.SetDefault("allowed_origins", "http://localhost:3000")
	v.SetDefault("analysis_service_url", "")
	v.SetDefault("analysis_timeout", 10*time.Second)
	v.SetDefault("risk_threshold", 60.0)
	v.SetDefault("upload_dir", "uploads")

	v.AutomaticEnv()
	return v
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return errors.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.Port == "" {
		return errors.New("config: PORT must not be empty")
	}
	if math.IsNaN(c.RiskThreshold) || math.IsInf(c.RiskThreshold, 0) {
		return errors.New("config: RISK_THRESHOLD must be a finite number")
	}
	if c.AnalysisTimeout <= 0 {
		return errors.New("config: ANALYSIS_TIMEOUT must be positive")
	}
	return nil
}

// PostgresDSN builds the key/value DSN understood by the pgx driver.
func (c *Config) PostgresDSN() string {
	return "host=" + c.DBHost + " user=" + c.DBUser + " password=" + c.DBPassword +
		" dbname=" + c.DBName + " port=" + c.DBPort + " sslmode=" + c.DBSSLMode
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
