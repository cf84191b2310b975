package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ModeDev     = "dev"
	ModeRelease = "release"

	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	ViewerReadOnly = "read_only"
	ViewerNone     = "none"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	// sqlite のファイルパス (":memory:" 可)
	Path string `yaml:"path"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	FrontendDir    string        `yaml:"frontend_dir"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Certificate    Certs         `yaml:"certificate"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	ViewerAccess string        `yaml:"viewer_access"`
}

type ReportsConfig struct {
	Currency       string `yaml:"currency"`
	WeekStart      string `yaml:"week_start"`
	Timezone       string `yaml:"timezone"`
	NotesMaxLength int    `yaml:"notes_max_length"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Config struct {
	Version string         `yaml:"version"`
	Mode    string         `yaml:"mode"`
	Server  ServerConfig   `yaml:"server"`
	DB      DatabaseConfig `yaml:"database"`
	Auth    AuthConfig     `yaml:"auth"`
	Reports ReportsConfig  `yaml:"reports"`
	Log     LogConfig      `yaml:"log"`
}

// LoadConfig は yaml を読み込み、.env と RS_* 環境変数で上書きしてから既定値を埋める。
func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(buf)
	if err != nil {
		return nil, err
	}

	// .env は任意
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDriverDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse は yaml をデコードして既定値を埋める。環境変数は見ない。
func Parse(buf []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDev
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8443"
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 5 * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:5173"}
	}
	if c.DB.Driver == "" {
		c.DB.Driver = DriverMySQL
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 8 * time.Hour
	}
	if c.Auth.ViewerAccess == "" {
		c.Auth.ViewerAccess = ViewerReadOnly
	}
	if c.Reports.Currency == "" {
		c.Reports.Currency = "XOF"
	}
	if c.Reports.WeekStart == "" {
		c.Reports.WeekStart = "monday"
	}
	if c.Reports.Timezone == "" {
		c.Reports.Timezone = "UTC"
	}
	if c.Reports.NotesMaxLength <= 0 {
		c.Reports.NotesMaxLength = 5000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.applyDriverDefaults()
}

// applyDriverDefaults はドライバで決まる既定値。環境変数でドライバが変わった後にも呼ぶ。
func (c *Config) applyDriverDefaults() {
	switch c.DB.Driver {
	case DriverMySQL:
		if c.DB.Port == 0 {
			c.DB.Port = 3306
		}
	case DriverSQLite:
		if c.DB.Path == "" {
			c.DB.Path = "data/reports.db"
		}
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("RS_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("RS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("RS_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("RS_DB_DRIVER"); v != "" {
		c.DB.Driver = v
	}
	if v := os.Getenv("RS_DB_HOST"); v != "" {
		c.DB.Host = v
	}
	if v := getenvInt("RS_DB_PORT", 0); v > 0 {
		c.DB.Port = v
	}
	if v := os.Getenv("RS_DB_USER"); v != "" {
		c.DB.Username = v
	}
	if v := os.Getenv("RS_DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
	if v := os.Getenv("RS_DB_NAME"); v != "" {
		c.DB.DBName = v
	}
	if v := os.Getenv("RS_DB_PATH"); v != "" {
		c.DB.Path = v
	}
	if v := os.Getenv("RS_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitCSV(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	c.Log.Pretty = getenvBool("RS_LOG_PRETTY", c.Log.Pretty)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Mode != ModeDev && c.Mode != ModeRelease {
		errs = append(errs, fmt.Errorf("mode must be %q or %q, got %q", ModeDev, ModeRelease, c.Mode))
	}
	if c.DB.Driver != DriverMySQL && c.DB.Driver != DriverSQLite {
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q, got %q", DriverMySQL, DriverSQLite, c.DB.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required (or RS_JWT_SECRET)"))
	}
	if c.Auth.ViewerAccess != ViewerReadOnly && c.Auth.ViewerAccess != ViewerNone {
		errs = append(errs, fmt.Errorf("auth.viewer_access must be %q or %q", ViewerReadOnly, ViewerNone))
	}
	if _, err := c.Reports.Weekday(); err != nil {
		errs = append(errs, err)
	}
	if _, err := time.LoadLocation(c.Reports.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("reports.timezone: %w", err))
	}
	return errors.Join(errs...)
}

// Weekday は週の起点となる曜日を返す。
func (r ReportsConfig) Weekday() (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(r.WeekStart)) {
	case "", "monday", "lundi":
		return time.Monday, nil
	case "sunday", "dimanche":
		return time.Sunday, nil
	case "saturday", "samedi":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("reports.week_start: unsupported value %q", r.WeekStart)
}

// Location は集計用タイムゾーン。読めなければ UTC。
func (r ReportsConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(r.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
