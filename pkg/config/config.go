package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Google   GoogleConfig   `mapstructure:"google"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Mail     MailConfig     `mapstructure:"mail"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port    int           `mapstructure:"port"`
	Mode    string        `mapstructure:"mode"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret      string `mapstructure:"jwt_secret"`
	JWTExpiryHours int    `mapstructure:"jwt_expiry_hours"`
	JWTIssuer      string `mapstructure:"jwt_issuer"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// GoogleConfig holds the service-account credentials for the sheet, drive
// and document providers. When ClientEmail or PrivateKey is empty the whole
// sync subsystem runs disabled: every entry point becomes a logged no-op.
type GoogleConfig struct {
	ClientEmail    string `mapstructure:"client_email"`
	PrivateKey     string `mapstructure:"private_key"`
	Subject        string `mapstructure:"subject"`
	ParentFolderID string `mapstructure:"parent_folder_id"`
}

// Enabled reports whether sink credentials are present.
func (g GoogleConfig) Enabled() bool {
	return g.ClientEmail != "" && g.PrivateKey != ""
}

type SyncConfig struct {
	Timezone          string        `mapstructure:"timezone"`
	ResyncEventDelay  time.Duration `mapstructure:"resync_event_delay"`
	RestartDelay      time.Duration `mapstructure:"restart_delay"`
	NetRestartDelay   time.Duration `mapstructure:"net_restart_delay"`
	NightlyResyncHour int           `mapstructure:"nightly_resync_hour"`
}

type MailConfig struct {
	SMTPHost        string        `mapstructure:"smtp_host"`
	SMTPPort        int           `mapstructure:"smtp_port"`
	SMTPUser        string        `mapstructure:"smtp_user"`
	SMTPPassword    string        `mapstructure:"smtp_password"`
	From            string        `mapstructure:"from"`
	BulkConcurrency int           `mapstructure:"bulk_concurrency"`
	BulkDelay       time.Duration `mapstructure:"bulk_delay"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func LoadConfig(configPath string) (*Config, error) {
	var config Config

	// If CONFIG_FILE environment variable is set, use it
	if envConfigFile := os.Getenv("CONFIG_FILE"); envConfigFile != "" {
		configPath = envConfigFile
	}

	// Initialize viper
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	// If configPath is provided, use it directly
	if configPath != "" {
		dir := filepath.Dir(configPath)
		file := filepath.Base(configPath)
		ext := filepath.Ext(file)
		name := strings.TrimSuffix(file, ext)

		v.AddConfigPath(dir)
		v.SetConfigName(name)
	} else {
		// Fallback to default locations
		_, filename, _, _ := runtime.Caller(0)
		pkgConfigDir := filepath.Dir(filename)
		projectRoot := filepath.Join(pkgConfigDir, "..", "..")

		v.AddConfigPath(pkgConfigDir)
		v.AddConfigPath(projectRoot)
		v.AddConfigPath(filepath.Join(projectRoot, "pkg", "config"))
		v.SetConfigName("config")
	}

	// The config file is optional: the service can run entirely from
	// environment variables and defaults.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error loading config file: %v", err)
		}
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Override with environment variables if they exist
	envVars := map[string]string{
		"server.port":             "SERVER_PORT",
		"server.mode":             "SERVER_MODE",
		"server.timeout":          "SERVER_TIMEOUT",
		"database.host":           "DB_HOST",
		"database.port":           "DB_PORT",
		"database.user":           "DB_USER",
		"database.password":       "DB_PASSWORD",
		"database.name":           "DB_NAME",
		"database.sslmode":        "DB_SSLMODE",
		"redis.host":              "REDIS_HOST",
		"redis.port":              "REDIS_PORT",
		"redis.password":          "REDIS_PASSWORD",
		"redis.db":                "REDIS_DB",
		"auth.jwt_secret":         "JWT_SECRET",
		"auth.jwt_issuer":         "JWT_ISSUER",
		"auth.jwt_expiry_hours":   "JWT_EXPIRY_HOURS",
		"google.client_email":     "GOOGLE_CLIENT_EMAIL",
		"google.private_key":      "GOOGLE_PRIVATE_KEY",
		"google.subject":          "GOOGLE_IMPERSONATE_SUBJECT",
		"google.parent_folder_id": "GOOGLE_PARENT_FOLDER_ID",
		"sync.timezone":           "SYNC_TIMEZONE",
		"sync.resync_event_delay": "SYNC_RESYNC_EVENT_DELAY",
		"sync.restart_delay":      "SYNC_RESTART_DELAY",
		"sync.net_restart_delay":  "SYNC_NET_RESTART_DELAY",
		"mail.smtp_host":          "SMTP_HOST",
		"mail.smtp_port":          "SMTP_PORT",
		"mail.smtp_user":          "SMTP_USER",
		"mail.smtp_password":      "SMTP_PASSWORD",
		"mail.from":               "MAIL_FROM",
		"mail.bulk_concurrency":   "MAIL_BULK_CONCURRENCY",
		"mail.bulk_delay":         "MAIL_BULK_DELAY",
		"logging.level":           "LOG_LEVEL",
		"logging.format":          "LOG_FORMAT",
	}

	for configKey, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			// Handle special cases for type conversion
			switch envVar {
			case "SERVER_PORT", "DB_PORT", "REDIS_PORT", "REDIS_DB", "SMTP_PORT",
				"JWT_EXPIRY_HOURS", "MAIL_BULK_CONCURRENCY":
				if intVal, err := strconv.Atoi(value); err == nil {
					v.Set(configKey, intVal)
				}
			case "SERVER_TIMEOUT", "SYNC_RESYNC_EVENT_DELAY", "SYNC_RESTART_DELAY",
				"SYNC_NET_RESTART_DELAY", "MAIL_BULK_DELAY":
				if d, err := time.ParseDuration(value); err == nil {
					v.Set(configKey, d)
				}
			case "GOOGLE_PRIVATE_KEY":
				// Keys arriving through env have escaped newlines.
				v.Set(configKey, strings.ReplaceAll(value, `\n`, "\n"))
			default:
				v.Set(configKey, value)
			}
		}
	}

	// Unmarshal config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("sync.timezone", "Asia/Kolkata")
	v.SetDefault("sync.resync_event_delay", 2*time.Second)
	v.SetDefault("sync.restart_delay", 5*time.Second)
	v.SetDefault("sync.net_restart_delay", 30*time.Second)
	v.SetDefault("sync.nightly_resync_hour", 3)
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.bulk_concurrency", 1)
	v.SetDefault("mail.bulk_delay", 2*time.Second)
}

// DSN builds the postgres connection string used by both GORM and the
// change-feed listener.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
