package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"moodle-portal/internal/sftpclient"
)

type Config struct {
	Env      string
	LogLevel string

	// Moodle
	MoodleURL             string
	MoodleEndpoint        string
	MoodleToken           string
	MoodleHTTPTimeout     time.Duration
	MoodleHTTPAttempts    int
	MoodleDefaultCategory int64
	SignupCity            string
	SignupCountry         string

	// Portal
	Addr             string
	SessionDriver    string // sqlite | memory
	SessionDSN       string
	SessionSecret    string
	NotificationTTL  time.Duration
	SSOFallbackDelay time.Duration
	LoginRatePerMin  int

	// Report upload
	SFTP sftpclient.Config
}

// Load reads configuration from the environment. A .env file in the working
// directory, or the file named by ENV_FILE, is loaded first when present;
// variables already set in the environment win.
func Load() Config {
	loadDotEnv()
	v := newViper()

	return Config{
		Env:      strings.ToLower(v.GetString("ENV")),
		LogLevel: v.GetString("LOG_LEVEL"),

		MoodleURL:             strings.TrimRight(v.GetString("MOODLE_URL"), "/"),
		MoodleEndpoint:        v.GetString("MOODLE_WS_ENDPOINT"),
		MoodleToken:           v.GetString("MOODLE_TOKEN"),
		MoodleHTTPTimeout:     v.GetDuration("MOODLE_HTTP_TIMEOUT"),
		MoodleHTTPAttempts:    v.GetInt("MOODLE_HTTP_ATTEMPTS"),
		MoodleDefaultCategory: v.GetInt64("MOODLE_DEFAULT_CATEGORY"),
		SignupCity:            v.GetString("MOODLE_SIGNUP_CITY"),
		SignupCountry:         v.GetString("MOODLE_SIGNUP_COUNTRY"),

		Addr:             v.GetString("PORTAL_ADDR"),
		SessionDriver:    strings.ToLower(v.GetString("SESSION_DRIVER")),
		SessionDSN:       v.GetString("SESSION_DSN"),
		SessionSecret:    v.GetString("SESSION_SECRET"),
		NotificationTTL:  v.GetDuration("NOTIFICATION_TTL"),
		SSOFallbackDelay: v.GetDuration("SSO_FALLBACK_DELAY"),
		LoginRatePerMin:  v.GetInt("LOGIN_RATE_PER_MIN"),

		SFTP: sftpclient.Config{
			Host:                  v.GetString("SFTP_HOST"),
			Port:                  v.GetInt("SFTP_PORT"),
			User:                  v.GetString("SFTP_USER"),
			Pass:                  v.GetString("SFTP_PASS"),
			RemoteDir:             v.GetString("SFTP_DIR"),
			InsecureIgnoreHostKey: v.GetBool("SFTP_INSECURE_IGNORE_HOST_KEY"),
			KnownHosts:            v.GetString("SFTP_KNOWN_HOSTS"),
		},
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("ENV", "prod")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("MOODLE_URL", "")
	v.SetDefault("MOODLE_WS_ENDPOINT", "")
	v.SetDefault("MOODLE_TOKEN", "")
	v.SetDefault("MOODLE_HTTP_TIMEOUT", 30*time.Second)
	v.SetDefault("MOODLE_HTTP_ATTEMPTS", 1)
	v.SetDefault("MOODLE_DEFAULT_CATEGORY", int64(1))
	v.SetDefault("MOODLE_SIGNUP_CITY", "Dubai")
	v.SetDefault("MOODLE_SIGNUP_COUNTRY", "AE")

	v.SetDefault("PORTAL_ADDR", ":8080")
	v.SetDefault("SESSION_DRIVER", "sqlite")
	v.SetDefault("SESSION_DSN", "file:portal-sessions.db")
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("NOTIFICATION_TTL", 5*time.Second)
	v.SetDefault("SSO_FALLBACK_DELAY", 5*time.Second)
	v.SetDefault("LOGIN_RATE_PER_MIN", 10)

	v.SetDefault("SFTP_HOST", "")
	v.SetDefault("SFTP_PORT", 22)
	v.SetDefault("SFTP_USER", "")
	v.SetDefault("SFTP_PASS", "")
	v.SetDefault("SFTP_DIR", "/")
	v.SetDefault("SFTP_INSECURE_IGNORE_HOST_KEY", false)
	v.SetDefault("SFTP_KNOWN_HOSTS", "")

	v.AutomaticEnv()
	return v
}

func loadDotEnv() {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err == nil {
		// godotenv.Load never overrides variables that are already set.
		_ = godotenv.Load(path)
	}
}

// Validate reports the settings every command needs.
func (c Config) Validate() error {
	var missing []string
	if c.MoodleURL == "" {
		missing = append(missing, "MOODLE_URL")
	}
	if c.MoodleToken == "" {
		missing = append(missing, "MOODLE_TOKEN")
	}
	if len(missing) > 0 {
		return errors.New("config: missing env " + strings.Join(missing, " / "))
	}
	return nil
}

// SFTPEnabled reports whether report upload is configured.
func (c Config) SFTPEnabled() bool {
	return c.SFTP.Host != "" && c.SFTP.User != ""
}

func (c Config) IsDev() bool { return c.Env == "dev" }
