package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	DatabaseURL          string
	DatabasePath         string
	LocalTimezone        *time.Location
	Headless             bool
	Bell                 bool
	LogFile              string
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string
	NotifyWhatsApp       string
	OpenAIAPIKey         string
}

// Load reads configuration values and prepares defaults where applicable.
func Load() *Config {
	_ = godotenv.Load()

	timezoneName := getenvDefault("LOCAL_TIMEZONE", "Local")
	location, err := time.LoadLocation(timezoneName)
	if err != nil {
		log.Printf("config: invalid LOCAL_TIMEZONE %q, defaulting to system local: %v", timezoneName, err)
		location = time.Local
	}

	return &Config{
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		DatabasePath:         getenvDefault("ALARM_DB_PATH", "alarms.db"),
		LocalTimezone:        location,
		Headless:             ParseBoolEnv("ALARM_HEADLESS", false),
		Bell:                 ParseBoolEnv("ALARM_BELL", true),
		LogFile:              getenvDefault("ALARM_LOG_FILE", "alarm.log"),
		TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
		NotifyWhatsApp:       os.Getenv("ALARM_NOTIFY_WHATSAPP"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
	}
}

// RelayEnabled reports whether due alarms should be forwarded over WhatsApp.
func (c *Config) RelayEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" &&
		c.TwilioWhatsAppNumber != "" && c.NotifyWhatsApp != ""
}

func getenvDefault(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

// ParseBoolEnv returns the boolean value for an environment variable or the provided default.
func ParseBoolEnv(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("config: unable to parse %s=%q as bool: %v", key, value, err)
		return def
	}
	return parsed
}
