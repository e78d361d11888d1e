package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"sheet_notify/internal/notifications"
	"sheet_notify/internal/settings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logLevels = map[string]zerolog.Level{
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"fatal":    zerolog.FatalLevel,
	"panic":    zerolog.PanicLevel,
	"disabled": zerolog.Disabled,
}

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	err := godotenv.Load()
	production := os.Getenv("ENV") == "production"

	if production {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	levelStr := strings.ToLower(os.Getenv("LOGLEVEL"))
	level, known := logLevels[levelStr]
	switch {
	case known:
		zerolog.SetGlobalLevel(level)
	case levelStr == "" && production:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case levelStr == "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
	}

	// wait until now to report on the .env file so we have the chance to set up logging first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

// GetEnvWithDefault fetches an environment variable with a default fallback.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Config is the process configuration read from the environment.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	ConfigSheet     string
	IntakeSheet     string
	JournalSheet    string

	TelegramToken  string
	TelegramChatID int64
	TelegramAPIURL string

	StateDriver string
	StatePath   string

	ListenAddr    string
	WebhookSecret string
	Location      *time.Location
}

// LoadConfig reads Config from the environment, reporting every missing or
// malformed variable at once.
func LoadConfig() (Config, error) {
	var errs []error
	required := func(key string) string {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			errs = append(errs, fmt.Errorf("%s environment variable is required", key))
		}
		return value
	}

	cfg := Config{
		SpreadsheetID:   required("SPREADSHEET_ID"),
		CredentialsFile: GetEnvWithDefault("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		ConfigSheet:     GetEnvWithDefault("CONFIG_SHEET_NAME", settings.DefaultConfigSheet),
		IntakeSheet:     GetEnvWithDefault("INTAKE_SHEET_NAME", "Заявки"),
		JournalSheet:    os.Getenv("JOURNAL_SHEET_NAME"),
		TelegramToken:   required("TELEGRAM_BOT_TOKEN"),
		TelegramAPIURL:  GetEnvWithDefault("TELEGRAM_API_URL", notifications.DefaultTelegramAPIURL),
		StateDriver:     GetEnvWithDefault("STATE_DRIVER", "sqlite"),
		StatePath:       GetEnvWithDefault("STATE_PATH", "data/state.db"),
		ListenAddr:      GetEnvWithDefault("LISTEN_ADDR", ":8080"),
		WebhookSecret:   os.Getenv("WEBHOOK_SECRET"),
	}

	if chatID := required("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TELEGRAM_CHAT_ID must be an integer: %w", err))
		}
		cfg.TelegramChatID = id
	}

	tz := GetEnvWithDefault("TIMEZONE", "Europe/Moscow")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err))
	}
	cfg.Location = loc

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
