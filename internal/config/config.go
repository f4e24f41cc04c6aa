package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rgeorgiev/filemon/internal/utils"
)

// Environment is a named configuration profile selecting the watched folder.
type Environment string

const (
	EnvDev  Environment = "dev"
	EnvLive Environment = "live"
)

// Required environment variables. All of them must be set and non-empty.
var requiredVars = []string{
	"TELEGRAM_BOT_TOKEN",
	"TELEGRAM_CHAT_ID",
	"FOLDER_MONITOR_LIVE",
	"FOLDER_MONITOR_DEV",
	"FILE_EXTENSIONS",
	"LOG_TYPE",
	"LOG_FOLDER",
}

// Config holds the full daemon configuration. It is built once at startup
// and never mutated afterwards.
type Config struct {
	BotToken    string        // Telegram bot token
	ChatID      string        // Telegram chat to notify
	Environment Environment   // Selected profile: dev or live
	WatchFolder string        // Directory to watch (resolved for the selected profile)
	Extensions  []string      // Monitored extensions, lower-cased, no leading dot
	Exclude     []string      // Glob patterns that suppress notification
	LogLevel    string        // ERROR, WARNING, INFO or DEBUG
	LogFolder   string        // Directory receiving log files
	Verbose     bool          // Mirror logs to the console
	Daemonize   bool          // If true, run as daemon; if false, run in foreground
	Delay       time.Duration // Settle delay before processing created files
	Desktop     bool          // If true, also send desktop notifications
}

// Load reads configuration from the process environment, optionally seeded
// from a dot-env file. Values already present in the environment take
// precedence over the file. The watched folder is picked by env.
func Load(envFile string, env Environment) (*Config, error) {
	if env != EnvDev && env != EnvLive {
		return nil, fmt.Errorf("invalid environment %q (expected %q or %q)", env, EnvDev, EnvLive)
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
		}
	}

	var missing []string
	for _, name := range requiredVars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	chatID := os.Getenv("TELEGRAM_CHAT_ID")
	if err := validateChatID(chatID); err != nil {
		return nil, err
	}

	logLevel := strings.ToUpper(os.Getenv("LOG_TYPE"))
	switch logLevel {
	case "ERROR", "WARNING", "INFO", "DEBUG":
	default:
		return nil, fmt.Errorf("invalid LOG_TYPE %q (expected ERROR, WARNING, INFO or DEBUG)", os.Getenv("LOG_TYPE"))
	}

	extensions := splitList(os.Getenv("FILE_EXTENSIONS"), func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "."))
	})
	if len(extensions) == 0 {
		return nil, fmt.Errorf("FILE_EXTENSIONS must contain at least one extension")
	}

	folderVar := "FOLDER_MONITOR_DEV"
	if env == EnvLive {
		folderVar = "FOLDER_MONITOR_LIVE"
	}
	folder := utils.ExpandTilde(os.Getenv(folderVar))
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("watched folder %s (%s) does not exist: %w", folder, folderVar, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watched folder %s (%s) is not a directory", folder, folderVar)
	}

	return &Config{
		BotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		ChatID:      chatID,
		Environment: env,
		WatchFolder: folder,
		Extensions:  extensions,
		Exclude:     splitList(os.Getenv("FILE_EXCLUDE_PATTERNS"), nil),
		LogLevel:    logLevel,
		LogFolder:   utils.ExpandTilde(os.Getenv("LOG_FOLDER")),
	}, nil
}

// validateChatID accepts a numeric chat id or a public @channel name.
func validateChatID(id string) error {
	if strings.HasPrefix(id, "@") && len(id) > 1 {
		return nil
	}
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q (expected an integer or @channel name)", id)
	}
	return nil
}

// splitList splits a comma-separated value, trimming whitespace and dropping
// empty entries. An optional normalize function is applied to each entry.
func splitList(value string, normalize func(string) string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if normalize != nil {
			part = normalize(part)
		}
		out = append(out, part)
	}
	return out
}
