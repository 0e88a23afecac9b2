package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds static application configuration loaded from environment.
// Operator-tunable behavior (schedule, approval mode, advance days) lives in
// the settings table and is snapshotted once per cycle instead.
type Config struct {
	DB struct {
		DSN string
	}
	Weather struct {
		APIKey   string
		GeoHost  string
		APIHost  string
		Timeout  time.Duration
		CacheTTL time.Duration
	}
	Email struct {
		SMTPServer    string
		SMTPPort      int
		Username      string
		Password      string
		Sender        string
		FromName      string
		AttachmentDir string
		RateLimit     int
	}
	Telegram struct {
		BotToken string
		ChatID   int64
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	API struct {
		Port     string
		BasePath string
	}
	Logging struct {
		Dir   string
		Level string
	}
	Dispatch struct {
		BatchSize int
	}
	DataDir string
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.DB.DSN = os.Getenv("DB_DSN")

	// Weather provider settings
	cfg.Weather.APIKey = os.Getenv("WEATHER_API_KEY")
	cfg.Weather.GeoHost = os.Getenv("WEATHER_GEO_HOST")
	cfg.Weather.APIHost = os.Getenv("WEATHER_API_HOST")
	if secs, err := strconv.Atoi(os.Getenv("WEATHER_TIMEOUT_SECONDS")); err == nil {
		cfg.Weather.Timeout = time.Duration(secs) * time.Second
	}
	if secs, err := strconv.Atoi(os.Getenv("WEATHER_CACHE_TTL_SECONDS")); err == nil {
		cfg.Weather.CacheTTL = time.Duration(secs) * time.Second
	}

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	if p, err := strconv.Atoi(os.Getenv("EMAIL_SMTP_PORT")); err == nil {
		cfg.Email.SMTPPort = p
	}
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	cfg.Email.Sender = os.Getenv("EMAIL_SENDER")
	cfg.Email.FromName = os.Getenv("EMAIL_FROM_NAME")
	cfg.Email.AttachmentDir = os.Getenv("EMAIL_ATTACHMENT_DIR")
	if r, err := strconv.Atoi(os.Getenv("EMAIL_RATE_LIMIT")); err == nil {
		cfg.Email.RateLimit = r
	}

	// Telegram admin channel (optional)
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}

	// Kafka trigger topic (optional; empty broker disables the consumer)
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Logging settings
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	if bs, err := strconv.Atoi(os.Getenv("DISPATCH_BATCH_SIZE")); err == nil {
		cfg.Dispatch.BatchSize = bs
	}
	cfg.DataDir = os.Getenv("DATA_DIR")

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.Weather.APIKey == "" {
		missing = append(missing, "WEATHER_API_KEY")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Weather.GeoHost == "" {
		cfg.Weather.GeoHost = "https://geoapi.qweather.com"
	}
	if cfg.Weather.APIHost == "" {
		cfg.Weather.APIHost = "https://api.qweather.com"
	}
	if cfg.Weather.Timeout == 0 {
		cfg.Weather.Timeout = 15 * time.Second
	}
	if cfg.Weather.CacheTTL == 0 {
		cfg.Weather.CacheTTL = 2 * time.Hour
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.Email.AttachmentDir == "" {
		cfg.Email.AttachmentDir = "attachments"
	}
	if cfg.Email.RateLimit == 0 {
		cfg.Email.RateLimit = 10
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "skyalert"
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Dispatch.BatchSize == 0 {
		cfg.Dispatch.BatchSize = 50
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}

	return cfg, nil
}
