package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only MQTT_HOST is required.
type Config struct {
	// Broker
	MQTTHost                  string
	MQTTPort                  int
	MQTTUsername              string
	MQTTPassword              string
	MQTTClientID              string
	MQTTQoS                   byte
	MQTTConnectTimeout        time.Duration
	MQTTConnectAttempts       int
	MQTTConnectInitialBackoff time.Duration
	MQTTConnectMaxBackoff     time.Duration

	// Media retrieval
	OutputDir string
	Fetcher   string
	YtDlpPath string

	// Job processing
	Workers            int
	QueueSize          int
	JobTimeout         time.Duration
	PublishTimeout     time.Duration
	DownloadRateLimit  int
	NotifyIncludeJobID bool
	JobHistorySize     int

	// Ops server
	HTTPPort        string
	ShutdownTimeout time.Duration

	LogLevel string
}

// Supported media fetchers.
const (
	FetcherYouTube = "youtube"
	FetcherYtDlp   = "ytdlp"
)

func Load() (*Config, error) {
	host := os.Getenv("MQTT_HOST")
	if host == "" {
		return nil, fmt.Errorf("MQTT_HOST is required")
	}

	port := getInt("MQTT_PORT", 1883)
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("MQTT_PORT must be between 1 and 65535, got %d", port)
	}

	qos := getInt("MQTT_QOS", 1)
	if qos < 0 || qos > 2 {
		return nil, fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", qos)
	}

	fetcher := strings.ToLower(getEnv("FETCHER", FetcherYouTube))
	if fetcher != FetcherYouTube && fetcher != FetcherYtDlp {
		return nil, fmt.Errorf("FETCHER must be %q or %q, got %q", FetcherYouTube, FetcherYtDlp, fetcher)
	}

	return &Config{
		MQTTHost:                  host,
		MQTTPort:                  port,
		MQTTUsername:              os.Getenv("MQTT_USERNAME"),
		MQTTPassword:              os.Getenv("MQTT_PASSWORD"),
		MQTTClientID:              getEnv("MQTT_CLIENT_ID", "video-worker-"+uuid.NewString()[:8]),
		MQTTQoS:                   byte(qos),
		MQTTConnectTimeout:        getDuration("MQTT_CONNECT_TIMEOUT", 10*time.Second),
		MQTTConnectAttempts:       max(getInt("MQTT_CONNECT_ATTEMPTS", 5), 1),
		MQTTConnectInitialBackoff: getDuration("MQTT_CONNECT_INITIAL_BACKOFF", time.Second),
		MQTTConnectMaxBackoff:     getDuration("MQTT_CONNECT_MAX_BACKOFF", 30*time.Second),

		OutputDir: getEnv("OUTPUT_DIR", "./downloads"),
		Fetcher:   fetcher,
		YtDlpPath: getEnv("YTDLP_PATH", "yt-dlp"),

		Workers:            max(getInt("WORKERS", 1), 1),
		QueueSize:          max(getInt("QUEUE_SIZE", 100), 1),
		JobTimeout:         getDuration("JOB_TIMEOUT", 30*time.Minute),
		PublishTimeout:     getDuration("PUBLISH_TIMEOUT", 10*time.Second),
		DownloadRateLimit:  getInt("DOWNLOAD_RATE_LIMIT", 0),
		NotifyIncludeJobID: getBool("NOTIFY_INCLUDE_JOB_ID", false),
		JobHistorySize:     max(getInt("JOB_HISTORY_SIZE", 500), 1),

		HTTPPort:        getEnv("HTTP_PORT", "9090"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}, nil
}

// BrokerURL is the paho broker address for the configured host and port.
func (c *Config) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTHost, c.MQTTPort)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
