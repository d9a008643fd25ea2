package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port             string
	S3Bucket         string
	S3Region         string
	S3Endpoint       string
	AWSAccessKey     string
	AWSSecretKey     string
	CoffeeEndpoint   string
	UserEndpoint     string
	APIKey           string
	KafkaBrokers     []string
	KafkaMediaTopic  string
	UploadConcurrent int
}

func Load() *Config {
	return &Config{
		Port:             getEnv("PORT", "8080"),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3Region:         getEnv("S3_REGION", "sa-east-1"),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		AWSAccessKey:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
		CoffeeEndpoint:   getEnv("GRAPHQL_COFFEE_ENDPOINT", ""),
		UserEndpoint:     getEnv("GRAPHQL_USER_ENDPOINT", ""),
		APIKey:           getEnv("API_KEY", ""),
		KafkaBrokers:     splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaMediaTopic:  getEnv("KAFKA_MEDIA_TOPIC", "media-events"),
		UploadConcurrent: getEnvInt("UPLOAD_CONCURRENCY", 4),
	}
}

// MediaPolicy bounds what may be staged for one kind of media.
type MediaPolicy struct {
	AllowedMimes []string `yaml:"allowed_mimes"`
	SizeMaxBytes int64    `yaml:"size_max_bytes"`
	Folder       string   `yaml:"folder"`
}

type ThumbnailOptions struct {
	Width     int    `yaml:"width"`
	Quality   int    `yaml:"quality"`
	ConvertTo string `yaml:"convert_to"`
}

type MediaConfig struct {
	Policies   map[string]MediaPolicy `yaml:"policies"`
	Thumbnails ThumbnailOptions       `yaml:"thumbnails"`
}

func LoadMediaConfig() (*MediaConfig, error) {
	configPath := getEnv("MEDIA_CONFIG_PATH", "media-config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultMediaConfig(), nil
		}
		return nil, fmt.Errorf("failed to read media config: %w", err)
	}

	var config MediaConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse media config: %w", err)
	}

	if config.Thumbnails.Width == 0 {
		config.Thumbnails = DefaultMediaConfig().Thumbnails
	}

	return &config, nil
}

func (mc *MediaConfig) GetPolicy(kind string) *MediaPolicy {
	if policy, exists := mc.Policies[kind]; exists {
		return &policy
	}

	// Fall back to the built-in policy for the kind
	if policy, exists := DefaultMediaConfig().Policies[kind]; exists {
		return &policy
	}

	return nil
}

// DefaultMediaConfig holds the built-in ceilings: 5MB photos, 100MB
// videos, everything landing under the coffees/ folder.
func DefaultMediaConfig() *MediaConfig {
	return &MediaConfig{
		Policies: map[string]MediaPolicy{
			"photo": {
				AllowedMimes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
				SizeMaxBytes: 5 * 1024 * 1024,
				Folder:       "coffees",
			},
			"video": {
				AllowedMimes: []string{"video/mp4", "video/webm", "video/ogg", "video/quicktime", "video/x-msvideo"},
				SizeMaxBytes: 100 * 1024 * 1024,
				Folder:       "coffees",
			},
		},
		Thumbnails: ThumbnailOptions{
			Width:     200,
			Quality:   80,
			ConvertTo: "jpeg",
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
