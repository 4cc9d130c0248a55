package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Recognition engine
	ProviderType                string  `envconfig:"PROVIDER_TYPE" default:"rekognition"`
	AWSRegion                    string  `envconfig:"AWS_REGION" default:"us-east-1"`
	RecognitionCollectionPrefix string  `envconfig:"RECOGNITION_COLLECTION_PREFIX" default:"face_coll_"`
	SimilarityThreshold          float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.85"`
	MaxMatches                   int     `envconfig:"MAX_MATCHES" default:"20"`

	// Grouping
	BoundingBoxTolerance float64       `envconfig:"BOUNDING_BOX_TOLERANCE" default:"0.05"`
	HeadTimeout          time.Duration `envconfig:"HEAD_TIMEOUT_MS" default:"5000ms"`

	// Test-only operations (clearAllGroups)
	TestUserID string `envconfig:"TEST_USER_ID"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
