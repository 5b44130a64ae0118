package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"cropyield/internal/errors"

	"github.com/go-playground/validator/v10"
)

// Artifact store drivers
const (
	DriverFS       = "fs"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
)

// Config represents the complete application configuration
type Config struct {
	Dataset   DatasetConfig  `validate:"required"`
	Artifacts ArtifactConfig `validate:"required"`
	Training  TrainingConfig `validate:"required"`
	Server    ServerConfig   `validate:"required"`
	LogLevel  string         `validate:"omitempty,oneof=ERROR WARN INFO DEBUG TRACE"`
}

// DatasetConfig locates the training dataset
type DatasetConfig struct {
	File  string `validate:"required"`
	Sheet string `validate:"required"`
}

// ArtifactConfig selects and configures the artifact store backend
type ArtifactConfig struct {
	Driver      string `validate:"required,oneof=fs sqlite postgres s3"`
	Dir         string `validate:"required_if=Driver fs"`
	SQLitePath  string `validate:"required_if=Driver sqlite"`
	DatabaseURL string `validate:"required_if=Driver postgres"`
	S3Bucket    string `validate:"required_if=Driver s3"`
	S3Region    string
	S3Endpoint  string `validate:"omitempty,url"`
	S3Prefix    string
	S3PathStyle bool
}

// TrainingConfig fixes the evaluation protocol
type TrainingConfig struct {
	Seed         int64
	TestFraction float64 `validate:"gt=0,lt=1"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port     string `validate:"required,numeric"`
	APIToken string
}

var validate = validator.New()

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Dataset:   loadDatasetConfig(),
		Artifacts: loadArtifactConfig(),
		Training:  loadTrainingConfig(),
		Server:    loadServerConfig(),
		LogLevel:  strings.ToUpper(getEnvOrDefault("LOG_LEVEL", "")),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDatasetConfig() DatasetConfig {
	return DatasetConfig{
		File:  getEnvOrDefault("DATASET_FILE", "train.csv"),
		Sheet: getEnvOrDefault("DATASET_SHEET", "Sheet1"),
	}
}

func loadArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		Driver:      strings.ToLower(getEnvOrDefault("ARTIFACT_DRIVER", DriverFS)),
		Dir:         getEnvOrDefault("ARTIFACT_DIR", "artifacts"),
		SQLitePath:  getEnvOrDefault("ARTIFACT_SQLITE_PATH", "artifacts/artifacts.db"),
		DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
		S3Bucket:    getEnvOrDefault("ARTIFACT_S3_BUCKET", ""),
		S3Region:    getEnvOrDefault("ARTIFACT_S3_REGION", "us-east-1"),
		S3Endpoint:  getEnvOrDefault("ARTIFACT_S3_ENDPOINT", ""),
		S3Prefix:    getEnvOrDefault("ARTIFACT_S3_PREFIX", "cropyield"),
		S3PathStyle: getEnvBoolOrDefault("ARTIFACT_S3_PATH_STYLE", false),
	}
}

func loadTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Seed:         int64(getEnvIntOrDefault("TRAINING_SEED", 42)),
		TestFraction: getEnvFloatOrDefault("TRAINING_TEST_FRACTION", 0.2),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:     getEnvOrDefault("PORT", "8080"),
		APIToken: getEnvOrDefault("API_TOKEN", ""),
	}
}

// validateConfig reports the first failing field as CONFIG_INVALID.
func validateConfig(config *Config) error {
	err := validate.Struct(config)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return errors.ConfigInvalid(fmt.Sprintf("%s failed %q validation", fe.Namespace(), fe.Tag()))
	}
	return errors.WithCode(errors.CodeConfigInvalid, err)
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
