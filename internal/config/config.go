package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host                string `json:"host" yaml:"host"`
		Port                string `json:"port" yaml:"port"`
		ReadTimeoutSeconds  int    `json:"read_timeout_seconds" yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int    `json:"write_timeout_seconds" yaml:"write_timeout_seconds"`
		MaxUploadBytes      int64  `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	} `json:"server" yaml:"server"`

	Model struct {
		URL            string  `json:"url" yaml:"url"`
		MaxTokens      int     `json:"max_tokens" yaml:"max_tokens"`
		Temperature    float64 `json:"temperature" yaml:"temperature"`
		TopP           float64 `json:"top_p" yaml:"top_p"`
		RequestTimeout int     `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
		LoadMaxRetries int     `json:"load_max_retries" yaml:"load_max_retries"`
	} `json:"model" yaml:"model"`

	WebSocket struct {
		Enabled bool   `json:"enabled" yaml:"enabled"`
		Path    string `json:"path" yaml:"path"`
	} `json:"websocket" yaml:"websocket"`

	Database struct {
		Path string `json:"path" yaml:"path"`
	} `json:"database" yaml:"database"`

	Auth struct {
		Enabled   bool   `json:"enabled" yaml:"enabled"`
		SecretKey string `json:"secret_key" yaml:"secret_key"`
	} `json:"auth" yaml:"auth"`

	Logging struct {
		Level      string `json:"level" yaml:"level"`
		Format     string `json:"format" yaml:"format"`
		Directory  string `json:"directory" yaml:"directory"`
		FilePrefix string `json:"file_prefix" yaml:"file_prefix"`
	} `json:"logging" yaml:"logging"`
}

// Defaults applied when the config file leaves a field unset.
const (
	defaultMaxUploadBytes = 64 << 20
	defaultMaxTokens      = 1024
	defaultReadTimeout    = 30
	defaultWriteTimeout   = 300
	defaultRequestTimeout = 300
)

func LoadConfig(configPath string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(configPath)
	if err != nil {
		log.Printf("Error reading config file: %v", err)
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(configPath))
	if ext == ".yaml" || ext == ".yml" {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		log.Printf("Error parsing config file: %v", err)
		return nil, err
	}

	applyDefaults(&config)

	return &config, nil
}

func applyDefaults(c *Config) {
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = defaultMaxUploadBytes
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = defaultReadTimeout
	}
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = defaultWriteTimeout
	}
	if c.Model.MaxTokens <= 0 {
		c.Model.MaxTokens = defaultMaxTokens
	}
	if c.Model.Temperature <= 0 {
		c.Model.Temperature = 0.7
	}
	if c.Model.TopP <= 0 {
		c.Model.TopP = 0.9
	}
	if c.Model.RequestTimeout <= 0 {
		c.Model.RequestTimeout = defaultRequestTimeout
	}
	if c.WebSocket.Path == "" {
		c.WebSocket.Path = "/ws/chat"
	}
	if c.Logging.FilePrefix == "" {
		c.Logging.FilePrefix = "biocadapp"
	}
}
