package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv        string `yaml:"app_env"`
	HTTPAddr      string `yaml:"http_addr"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"-"`

	// Defaults applied to run requests that leave these blank.
	OutputDir      string `yaml:"output_dir"`
	ImageSubFolder string `yaml:"image_subfolder"`
	Concurrency    int    `yaml:"concurrency"`

	// Browser timing, milliseconds.
	NavTimeoutMs  int `yaml:"nav_timeout_ms"`
	IdleTimeoutMs int `yaml:"idle_timeout_ms"`

	LLMProvider     string `yaml:"llm_provider"`
	GeminiAPIKey    string `yaml:"-"`
	DefaultLLMModel string `yaml:"llm_model"`

	SupabaseURL        string `yaml:"-"`
	SupabaseServiceKey string `yaml:"-"`
	SupabaseBucket     string `yaml:"supabase_bucket"`

	TaskMaxRetries int `yaml:"task_max_retries"`
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// Load builds the process configuration from the environment. Secrets
// (GEMINI_API_KEY, redis and Supabase credentials) are only ever read here,
// never from run requests.
func Load() Config {
	cfg := Config{
		AppEnv:        getenv("APP_ENV", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8081"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		OutputDir:      getenv("OUTPUT_DIR", "./output"),
		ImageSubFolder: getenv("IMAGE_SUBFOLDER", "images"),
		Concurrency:    getenvInt("CONCURRENCY", 3),

		NavTimeoutMs:  getenvInt("NAV_TIMEOUT_MS", 30000),
		IdleTimeoutMs: getenvInt("IDLE_TIMEOUT_MS", 5000),

		LLMProvider:     getenv("LLM_PROVIDER", "gemini"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		DefaultLLMModel: getenv("DEFAULT_LLM_MODEL", "gemini-1.5-flash"),

		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:     getenv("SUPABASE_STORAGE_BUCKET", "harvest-artifacts"),

		TaskMaxRetries: getenvInt("TASK_MAX_RETRIES", 1),
	}
	if cfg.RedisAddr == "" {
		panic(fmt.Errorf("REDIS_ADDR is required"))
	}
	return cfg
}

// LoadFile overlays settings from a YAML file onto cfg. Unset file fields keep
// the environment-derived values.
func LoadFile(cfg Config, path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}
