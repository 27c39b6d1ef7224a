package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "CLIPSCRIBE"

// defaults lists every configuration key with its default value. Registering
// each key lets AutomaticEnv override keys that appear in no config file.
var defaults = map[string]any{
	"server.port":                     8080,
	"server.log_level":                "info",
	"server.shutdown_timeout_seconds": 30,

	"database.url": "",

	"auth.jwt_secret":             "",
	"auth.token_lifetime_minutes": 60 * 24,

	"llm.default_model":     "doubao",
	"llm.timeout_seconds":   120,
	"llm.max_retries":       3,
	"llm.gemini.api_key":    "",
	"llm.gemini.model_name": "gemini-2.0-flash",
	"llm.doubao.api_key":    "",
	"llm.doubao.model":      "doubao-seed-1-6-251015",
	"llm.doubao.base_url":   "https://ark.cn-beijing.volces.com/api/v3",
	"llm.deepseek.api_key":  "",
	"llm.deepseek.model":    "deepseek-chat",
	"llm.deepseek.base_url": "https://api.deepseek.com",
	"llm.qianwen.api_key":   "",
	"llm.qianwen.model":     "qwen-plus",
	"llm.qianwen.base_url":  "https://dashscope.aliyuncs.com/compatible-mode/v1",

	"transcription.api_key":         "",
	"transcription.base_url":        "",
	"transcription.model":           "whisper-1",
	"transcription.timeout_seconds": 120,

	"parser.url":             "http://127.0.0.1:3721",
	"parser.timeout_seconds": 120,

	"download.save_dir":        "downloads",
	"download.timeout_seconds": 600,
	"download.user_agent":      "",

	"storage.audio_dir": "data/audio",

	"history.max_records": 100,

	"task_queue.max_concurrent":      3,
	"task_queue.remove_delay_millis": 1500,
	"task_queue.admission":           "lifo",
	"task_queue.event_buffer_size":   500,
}

// secretEnvs are bound explicitly so they are honoured even when a config
// file leaves the key out.
var secretEnvs = []string{
	"database.url",
	"auth.jwt_secret",
	"llm.gemini.api_key",
	"llm.doubao.api_key",
	"llm.deepseek.api_key",
	"llm.qianwen.api_key",
	"transcription.api_key",
}

// Load reads configuration from defaults, the YAML file at path (skipped when
// path is empty) and environment variables, in increasing precedence, and
// validates the result.
func Load(path string) (*Config, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// LoadEnvFile loads KEY=VALUE pairs from the given .env files into the
// process environment without overriding variables that are already set.
// Missing files are ignored.
func LoadEnvFile(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range secretEnvs {
		envVar := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", envVar, err)
		}
	}

	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
