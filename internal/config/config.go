package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"         validate:"required"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	LLM           LLMConfig           `mapstructure:"llm"            validate:"required"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Parser        ParserConfig        `mapstructure:"parser"         validate:"required"`
	Download      DownloadConfig      `mapstructure:"download"       validate:"required"`
	Storage       StorageConfig       `mapstructure:"storage"        validate:"required"`
	History       HistoryConfig       `mapstructure:"history"`
	TaskQueue     TaskQueueConfig     `mapstructure:"task_queue"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ShutdownTimeoutSeconds bounds how long serve waits for running jobs on exit.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
// An empty URL keeps history in memory.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// AuthConfig contains API authentication settings. An empty secret disables
// bearer-token authentication on the HTTP API.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"omitempty,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
}

// LLMConfig contains the rewrite backends and prompt settings.
type LLMConfig struct {
	// DefaultModel is used when a job names no model.
	DefaultModel string `mapstructure:"default_model" validate:"required"`
	// Prompts overrides the built-in system prompt per rewrite style.
	Prompts        map[string]string `mapstructure:"prompts"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds" validate:"gt=0"`
	MaxRetries     int               `mapstructure:"max_retries"     validate:"gte=0,lte=10"`

	Gemini   GeminiConfig        `mapstructure:"gemini"`
	Doubao   OpenAICompatibleLLM `mapstructure:"doubao"`
	DeepSeek OpenAICompatibleLLM `mapstructure:"deepseek"`
	Qianwen  OpenAICompatibleLLM `mapstructure:"qianwen"`
}

// GeminiConfig configures the Gemini rewrite backend.
type GeminiConfig struct {
	APIKey    string `mapstructure:"api_key"`
	ModelName string `mapstructure:"model_name"`
}

// OpenAICompatibleLLM configures a backend speaking the OpenAI chat
// completions protocol. A backend without an API key is not registered.
type OpenAICompatibleLLM struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// TranscriptionConfig configures the speech recognition backend.
type TranscriptionConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"        validate:"omitempty,url"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gt=0"`
}

// ParserConfig points at the media parser service that extracts audio
// tracks from platform videos.
type ParserConfig struct {
	URL            string `mapstructure:"url"             validate:"required,url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gt=0"`
}

// DownloadConfig configures file downloads.
type DownloadConfig struct {
	SaveDir        string `mapstructure:"save_dir"        validate:"required"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gt=0"`
	UserAgent      string `mapstructure:"user_agent"`
}

// StorageConfig configures where local audio files live.
type StorageConfig struct {
	AudioDir string `mapstructure:"audio_dir" validate:"required"`
}

// HistoryConfig configures the in-memory history store.
type HistoryConfig struct {
	MaxRecords int `mapstructure:"max_records" validate:"gte=0"`
}

// TaskQueueConfig configures the background job queue.
type TaskQueueConfig struct {
	// MaxConcurrent is the initial concurrency limit; values <= 0 fall back to 3.
	MaxConcurrent     int    `mapstructure:"max_concurrent"      validate:"lte=32"`
	RemoveDelayMillis int    `mapstructure:"remove_delay_millis" validate:"gte=0"`
	Admission         string `mapstructure:"admission"           validate:"oneof=lifo fifo"`
	EventBufferSize   int    `mapstructure:"event_buffer_size"   validate:"gte=0"`
}
