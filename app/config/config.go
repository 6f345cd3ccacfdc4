package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Transfer    TransferConfig    `mapstructure:"transfer"`
	Retry       RetryConfig       `mapstructure:"retry"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	Notion      NotionConfig      `mapstructure:"notion"`
	Speech      SpeechConfig      `mapstructure:"speech"`
	Transcriber TranscriberConfig `mapstructure:"transcriber"`
	Monitor     MonitorConfig     `mapstructure:"monitor"`
}

type ServerConfig struct {
	Port            string `mapstructure:"port"`
	TranscriberPort string `mapstructure:"transcriber_port"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	Dir        string `mapstructure:"dir"`         // 日志目录
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite, postgres 或 mysql
	DSN    string `mapstructure:"dsn"`
}

type AuthConfig struct {
	WebhookSecret      string `mapstructure:"webhook_secret"`       // 阶段间调用的共享密钥
	SlackSigningSecret string `mapstructure:"slack_signing_secret"` // Slack 签名密钥
	SlackBotToken      string `mapstructure:"slack_bot_token"`
}

type StorageConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	Region       string        `mapstructure:"region"`
	AccessKey    string        `mapstructure:"access_key"`
	SecretKey    string        `mapstructure:"secret_key"`
	Bucket       string        `mapstructure:"bucket"`
	PathStyle    bool          `mapstructure:"path_style"`
	SignedURLTTL time.Duration `mapstructure:"signed_url_ttl"`
}

type PipelineConfig struct {
	AppURL          string        `mapstructure:"app_url"`         // 本服务对外地址，用于阶段间回调
	TranscriberURL  string        `mapstructure:"transcriber_url"` // 转写 worker 地址
	SummarizeURL    string        `mapstructure:"summarize_url"`   // worker 回调摘要地址，为空时由 app_url 推导
	AudioBucket     string        `mapstructure:"audio_bucket"`
	AutoStart       bool          `mapstructure:"auto_start"`
	HandoffTimeout  time.Duration `mapstructure:"handoff_timeout"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
}

type TransferConfig struct {
	Mode           string `mapstructure:"mode"` // stream 或 buffer
	MaxBufferBytes int64  `mapstructure:"max_buffer_bytes"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

type GeminiConfig struct {
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model"`
	BaseURL             string        `mapstructure:"base_url"`
	MaxTranscriptTokens int           `mapstructure:"max_transcript_tokens"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

type NotionConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Version string `mapstructure:"version"`
	BaseURL string `mapstructure:"base_url"`
}

type SpeechConfig struct {
	Provider     string        `mapstructure:"provider"` // whisper 或 google
	OpenAIKey    string        `mapstructure:"openai_key"`
	OpenAIURL    string        `mapstructure:"openai_url"`
	WhisperModel string        `mapstructure:"whisper_model"`
	GoogleKey    string        `mapstructure:"google_key"`
	GoogleURL    string        `mapstructure:"google_url"`
	Language     string        `mapstructure:"language"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
}

type TranscriberConfig struct {
	Async   bool   `mapstructure:"async"`
	WorkDir string `mapstructure:"work_dir"`
	FFmpeg  string `mapstructure:"ffmpeg"` // 为空时使用 PATH 中的 ffmpeg
}

type MonitorConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Spec       string        `mapstructure:"spec"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// SummarizeEndpoint 返回 worker 完成转写后应回调的摘要地址
func (c *Config) SummarizeEndpoint() string {
	if c.Pipeline.SummarizeURL != "" {
		return c.Pipeline.SummarizeURL
	}
	return c.StageURL("/api/summarize-task")
}

// StageURL 拼接本服务的阶段地址，app_url 未设置时返回空串
func (c *Config) StageURL(path string) string {
	if c.Pipeline.AppURL == "" {
		return ""
	}
	return strings.TrimRight(c.Pipeline.AppURL, "/") + path
}

func Load() *Config {
	config, err := LoadFrom(viper.GetViper())
	if err != nil {
		log.Fatalf("%v", err)
	}
	return config
}

// LoadFrom 从给定的 viper 实例读取配置，便于测试时隔离全局状态
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// 读取配置
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("未找到配置文件，使用默认配置")
		} else {
			return nil, fmt.Errorf("读取配置文件出错: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解码配置: %w", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &config, nil
}

// setDefaults 设置默认配置
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.transcriber_port", "8080")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.dir", "data/logs")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/mtglog.db")

	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "videos")
	v.SetDefault("storage.path_style", true)
	v.SetDefault("storage.signed_url_ttl", 30*time.Minute)

	v.SetDefault("pipeline.audio_bucket", "transcription-audio")
	v.SetDefault("pipeline.auto_start", false)
	v.SetDefault("pipeline.handoff_timeout", 10*time.Second)
	v.SetDefault("pipeline.dispatch_timeout", 30*time.Second)

	v.SetDefault("transfer.mode", "stream")
	v.SetDefault("transfer.max_buffer_bytes", int64(512<<20))

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", time.Second)

	v.SetDefault("gemini.model", "gemini-pro")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.max_transcript_tokens", 15000)
	v.SetDefault("gemini.timeout", 2*time.Minute)

	v.SetDefault("notion.version", "2022-06-28")
	v.SetDefault("notion.base_url", "https://api.notion.com")

	v.SetDefault("speech.provider", "whisper")
	v.SetDefault("speech.openai_url", "https://api.openai.com")
	v.SetDefault("speech.whisper_model", "whisper-1")
	v.SetDefault("speech.google_url", "https://speech.googleapis.com")
	v.SetDefault("speech.language", "ja-JP")
	v.SetDefault("speech.poll_interval", 5*time.Second)
	v.SetDefault("speech.poll_timeout", 30*time.Minute)

	v.SetDefault("transcriber.async", true)
	v.SetDefault("transcriber.work_dir", "")

	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.spec", "@every 10m")
	v.SetDefault("monitor.stale_after", time.Hour)
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	switch config.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", config.Database.Driver)
	}
	switch config.Transfer.Mode {
	case "stream", "buffer":
	default:
		return fmt.Errorf("不支持的传输模式: %s", config.Transfer.Mode)
	}
	if config.Retry.MaxAttempts < 1 {
		return fmt.Errorf("重试次数必须大于 0")
	}
	return nil
}
