package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// AliyunConfig 大模型服务配置（OpenAI兼容接口）
type AliyunConfig struct {
	APIKey string `yaml:"api_key"`
	APIURL string `yaml:"api_url"`
	Model  string `yaml:"model"`
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Address string `yaml:"address"`
}

// RedisConfig holds configuration for Redis
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`      // 连接池大小
	MinIdleConns int `yaml:"min_idle_conns"` // 最小空闲连接数
	// 超时设置
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`  // 连接超时(秒)
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`  // 读取超时(秒)
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"` // 写入超时(秒)
	// 会话状态过期时间(小时)，0表示不过期
	SessionTTLHours int `yaml:"session_ttl_hours"`
}

// SessionConfig 会话存储配置
type SessionConfig struct {
	// Backend 会话存储后端: "memory"（默认，进程内）或 "redis"
	Backend string `yaml:"backend"`
}

// PipelineConfig 流水线行为配置
type PipelineConfig struct {
	// StageTimeoutSeconds 单次LLM调用的超时(秒)
	StageTimeoutSeconds int `yaml:"stage_timeout_seconds"`
	// MaxRetries 单阶段LLM调用的最大重试次数。
	// 0或缺省回落到默认值，负值显式关闭重试
	MaxRetries int `yaml:"max_retries"`
	// SummaryCacheMaxEntries 摘要缓存的最大条目数，写满后静默丢弃新条目
	SummaryCacheMaxEntries int `yaml:"summary_cache_max_entries"`
	// SummaryChunkSize 摘要流式下发时的切片大小(字节)
	SummaryChunkSize int `yaml:"summary_chunk_size"`
	// StreamIntervalMS 切片之间的停顿(毫秒)，仅用于打字机效果。
	// 0或缺省回落到默认值，负值显式关闭停顿
	StreamIntervalMS int `yaml:"stream_interval_ms"`
	// StreamMode 摘要下发模式: "chunked"（生成完再切片重放）或 "incremental"（边生成边下发）
	StreamMode string `yaml:"stream_mode"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	TimeFormat   string `yaml:"time_format"`
	ReportCaller bool   `yaml:"report_caller"`
}

// Config 应用程序配置
type Config struct {
	Aliyun   AliyunConfig   `yaml:"aliyun"`
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Session  SessionConfig  `yaml:"session"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logger   LoggerConfig   `yaml:"logger"`
}

// LoadConfig 加载配置文件。configPath为空时按默认路径查找，
// 找不到配置文件时（例如测试环境）退回默认配置。
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		candidates := []string{
			"config.yaml",
			filepath.Join("internal", "config", "config.yaml"),
			filepath.Join(os.Getenv("HOME"), ".resume-agent", "config.yaml"),
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				configPath = c
				break
			}
		}
		if configPath == "" {
			return applyDefaults(&Config{}), nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 从环境变量覆盖配置（如果存在）
	if envKey := os.Getenv("ALIYUN_API_KEY"); envKey != "" {
		config.Aliyun.APIKey = envKey
	}
	if envURL := os.Getenv("ALIYUN_API_URL"); envURL != "" {
		config.Aliyun.APIURL = envURL
	}
	if envModel := os.Getenv("ALIYUN_MODEL"); envModel != "" {
		config.Aliyun.Model = envModel
	}
	if envAddr := os.Getenv("REDIS_ADDRESS"); envAddr != "" {
		config.Redis.Address = envAddr
	}

	return applyDefaults(&config), nil
}

// LoadConfigFromFileOnly 从文件加载配置，不从环境变量覆盖
func LoadConfigFromFileOnly(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("必须提供配置文件路径")
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return applyDefaults(&config), nil
}

// applyDefaults 填充未显式配置的默认值
func applyDefaults(config *Config) *Config {
	if config.Server.Address == "" {
		config.Server.Address = ":8080"
	}
	if config.Session.Backend == "" {
		config.Session.Backend = "memory"
	}
	if config.Pipeline.StageTimeoutSeconds <= 0 {
		config.Pipeline.StageTimeoutSeconds = 60
	}
	if config.Pipeline.MaxRetries < 0 {
		config.Pipeline.MaxRetries = 0
	} else if config.Pipeline.MaxRetries == 0 {
		config.Pipeline.MaxRetries = 2
	}
	if config.Pipeline.SummaryCacheMaxEntries <= 0 {
		config.Pipeline.SummaryCacheMaxEntries = 1024
	}
	if config.Pipeline.SummaryChunkSize <= 0 {
		config.Pipeline.SummaryChunkSize = 50
	}
	if config.Pipeline.StreamIntervalMS < 0 {
		config.Pipeline.StreamIntervalMS = 0
	} else if config.Pipeline.StreamIntervalMS == 0 {
		config.Pipeline.StreamIntervalMS = 100
	}
	if config.Pipeline.StreamMode == "" {
		config.Pipeline.StreamMode = "chunked"
	}
	if config.Logger.Level == "" {
		config.Logger.Level = "info"
	}
	if config.Logger.Format == "" {
		config.Logger.Format = "json"
	}
	if config.Redis.SessionTTLHours < 0 {
		config.Redis.SessionTTLHours = 0
	}
	return config
}

// StageTimeout 返回单次LLM调用的超时时长
func (p PipelineConfig) StageTimeout() time.Duration {
	return time.Duration(p.StageTimeoutSeconds) * time.Second
}

// StreamInterval 返回切片之间的停顿时长
func (p PipelineConfig) StreamInterval() time.Duration {
	return time.Duration(p.StreamIntervalMS) * time.Millisecond
}

// SessionTTL 返回Redis会话状态的过期时长，0表示不过期
func (r RedisConfig) SessionTTL() time.Duration {
	return time.Duration(r.SessionTTLHours) * time.Hour
}
