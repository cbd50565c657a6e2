// config/config.go
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go_stub_server/utils"
)

const (
	MirrorDriverNone  = "none"
	MirrorDriverRedis = "redis"
	MirrorDriverMySQL = "mysql"
)

// ConfigPath 配置文件路径, 为空时按环境变量查找
type ConfigPath string

// RuleConfig 服务配置
type RuleConfig struct {
	ServerConfig         ServerConfig         `yaml:"server"`
	LogConfig            utils.LogOptions     `yaml:"log"`
	MirrorConfig         MirrorConfig         `yaml:"mirror"`
	DatabaseConfig       DatabaseConfig       `yaml:"database"`
	DatabaseOptionConfig DatabaseOptionConfig `yaml:"databaseConfig"`
	RedisConfig          RedisConfig          `yaml:"redis"`
	RuleRepoConfig       RuleRepoConfig       `yaml:"ruleRepo"`
}

// ServerConfig 监听与请求体限制
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	MaxBodySize  int64         `yaml:"maxBodySize"`  // bytes, 默认 1mb
	ExtraMethods []string      `yaml:"extraMethods"` // 额外注册 catch-all 路由的非标准方法
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// MirrorConfig 规则镜像: 注册的规则异步写入外部存储, 启动时可恢复
type MirrorConfig struct {
	Driver         string `yaml:"driver"` // none / redis / mysql
	KeyPrefix      string `yaml:"keyPrefix"`
	RestoreOnStart bool   `yaml:"restoreOnStart"`
}

// RuleRepoConfig 封装 ruleRepoImpl 的配置参数
type RuleRepoConfig struct {
	MirrorRetryCount int           `json:"mirrorRetryCount" yaml:"mirrorRetryCount"`
	MirrorRetryDelay time.Duration `json:"mirrorRetryDelay" yaml:"mirrorRetryDelay"`
	MirrorPoolSize   int           `json:"mirrorPoolSize" yaml:"mirrorPoolSize"`
}

// DefaultRuleConfig 不依赖配置文件的默认配置 (内嵌到测试进程时使用)
func DefaultRuleConfig() *RuleConfig {
	c := &RuleConfig{}
	c.applyDefaults()
	return c
}

// LoadRuleConfig 加载配置
func LoadRuleConfig() (*RuleConfig, error) {
	return LoadRuleConfigFrom("")
}

// LoadRuleConfigFrom reads the YAML file at path; an empty path falls back to
// RULE_CONFIG_PATH and then rule.<RULE_ENV>.yaml.
func LoadRuleConfigFrom(path ConfigPath) (*RuleConfig, error) {
	// .env 文件可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	// 1. 确定配置文件路径
	configPath := string(path)
	if configPath == "" {
		configPath = getConfigPath()
	}

	// 2. 读取配置文件
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 3. 解析配置
	return ParseRuleConfig(configFile)
}

// ParseRuleConfig decodes, defaults and validates YAML config bytes.
func ParseRuleConfig(data []byte) (*RuleConfig, error) {
	config := &RuleConfig{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyDefaults()

	// 4. 验证配置
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// getConfigPath 获取配置文件路径
func getConfigPath() string {
	// 优先使用环境变量
	if path := os.Getenv("RULE_CONFIG_PATH"); path != "" {
		return path
	}

	// 默认配置文件路径
	env := os.Getenv("RULE_ENV")
	if env == "" {
		env = "local"
	}

	return fmt.Sprintf("rule.%s.yaml", env)
}

func (c *RuleConfig) applyDefaults() {
	if c.ServerConfig.Port == 0 {
		c.ServerConfig.Port = 8080
	}
	if c.ServerConfig.MaxBodySize == 0 {
		c.ServerConfig.MaxBodySize = 1 << 20
	}
	if c.ServerConfig.ReadTimeout == 0 {
		c.ServerConfig.ReadTimeout = 30 * time.Second
	}
	if c.ServerConfig.WriteTimeout == 0 {
		c.ServerConfig.WriteTimeout = 30 * time.Second
	}
	if c.MirrorConfig.Driver == "" {
		c.MirrorConfig.Driver = MirrorDriverNone
	}
	c.MirrorConfig.Driver = strings.ToLower(c.MirrorConfig.Driver)
	if c.MirrorConfig.KeyPrefix == "" {
		c.MirrorConfig.KeyPrefix = "stub_rule:"
	}
	if c.RuleRepoConfig.MirrorRetryCount == 0 {
		c.RuleRepoConfig.MirrorRetryCount = 3
	}
	if c.RuleRepoConfig.MirrorRetryDelay == 0 {
		c.RuleRepoConfig.MirrorRetryDelay = 100 * time.Millisecond
	}
	if c.RuleRepoConfig.MirrorPoolSize == 0 {
		c.RuleRepoConfig.MirrorPoolSize = 4
	}
	if c.RedisConfig.Port == 0 {
		c.RedisConfig.Port = 6379
	}
}

// validate 验证配置
func (c *RuleConfig) validate() error {
	s := c.ServerConfig
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("server port %d out of range", s.Port)
	}
	if s.MaxBodySize < 0 {
		return fmt.Errorf("maxBodySize must not be negative")
	}
	for _, m := range s.ExtraMethods {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("extraMethods must not contain empty entries")
		}
	}

	switch c.MirrorConfig.Driver {
	case MirrorDriverNone:
	case MirrorDriverRedis:
		if c.RedisConfig.Host == "" {
			return fmt.Errorf("redis host is required when mirror driver is redis")
		}
	case MirrorDriverMySQL:
		if err := c.DatabaseConfig.validate(); err != nil {
			return err
		}
		if err := c.DatabaseOptionConfig.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown mirror driver %q", c.MirrorConfig.Driver)
	}

	if c.RuleRepoConfig.MirrorPoolSize < 0 {
		return fmt.Errorf("mirrorPoolSize must be positive")
	}
	return nil
}
