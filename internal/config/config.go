package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	CapacityUnlocked string `mapstructure:"capacity_unlocked"`
	PointsGranted    string `mapstructure:"points_granted"`
}

type BusinessConfig struct {
	// UnlockMaxRetries 乐观锁冲突时解锁事务的内部重试次数
	UnlockMaxRetries int `mapstructure:"unlock_max_retries"`
	// MaxRetryCount outbox 消息最大发送重试次数
	MaxRetryCount int `mapstructure:"max_retry_count"`
	// AuditBatchSize 对账任务每轮扫描的账户数
	AuditBatchSize int            `mapstructure:"audit_batch_size"`
	Capacity       CapacityConfig `mapstructure:"capacity"`
}

// CapacityConfig 容量档位规则
//
// 【重要】user 的价格表是全系统唯一的权威副本，
// 预览接口和实际扣款必须都从这里读取，禁止在别处复制一份
type CapacityConfig struct {
	User    CapacityKindConfig `mapstructure:"user"`
	Partner CapacityKindConfig `mapstructure:"partner"`
}

type CapacityKindConfig struct {
	DefaultMax int `mapstructure:"default_max"`
	Ceiling    int `mapstructure:"ceiling"`
	// CostTable 档位 -> 点数价格（仅 user 使用，partner 走公式定价）
	CostTable map[int]int64 `mapstructure:"cost_table"`
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
