package config

import "time"

// Media definition media_service YAML structure
type Media struct {
	Port      string `mapstructure:"port"`
	IP        string `mapstructure:"ip"`
	GRPCPort  string `mapstructure:"grpc_port"`
	JWTSecret string `mapstructure:"jwt_secret"`

	Engine     EngineConfig   `mapstructure:"engine"`
	Storage    StorageConfig  `mapstructure:"storage"`
	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	Mongo      DatabaseConfig `mapstructure:"mongo"`
	Redis      RedisConfig    `mapstructure:"redis"`
	RabbitMQ   RabbitMQConfig `mapstructure:"rabbitmq"`
	Kafka      KafkaConfig    `mapstructure:"kafka"`
}

// EngineConfig definition transcoding engine setting
type EngineConfig struct {
	// Kind "native" 使用本機 ffmpeg，"wasm" 使用 ffmpeg WASI core
	Kind             string        `mapstructure:"kind"`
	Binary           string        `mapstructure:"binary"`
	CoreURL          string        `mapstructure:"core_url"`
	ScratchDir       string        `mapstructure:"scratch_dir"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	MaxUploadBytes   int64         `mapstructure:"max_upload_bytes"`
	// FetchAllowedHosts merge 可以下載的 http(s) host, storage 的 locator 不受限制
	FetchAllowedHosts []string `mapstructure:"fetch_allowed_hosts"`
}

// StorageConfig definition object storage setting
type StorageConfig struct {
	// Backend "minio" 或 "s3"
	Backend       string `mapstructure:"backend"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	BucketName    string `mapstructure:"bucket_name"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	Region        string `mapstructure:"region"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int           `mapstructure:"redis_db"`
	JobTTL  time.Duration `mapstructure:"job_ttl"`
}

// RabbitMQConfig definition rabbitmq setting
type RabbitMQConfig struct {
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	IP            string `mapstructure:"ip"`
	Port          string `mapstructure:"port"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// KafkaConfig definition kafka setting
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// ApplyDefaults fill zero values that the service cannot run without
func (m *Media) ApplyDefaults() {
	if m.Port == "" {
		m.Port = "8080"
	}
	if m.GRPCPort == "" {
		m.GRPCPort = "9090"
	}
	if m.Engine.Kind == "" {
		m.Engine.Kind = "native"
	}
	if m.Engine.Binary == "" {
		m.Engine.Binary = "ffmpeg"
	}
	if m.Engine.ScratchDir == "" {
		m.Engine.ScratchDir = "./tmp/engine"
	}
	if m.Engine.OperationTimeout <= 0 {
		m.Engine.OperationTimeout = 10 * time.Minute
	}
	if m.Engine.MaxUploadBytes <= 0 {
		m.Engine.MaxUploadBytes = 512 << 20
	}
	if m.Storage.Backend == "" {
		m.Storage.Backend = "minio"
	}
	if m.Redis.JobTTL <= 0 {
		m.Redis.JobTTL = 24 * time.Hour
	}
	if m.Kafka.Topic == "" {
		m.Kafka.Topic = "media.published"
	}

	//retry loop 至少要連一次
	for _, n := range []*int{
		&m.Storage.RetryCount,
		&m.PostgreSQL.RetryCount,
		&m.Mongo.RetryCount,
		&m.RabbitMQ.RetryCount,
		&m.Kafka.RetryCount,
	} {
		if *n <= 0 {
			*n = 1
		}
	}
}
