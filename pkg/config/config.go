package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration for the certification
// service.
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	Upload  UploadConfig
	Seal    SealConfig
	Anchor  AnchorConfig
	Kafka   KafkaConfig
	Archive ArchiveConfig
	Tracing TracingConfig
	Metrics MetricsConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"evidenceflow-certify"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
}

type UploadConfig struct {
	// MaxSizeBytes caps accepted evidence; the default is 50 MiB.
	MaxSizeBytes      int64 `env:"UPLOAD_MAX_SIZE_BYTES" envDefault:"52428800"`
	MultipartMemBytes int64 `env:"UPLOAD_MULTIPART_MEM_BYTES" envDefault:"8388608"`
}

type SealConfig struct {
	// Issuer is printed on the watermark and recorded in the certification
	// fields of every sealed artifact.
	Issuer string `env:"SEAL_ISSUER" envDefault:"evidenceflow"`
}

type AnchorConfig struct {
	Endpoint string        `env:"ANCHOR_ENDPOINT" envDefault:""`
	Timeout  time.Duration `env:"ANCHOR_TIMEOUT" envDefault:"30s"`
}

type KafkaConfig struct {
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	AuditTopic       string        `env:"KAFKA_AUDIT_TOPIC" envDefault:"evidenceflow.audit"`
	Retries          int           `env:"KAFKA_RETRIES" envDefault:"3"`
	RetryBackoff     time.Duration `env:"KAFKA_RETRY_BACKOFF" envDefault:"500ms"`
	CompressionCodec string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize        int           `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	BatchTimeout     time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"1s"`
}

type ArchiveConfig struct {
	Provider  string `env:"ARCHIVE_PROVIDER" envDefault:"none"`
	Endpoint  string `env:"ARCHIVE_ENDPOINT" envDefault:"http://localhost:9000"`
	Region    string `env:"ARCHIVE_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"ARCHIVE_BUCKET" envDefault:"evidenceflow-artifacts"`
	AccessKey string `env:"ARCHIVE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"ARCHIVE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool   `env:"ARCHIVE_USE_SSL" envDefault:"false"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=evidenceflow"`
}

type MetricsConfig struct {
	Addr string `env:"METRICS_ADDR" envDefault:":9102"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
