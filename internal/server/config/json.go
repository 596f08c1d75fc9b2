package config

import (
	"encoding/json"
	"os"

	"mediavault/internal/flagx"
	"mediavault/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON
// configuration files. Interval fields use timex.Duration, which accepts
// both duration strings ("24h") and integer nanoseconds. After
// unmarshalling, set fields are copied into the runtime Config.
type JsonConfig struct {
	DatabaseDSN string `json:"database_dsn"`

	BlobBackend string `json:"blob_backend"`
	BlobDir     string `json:"blob_dir"`

	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	KafkaBrokers []string `json:"kafka_brokers"`
	KafkaTopic   string   `json:"kafka_topic"`

	RedisAddr string         `json:"redis_addr"`
	LockTTL   timex.Duration `json:"lock_ttl"`

	MaxUploadBytes      int64    `json:"max_upload_bytes"`
	AllowedExtensions   []string `json:"allowed_extensions"`
	AssemblyBufferBytes int      `json:"assembly_buffer_bytes"`

	SessionRetention timex.Duration `json:"session_retention"`
	SweepInterval    timex.Duration `json:"sweep_interval"`
}

// parseJson loads configuration values from the JSON file given via the
// -c or -config flags, if any. The file must be readable and valid JSON;
// otherwise the function panics, since running with a half-applied
// config would be worse than not starting.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		panic(err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.BlobBackend != "" {
		config.BlobBackend = c.BlobBackend
	}
	if c.BlobDir != "" {
		config.BlobDir = c.BlobDir
	}
	if c.S3AccessKey != "" {
		config.S3AccessKey = c.S3AccessKey
	}
	if c.S3SecretKey != "" {
		config.S3SecretKey = c.S3SecretKey
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
	if len(c.KafkaBrokers) > 0 {
		config.KafkaBrokers = c.KafkaBrokers
	}
	if c.KafkaTopic != "" {
		config.KafkaTopic = c.KafkaTopic
	}
	if c.RedisAddr != "" {
		config.RedisAddr = c.RedisAddr
	}
	if c.LockTTL != 0 {
		config.LockTTL = c.LockTTL.Std()
	}
	if c.MaxUploadBytes != 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if len(c.AllowedExtensions) > 0 {
		config.AllowedExtensions = c.AllowedExtensions
	}
	if c.AssemblyBufferBytes != 0 {
		config.AssemblyBufferBytes = c.AssemblyBufferBytes
	}
	if c.SessionRetention != 0 {
		config.SessionRetention = c.SessionRetention.Std()
	}
	if c.SweepInterval != 0 {
		config.SweepInterval = c.SweepInterval.Std()
	}
}
