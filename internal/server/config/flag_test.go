package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFlags_Overrides(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()
	os.Args = []string{"server",
		"-d", "postgres://u:p@db:5432/mv",
		"-b", "s3",
		"-k", "k1:9092,k2:9092",
		"-m", "100",
		"-e", ".mp4,.mov",
		"-x", "6",
	}

	c := &Config{}
	c.LoadDefaults()
	parseFlags(c)

	assert.Equal(t, "postgres://u:p@db:5432/mv", c.DatabaseDSN)
	assert.Equal(t, "s3", c.BlobBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.KafkaBrokers)
	assert.Equal(t, int64(100*1024*1024), c.MaxUploadBytes)
	assert.Equal(t, []string{".mp4", ".mov"}, c.AllowedExtensions)
	assert.Equal(t, 6*time.Hour, c.SessionRetention)
}

func TestParseFlags_DefaultsSurviveWhenAbsent(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()
	os.Args = []string{"server"}

	c := &Config{}
	c.LoadDefaults()
	parseFlags(c)

	assert.Equal(t, "disk", c.BlobBackend)
	assert.Equal(t, int64(500*1024*1024), c.MaxUploadBytes)
	assert.Equal(t, []string{".mp3", ".wav", ".mp4", ".m4a", ".mov", ".ogg", ".webm"}, c.AllowedExtensions)
}
