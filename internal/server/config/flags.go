package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"mediavault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-b string   blob backend ("disk" or "s3")
//	-o string   blob directory for the disk backend
//	-k string   Kafka brokers, comma-separated
//	-t string   Kafka topic for post-process events
//	-r string   Redis address for session locks (empty = in-process)
//	-m int      upload size limit, megabytes
//	-e string   allowed extensions, comma-separated (".mp3,.wav,...")
//	-x int      session retention, hours
//
// The function first filters os.Args to only the flags it recognizes
// using flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-b", "-o", "-k", "-t", "-r", "-m", "-e", "-x"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BlobBackend, "b", config.BlobBackend, "blob backend (disk|s3)")
	fs.StringVar(&config.BlobDir, "o", config.BlobDir, "blob directory (disk backend)")

	brokers := fs.String("k", strings.Join(config.KafkaBrokers, ","), "kafka brokers, comma-separated")
	fs.StringVar(&config.KafkaTopic, "t", config.KafkaTopic, "kafka topic for post-process events")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address for session locks")

	limitMB := fs.Int64("m", config.MaxUploadBytes/(1024*1024), "upload size limit (in megabytes)")
	exts := fs.String("e", strings.Join(config.AllowedExtensions, ","), "allowed extensions, comma-separated")
	retentionHours := fs.Int("x", int(config.SessionRetention.Hours()), "session retention (in hours)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.KafkaBrokers = strings.Split(*brokers, ",")
	config.MaxUploadBytes = *limitMB * 1024 * 1024
	config.AllowedExtensions = strings.Split(*exts, ",")
	config.SessionRetention = time.Duration(*retentionHours) * time.Hour
}
