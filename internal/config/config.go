package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr     string // COUNTER_HTTP_ADDR (default ":8080")
	GRPCAddr     string // COUNTER_GRPC_ADDR (default ":9090")
	DatabaseURL  string // COUNTER_DATABASE_URL (optional, empty = in-memory journal)
	NATSURL      string // COUNTER_NATS_URL (optional, empty = no events)
	AuthToken    string // COUNTER_AUTH_TOKEN (optional, empty = auth disabled)
	NetworksFile string // COUNTER_NETWORKS_FILE (optional TOML package id overrides)

	OpDelay    time.Duration // COUNTER_OP_DELAY (default 1200ms)
	PanelIdle  time.Duration // COUNTER_PANEL_IDLE (default 30m; must be positive)
	WalletIdle time.Duration // COUNTER_WALLET_IDLE (default 24h; must be positive)

	RateLimitRPS   float64 // COUNTER_RATE_LIMIT_RPS (default 5; 0 = unlimited)
	RateLimitBurst int     // COUNTER_RATE_LIMIT_BURST (default 10)

	// Journal export settings
	SyncInterval   time.Duration // COUNTER_SYNC_INTERVAL (default 3m; 0 = disabled)
	SyncS3Bucket   string        // COUNTER_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // COUNTER_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // COUNTER_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // COUNTER_SYNC_S3_KEY (default "counter/journal.jsonl")
	SyncGitRepo    string        // COUNTER_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitFile    string        // COUNTER_SYNC_GIT_FILE (default "journal.jsonl")
	SyncGitBranch  string        // COUNTER_SYNC_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		HTTPAddr:       envOrDefault("COUNTER_HTTP_ADDR", ":8080"),
		GRPCAddr:       envOrDefault("COUNTER_GRPC_ADDR", ":9090"),
		DatabaseURL:    os.Getenv("COUNTER_DATABASE_URL"),
		NATSURL:        os.Getenv("COUNTER_NATS_URL"),
		AuthToken:      os.Getenv("COUNTER_AUTH_TOKEN"),
		NetworksFile:   os.Getenv("COUNTER_NETWORKS_FILE"),
		SyncS3Bucket:   os.Getenv("COUNTER_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("COUNTER_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("COUNTER_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("COUNTER_SYNC_S3_KEY", "counter/journal.jsonl"),
		SyncGitRepo:    os.Getenv("COUNTER_SYNC_GIT_REPO"),
		SyncGitFile:    envOrDefault("COUNTER_SYNC_GIT_FILE", "journal.jsonl"),
		SyncGitBranch:  envOrDefault("COUNTER_SYNC_GIT_BRANCH", "main"),
	}

	var err error
	if c.OpDelay, err = durationEnv("COUNTER_OP_DELAY", "1200ms"); err != nil {
		return nil, err
	}
	if c.OpDelay < 0 {
		return nil, fmt.Errorf("COUNTER_OP_DELAY must not be negative")
	}
	if c.PanelIdle, err = positiveDurationEnv("COUNTER_PANEL_IDLE", "30m"); err != nil {
		return nil, err
	}
	if c.WalletIdle, err = positiveDurationEnv("COUNTER_WALLET_IDLE", "24h"); err != nil {
		return nil, err
	}
	if c.SyncInterval, err = durationEnv("COUNTER_SYNC_INTERVAL", "3m"); err != nil {
		return nil, err
	}

	rps := envOrDefault("COUNTER_RATE_LIMIT_RPS", "5")
	if c.RateLimitRPS, err = strconv.ParseFloat(rps, 64); err != nil {
		return nil, fmt.Errorf("COUNTER_RATE_LIMIT_RPS: %w", err)
	}
	burst := envOrDefault("COUNTER_RATE_LIMIT_BURST", "10")
	if c.RateLimitBurst, err = strconv.Atoi(burst); err != nil {
		return nil, fmt.Errorf("COUNTER_RATE_LIMIT_BURST: %w", err)
	}

	return c, nil
}

func durationEnv(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func positiveDurationEnv(key, fallback string) (time.Duration, error) {
	d, err := durationEnv(key, fallback)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
