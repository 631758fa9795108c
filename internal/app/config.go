package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/knoxfield/corpusflow/internal/platform/envutil"
	"github.com/knoxfield/corpusflow/internal/platform/logger"
)

type Config struct {
	LogMode string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// WorkerConcurrency bounds how many change events are in flight at
	// once; it is the transport's delivery concurrency, the coordinator
	// itself takes no locks.
	WorkerConcurrency int

	AdminAddr string

	OriginBucket string

	// ReconcileTypes is the set of mime types for which virtual-record
	// identity is preserved across revisions so downstream diffing can
	// run incrementally. Everything else gets full-replace semantics.
	ReconcileTypes map[string]bool

	FingerprintLeaseTTL time.Duration

	PDFSamplePages  int
	PDFOCRThreshold float64
	PDFMinTextChars int
}

// defaultReconcileTypes covers the structured container formats whose
// revisions are worth diffing downstream.
var defaultReconcileTypes = []string{
	"text/csv",
	"text/html",
	"application/json",
	"application/vnd.corpusflow.ticket+json",
	"application/vnd.corpusflow.project+json",
	"application/vnd.corpusflow.comment+json",
	"application/vnd.corpusflow.wiki+json",
	"application/vnd.corpusflow.datasource+json",
	"application/vnd.corpusflow.table-rows+json",
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		LogMode:             envutil.Str("LOG_MODE", "development"),
		RedisAddr:           envutil.Str("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       envutil.Str("REDIS_PASSWORD", ""),
		RedisDB:             envutil.Int("REDIS_DB", 0),
		WorkerConcurrency:   envutil.Int("WORKER_CONCURRENCY", 8),
		AdminAddr:           envutil.Str("ADMIN_ADDR", ":8088"),
		OriginBucket:        envutil.Str("ORIGIN_BUCKET", ""),
		FingerprintLeaseTTL: envutil.Duration("FINGERPRINT_LEASE_TTL", 2*time.Minute),
		PDFSamplePages:      envutil.Int("PDF_SAMPLE_PAGES", 8),
		PDFOCRThreshold:     0.5,
		PDFMinTextChars:     envutil.Int("PDF_MIN_TEXT_CHARS", 32),
	}

	types, err := loadReconcileTypes(envutil.Str("RECONCILE_TYPES_FILE", ""), log)
	if err != nil {
		return Config{}, err
	}
	cfg.ReconcileTypes = types
	return cfg, nil
}

type reconcileTypesFile struct {
	ReconciliationEnabled []string `yaml:"reconciliation_enabled"`
}

func loadReconcileTypes(path string, log *logger.Logger) (map[string]bool, error) {
	list := defaultReconcileTypes
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read reconcile types file: %w", err)
		}
		var f reconcileTypesFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parse reconcile types file: %w", err)
		}
		if len(f.ReconciliationEnabled) > 0 {
			list = f.ReconciliationEnabled
		}
		log.Info("loaded reconciliation type set", "path", path, "types", len(list))
	}
	out := make(map[string]bool, len(list))
	for _, t := range list {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out[t] = true
		}
	}
	return out, nil
}
