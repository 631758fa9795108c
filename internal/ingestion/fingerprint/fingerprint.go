package fingerprint

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/knoxfield/corpusflow/internal/data/repos"
	"github.com/knoxfield/corpusflow/internal/platform/logger"
	"github.com/knoxfield/corpusflow/internal/types"
)

// Digest hashes the canonical content bytes together with the declared
// mime type and size; the triple is the duplicate-matching key.
func Digest(canonical []byte, mimeType string, sizeBytes int64) string {
	h := md5.New()
	h.Write(canonical)
	fmt.Fprintf(h, "|%s|%d", mimeType, sizeBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// Locator computes fingerprints and finds candidate duplicates in the
// shared store.
type Locator struct {
	repo repos.RecordRepo
	log  *logger.Logger
}

func NewLocator(repo repos.RecordRepo, baseLog *logger.Logger) *Locator {
	return &Locator{repo: repo, log: baseLog.With("component", "FingerprintLocator")}
}

// EnsureFingerprint returns the record's fingerprint, computing it from
// the canonical bytes when this revision does not carry one yet. A
// freshly computed fingerprint is persisted immediately; a failed
// persist is logged but does not block the duplicate search.
func (l *Locator) EnsureFingerprint(ctx context.Context, rec *types.Record, canonical []byte) string {
	if rec.ContentFingerprint != nil && *rec.ContentFingerprint != "" {
		return *rec.ContentFingerprint
	}

	fp := Digest(canonical, rec.MimeType, rec.SizeBytes)
	rec.ContentFingerprint = &fp

	if err := l.repo.SetFingerprint(ctx, nil, rec.ID, fp); err != nil {
		l.log.Warn("fingerprint persist failed, continuing with in-memory value",
			"record_id", rec.ID, "error", err)
	}
	return fp
}

// FindDuplicates returns other records in the same org sharing the
// fingerprint, declared type, and size. A failed query propagates.
func (l *Locator) FindDuplicates(ctx context.Context, rec *types.Record) ([]*types.Record, error) {
	if rec.ContentFingerprint == nil || *rec.ContentFingerprint == "" {
		return nil, nil
	}

	cands, err := l.repo.FindDuplicates(ctx, nil, rec.OrgID, *rec.ContentFingerprint, rec.MimeType, rec.SizeBytes, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("duplicate search: %w", err)
	}

	// The store query already excludes null fingerprints via the equality
	// match; drop anything malformed that slipped through.
	out := cands[:0]
	for _, c := range cands {
		if c == nil || c.ContentFingerprint == nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
