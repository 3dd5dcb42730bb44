package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alterego-ai/alterego/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ReportKey generates a cache key for an analysis of text by modelName.
// The model is part of the key: the same text analyzed by a different
// model is a different result.
func ReportKey(modelName, text string) string {
	hash := sha256.Sum256([]byte(modelName + "\x00" + text))
	return "alterego:v1:" + hex.EncodeToString(hash[:])
}

// StoreReport serializes a report into the cache
func StoreReport(c Cache, key string, report *model.AnalysisReport, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := c.Set(key, data, ttl); err != nil {
		return fmt.Errorf("cache report: %w", err)
	}
	return nil
}

// LoadReport retrieves a cached report, if present
func LoadReport(c Cache, key string) (*model.AnalysisReport, bool) {
	data, found := c.Get(key)
	if !found {
		return nil, false
	}

	var report model.AnalysisReport
	if err := json.Unmarshal(data, &report); err != nil {
		// A corrupt entry is treated as a miss
		_ = c.Delete(key)
		return nil, false
	}
	return &report, true
}
