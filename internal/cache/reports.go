package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/geomd/metaschema/internal/validation"
)

// ReportKey identifies a validation run: the document hash plus every option
// that can change its outcome
type ReportKey struct {
	// Schema fingerprints the loaded schema so that processes with different
	// extensions sharing one backend never read each other's reports
	Schema  string
	Type    string
	Lenient bool
	Rules   []string
	Body    []byte
}

// String returns "report:<type>:<sha256>"
func (k ReportKey) String() string {
	rules := append([]string(nil), k.Rules...)
	sort.Strings(rules)

	h := sha256.New()
	h.Write([]byte(k.Schema))
	h.Write([]byte{0})
	h.Write([]byte(k.Type))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(k.Lenient)))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(rules, ",")))
	h.Write([]byte{0})
	h.Write(k.Body)

	return "report:" + k.Type + ":" + hex.EncodeToString(h.Sum(nil))
}

// Reports caches validation reports on top of a Cache backend
type Reports struct {
	backend Cache
	ttl     time.Duration
}

// NewReports wraps backend. A zero ttl uses the backend default.
func NewReports(backend Cache, ttl time.Duration) *Reports {
	return &Reports{backend: backend, ttl: ttl}
}

// Get returns the cached report for key. A miss is reported as false with a nil error.
func (r *Reports) Get(ctx context.Context, key ReportKey) (validation.Report, bool, error) {
	data, err := r.backend.Get(ctx, key.String())
	if err != nil {
		if IsCacheMiss(err) {
			return validation.Report{}, false, nil
		}
		return validation.Report{}, false, err
	}

	var report validation.Report
	if err := json.Unmarshal(data, &report); err != nil {
		// stale or foreign entry
		_ = r.backend.Delete(ctx, key.String())
		return validation.Report{}, false, nil
	}
	return report, true, nil
}

// Put stores a report under key
func (r *Reports) Put(ctx context.Context, key ReportKey, report validation.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return r.backend.Set(ctx, key.String(), data, r.ttl)
}
