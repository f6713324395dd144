// Package cache is the content-addressed, TTL-bounded store of past
// extraction results, layered in front of the extraction pipeline.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/use-agent/drover/models"
)

// Key computes the 32-hex-char fingerprint of an extraction request.
//
// The digest is taken over the canonical string
//
//	url|kind|selector|wait|opts
//
// where opts is a comma-joined key=value sequence sorted by key. The format
// is a cross-instance contract: two processes sharing a store must derive
// bit-identical keys for equal requests.
func Key(req *models.ExtractionRequest) string {
	sum := md5.Sum([]byte(Canonical(req)))
	return hex.EncodeToString(sum[:])
}

// Canonical renders the request's canonical string.
func Canonical(req *models.ExtractionRequest) string {
	var b strings.Builder
	b.WriteString(req.URL)
	b.WriteByte('|')
	b.WriteString(string(req.Kind))
	b.WriteByte('|')
	b.WriteString(req.Selector)
	b.WriteByte('|')
	b.WriteString(string(req.Wait))
	b.WriteByte('|')
	b.WriteString(canonicalOptions(req.Options))
	return b.String()
}

func canonicalOptions(opts map[string]string) string {
	if len(opts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+opts[k])
	}
	return strings.Join(parts, ",")
}
