package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// DiagnosticRequest is the immutable input to a diagnosis run: the case text
// plus the ordered set of specialist roles to consult. An empty role list means
// "let the service decide" (triage or configured defaults).
type DiagnosticRequest struct {
	CaseText string
	Roles    []string
}

// Validate checks the request for required fields.
func (r DiagnosticRequest) Validate() error {
	if strings.TrimSpace(r.CaseText) == "" {
		return ErrEmptyCase
	}
	return nil
}

// CacheKey derives the content-addressed cache key for the request.
// The key is a sha256 over the normalized case text, the sorted deduplicated
// role set and the retrieval configuration version, so that trivially
// different phrasings of the same case still hit the cache and a retrieval
// reconfiguration invalidates prior entries.
func (r DiagnosticRequest) CacheKey(retrievalVersion string) string {
	roles := make([]string, 0, len(r.Roles))
	seen := make(map[string]struct{}, len(r.Roles))
	for _, role := range r.Roles {
		role = NormalizeText(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	sort.Strings(roles)

	h := sha256.New()
	h.Write([]byte(NormalizeText(r.CaseText)))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(roles, ",")))
	h.Write([]byte{0})
	h.Write([]byte(retrievalVersion))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeText lowercases and collapses all whitespace runs to single spaces.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
