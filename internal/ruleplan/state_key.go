package ruleplan

import (
	"crypto/sha256"
	"encoding/base32"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// normalizedReason is the JSON shape baked into the state key hash:
// only code/source survive, in that key order. Source is a pointer so
// an empty-but-present source ("") still serializes the key, while a
// reason that never carries one (..._CONDITION_NOT_MET) omits it
// entirely — matching the original's dict-key presence, not just its
// value, since this shape is part of the stable external contract.
type normalizedReason struct {
	Code   string  `json:"code"`
	Source *string `json:"source,omitempty"`
}

// BuildStateKey computes the deterministic state-key fingerprint of
// §4.4: "<decision>_<action>_<ids_part>_<reason_hash>". triggeredIDs
// are sorted ascending before joining; reasons are sorted by
// (code, source) before hashing, so permuting either input leaves the
// key unchanged.
func BuildStateKey(decision, action string, triggeredIDs []string, reasons []Reason) (string, error) {
	ids := append([]string(nil), triggeredIDs...)
	sort.Strings(ids)
	idsPart := "NONE"
	if len(ids) > 0 {
		idsPart = strings.Join(ids, ",")
	}

	sorted := append([]Reason(nil), reasons...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Code != sorted[j].Code {
			return sorted[i].Code < sorted[j].Code
		}
		return sorted[i].Source < sorted[j].Source
	})

	normalized := make([]normalizedReason, len(sorted))
	for i, r := range sorted {
		nr := normalizedReason{Code: r.Code}
		if r.SourceSet {
			source := r.Source
			nr.Source = &source
		}
		normalized[i] = nr
	}

	payload, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("marshal state key payload: %w", err)
	}

	digest := sha256.Sum256(payload)
	encoded := base32.StdEncoding.EncodeToString(digest[:])
	reasonHash := encoded[:8]

	return fmt.Sprintf("%s_%s_%s_%s", decision, action, idsPart, reasonHash), nil
}
