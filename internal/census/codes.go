// Package census fetches raw statistical variables from a census-style API.
// It scans expressions for raw-code tokens, buckets them by dataset, and
// downloads each dataset in chunks of at most ChunkSize codes per request.
package census

import (
	"fmt"
	"regexp"

	"github.com/geostat-labs/svindex/internal/config"
)

// codeRe is the fixed-form raw-code grammar: 1-4 uppercase letters, 0-3
// digits, underscore, 4 digits, optional trailing letter. Tokens that do
// not match are alias references, not fetch targets.
var (
	codeRe     = regexp.MustCompile(`\b[A-Z]{1,4}[0-9]{0,3}_[0-9]{4}[A-Z]?\b`)
	codeFullRe = regexp.MustCompile(`^[A-Z]{1,4}[0-9]{0,3}_[0-9]{4}[A-Z]?$`)
)

// IsRawCode reports whether the token matches the raw-code grammar.
func IsRawCode(token string) bool {
	return codeFullRe.MatchString(token)
}

// ExtractCodes returns the distinct raw codes referenced by an expression,
// in first-appearance order.
func ExtractCodes(expression string) []string {
	var codes []string
	seen := make(map[string]bool)
	for _, code := range codeRe.FindAllString(expression, -1) {
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes
}

// Buckets maps dataset slugs to the ordered distinct raw codes required
// from each. Order holds the slugs in first-appearance order so fetches and
// merges are deterministic.
type Buckets struct {
	Order []string
	Codes map[string][]string
}

// GroupCodesByDataset scans every variable expression and groups the raw
// codes by the owning dataset slug. A code claimed by two datasets would
// make fetch results order-dependent, so it is rejected with every
// doubly-claimed code listed.
func GroupCodesByDataset(vars []config.Variable) (*Buckets, error) {
	b := &Buckets{Codes: make(map[string][]string)}
	owner := make(map[string]string)
	inBucket := make(map[string]map[string]bool)
	var problems []string

	for _, v := range vars {
		for _, code := range ExtractCodes(v.Expression) {
			if prev, ok := owner[code]; ok && prev != v.Dataset {
				problems = append(problems, fmt.Sprintf(
					"raw code %s claimed by datasets %q and %q", code, prev, v.Dataset))
				continue
			}
			owner[code] = v.Dataset

			if _, ok := b.Codes[v.Dataset]; !ok {
				b.Order = append(b.Order, v.Dataset)
				inBucket[v.Dataset] = make(map[string]bool)
			}
			if !inBucket[v.Dataset][code] {
				inBucket[v.Dataset][code] = true
				b.Codes[v.Dataset] = append(b.Codes[v.Dataset], code)
			}
		}
	}

	if len(problems) > 0 {
		return nil, &config.SchemaError{Problems: problems}
	}
	return b, nil
}

// TotalCodes returns the number of raw codes across all buckets.
func (b *Buckets) TotalCodes() int {
	total := 0
	for _, codes := range b.Codes {
		total += len(codes)
	}
	return total
}
