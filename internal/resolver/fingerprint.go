package resolver

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strings"
)

// fingerprintKeys are the identifying fields a record is clustered on.
var fingerprintKeys = []string{
	"full_name",
	"given_name",
	"surname",
	"birth_date",
	"birth_year",
	"birth_place",
}

// minFingerprintPairs is the minimum number of identifying fields a record
// must carry to be clusterable. Below this, one name alone would glue
// unrelated people together.
const minFingerprintPairs = 2

// Normalize canonicalizes a field value for comparison and hashing:
// lowercase, trimmed, internal whitespace collapsed. Fingerprints must be
// stable under whitespace and case perturbation.
func Normalize(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

// Fingerprint computes the content fingerprint for a record's extracted
// fields. Returns "" when fewer than minFingerprintPairs identifying fields
// are present.
//
// The hash is SHA-256 over length-prefixed key/value pairs in sorted key
// order, truncated to 16 bytes hex. Length prefixing avoids delimiter
// collisions when values contain separator characters; truncation keeps
// entity IDs readable while leaving collision probability negligible at
// per-run cluster counts.
func Fingerprint(extractedFields map[string]string) string {
	type pair struct{ key, value string }
	var pairs []pair
	for _, key := range fingerprintKeys {
		if raw, ok := extractedFields[key]; ok {
			if v := Normalize(raw); v != "" {
				pairs = append(pairs, pair{key, v})
			}
		}
	}
	if len(pairs) < minFingerprintPairs {
		return ""
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	h := sha256.New()
	writeField := func(s string) {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
		h.Write(lenBuf[:])
		h.Write([]byte(s))
	}
	for _, p := range pairs {
		writeField(p.key)
		writeField(p.value)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
