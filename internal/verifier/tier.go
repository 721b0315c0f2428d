package verifier

import (
	"strings"

	"github.com/keifu-ai/keifu/internal/model"
)

// Keyword tables for tier classification. Matching is on lowercase source
// name and record type.
var (
	archivalKeywords     = []string{"parish", "civil", "church", "archive"}
	originalTypeKeywords = []string{"image", "original"}
	authoredKeywords     = []string{"tree", "wikitree", "gedcom", "compilation"}
)

// ClassifyTier places a record's source in the evidence hierarchy:
//   - original: archival provenance (in the source name or the record type)
//     paired with an image/original record type
//   - authored: family trees, compilations, GEDCOM uploads
//   - derivative: everything else (indexes, transcriptions, extracts)
func ClassifyTier(sourceName, recordType string) model.SourceTier {
	name := strings.ToLower(sourceName)
	rtype := strings.ToLower(recordType)

	archival := containsAny(name, archivalKeywords) || containsAny(rtype, archivalKeywords)
	if archival && containsAny(rtype, originalTypeKeywords) {
		return model.TierOriginal
	}
	if containsAny(name, authoredKeywords) || containsAny(rtype, authoredKeywords) {
		return model.TierAuthored
	}
	return model.TierDerivative
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
