package verifier

import "strings"

// Firewall checks that an extracted claim's citation snippet actually occurs
// in the source text it cites. This is the hallucination firewall: a claim
// whose snippet is absent from the source was invented somewhere between the
// page and the pipeline.
type Firewall struct {
	// Strict rejects claims that fail the check. Non-strict mode only
	// reports the result; callers decide what to do with unsupported claims.
	Strict bool
}

// Supported reports whether snippet appears in sourceText after whitespace
// normalization and case folding. An empty snippet is never supported, since
// an uncited claim cannot pass a citation check.
func (f Firewall) Supported(snippet, sourceText string) bool {
	s := normalizeText(snippet)
	if s == "" {
		return false
	}
	return strings.Contains(normalizeText(sourceText), s)
}

// Accept reports whether a claim should be counted. In strict mode an
// unsupported claim is rejected; otherwise every claim is accepted and the
// support result is advisory.
func (f Firewall) Accept(snippet, sourceText string) bool {
	if !f.Strict {
		return true
	}
	return f.Supported(snippet, sourceText)
}

// normalizeText lowercases and collapses all whitespace runs to single spaces.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
