package verifier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/keifu-ai/keifu/internal/model"
)

// relationshipAliases are field-name fragments that imply the relationship
// fact type without naming it.
var relationshipAliases = []string{"spouse", "parent"}

// factTypeForField maps an extracted field name to one of model.FactTypes,
// or "" when disagreements on the field are ordinary low consensus rather
// than a genealogical conflict.
func factTypeForField(field string) string {
	f := strings.ToLower(field)
	for _, alias := range relationshipAliases {
		if strings.Contains(f, alias) {
			return "relationship"
		}
	}
	for ft := range model.FactTypes {
		if strings.Contains(f, ft) {
			return ft
		}
	}
	return ""
}

// TemporalBonusFunc computes the proximity bonus for an assertion: records
// made close to the event they describe are better evidence. Returns a value
// in [0, 0.1]; zero when either date is unknown.
type TemporalBonusFunc func(sourceYear, eventYear int) float64

// DefaultTemporalBonus decays with the gap between recording and event:
// min(0.1, 0.1/(1+years_apart)).
func DefaultTemporalBonus(sourceYear, eventYear int) float64 {
	if sourceYear == 0 || eventYear == 0 {
		return 0
	}
	gap := sourceYear - eventYear
	if gap < 0 {
		gap = -gap
	}
	bonus := 0.1 / float64(1+gap)
	if bonus > 0.1 {
		bonus = 0.1
	}
	return bonus
}

// ErrorPattern is one detected transcription-error heuristic hit.
type ErrorPattern struct {
	Tag     string
	Penalty float64 // [0, 0.3]
}

// PatternDetector inspects one asserted value against its competing siblings
// and reports any error patterns. Penalties are cumulative and reported, but
// never short-circuit adjudication.
type PatternDetector func(value string, siblings []string) []ErrorPattern

var fourDigits = regexp.MustCompile(`\b\d{4}\b`)

// DefaultPatternDetectors are the stock heuristics.
var DefaultPatternDetectors = []PatternDetector{
	detectRoundYear,
	detectDigitTransposition,
}

// detectRoundYear flags years divisible by ten: census takers and clerks
// rounded estimated ages, so "about 1880" shows up as a hard 1880.
func detectRoundYear(value string, _ []string) []ErrorPattern {
	year := fourDigits.FindString(value)
	if year == "" {
		return nil
	}
	if n, err := strconv.Atoi(year); err == nil && n%10 == 0 {
		return []ErrorPattern{{Tag: "round_year_estimate", Penalty: 0.05}}
	}
	return nil
}

// detectDigitTransposition flags a year that is a two-digit swap of a
// competing year (1882 vs 1828), a common transcription slip.
func detectDigitTransposition(value string, siblings []string) []ErrorPattern {
	year := fourDigits.FindString(value)
	if year == "" {
		return nil
	}
	for _, sib := range siblings {
		other := fourDigits.FindString(sib)
		if other == "" || other == year {
			continue
		}
		if isTransposition(year, other) {
			return []ErrorPattern{{Tag: "digit_transposition", Penalty: 0.15}}
		}
	}
	return nil
}

// isTransposition reports whether b equals a with exactly one adjacent digit
// pair swapped.
func isTransposition(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i+1 < len(a); i++ {
		swapped := a[:i] + string(a[i+1]) + string(a[i]) + a[i+2:]
		if swapped == b && a != b {
			return true
		}
	}
	return false
}

// detectConflicts builds one conflict group per contested fact-type field:
// one assertion per distinct normalized value, weighted by the evidence
// behind it. records supply per-record recording dates for the temporal
// proximity bonus.
func (v *Verifier) detectConflicts(entityID string, records []model.RawRecord, fields []model.FieldEvidence) []model.ConflictGroup {
	// Recording year per record, when the source exposes one.
	recordYears := make(map[string]int, len(records))
	for _, rec := range records {
		for _, key := range []string{"record_year", "record_date"} {
			if y := yearIn(rec.ExtractedFields[key]); y != 0 {
				recordYears[rec.Key()] = y
				break
			}
		}
	}

	var groups []model.ConflictGroup
	for _, fe := range fields {
		factType := factTypeForField(fe.FieldName)
		if factType == "" || len(fe.Groups) < 2 {
			continue
		}

		groupID := uuid.New()
		values := make([]string, len(fe.Groups))
		for i, g := range fe.Groups {
			values[i] = g.NormalizedValue
		}

		assertions := make([]model.CompetingAssertion, len(fe.Groups))
		for i, g := range fe.Groups {
			siblings := make([]string, 0, len(values)-1)
			for j, sv := range values {
				if j != i {
					siblings = append(siblings, sv)
				}
			}

			penalty := 0.0
			var tags []string
			for _, detect := range v.detectors {
				for _, p := range detect(g.NormalizedValue, siblings) {
					penalty += p.Penalty
					tags = append(tags, p.Tag)
				}
			}

			// Bonus uses the earliest recording date among the assertion's
			// supporting records; skipped (zero) when no record carries one.
			var recordIDs []string
			sourceYear := 0
			for _, o := range g.Observations {
				recordIDs = append(recordIDs, o.RecordID)
				if y := recordYears[o.RecordID]; y != 0 && (sourceYear == 0 || y < sourceYear) {
					sourceYear = y
				}
			}
			eventYear := yearIn(g.NormalizedValue)

			assertions[i] = model.CompetingAssertion{
				SubjectID:              entityID,
				FactType:               factType,
				Value:                  g.NormalizedValue,
				EvidenceRecordIDs:      recordIDs,
				ConflictGroupID:        groupID,
				Status:                 model.StatusPendingReview,
				PriorWeight:            g.TotalWeight,
				PatternPenalty:         penalty,
				Patterns:               tags,
				TemporalProximityBonus: v.temporalBonus(sourceYear, eventYear),
			}
		}

		groups = append(groups, model.ConflictGroup{
			ID:         groupID,
			SubjectID:  entityID,
			FactType:   factType,
			FieldName:  fe.FieldName,
			Assertions: assertions,
			Status:     model.StatusPendingReview,
		})
	}
	return groups
}

func yearIn(value string) int {
	s := fourDigits.FindString(value)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
