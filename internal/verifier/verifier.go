// Package verifier scores the evidence behind a resolved entity: source
// tiers, per-field consensus, conflict detection and adjudication, and the
// Genealogical Proof Standard compliance score.
//
// The verifier never errors out. Missing or malformed fields produce empty
// evidence; adjudicator failures degrade to pending_review; only the numbers
// say how good the evidence is.
package verifier

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/keifu-ai/keifu/internal/adjudicate"
	"github.com/keifu-ai/keifu/internal/model"
	"github.com/keifu-ai/keifu/internal/trace"
)

// GPS score weights and thresholds.
const (
	qualityWeight       = 0.4
	agreementWeight     = 0.4
	corroborationWeight = 0.2

	reviewConsensusFloor = 0.6
)

// Config carries the verifier's injectable policies. Zero values select the
// defaults.
type Config struct {
	Firewall      Firewall
	TemporalBonus TemporalBonusFunc
	Detectors     []PatternDetector
}

// Verifier scores one entity at a time.
type Verifier struct {
	adjudicator   adjudicate.Adjudicator
	firewall      Firewall
	temporalBonus TemporalBonusFunc
	detectors     []PatternDetector
	logger        *slog.Logger
}

// New creates a verifier. A nil adjudicator defers every conflict.
func New(adj adjudicate.Adjudicator, cfg Config, logger *slog.Logger) *Verifier {
	if adj == nil {
		adj = adjudicate.Noop{}
	}
	if cfg.TemporalBonus == nil {
		cfg.TemporalBonus = DefaultTemporalBonus
	}
	if cfg.Detectors == nil {
		cfg.Detectors = DefaultPatternDetectors
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		adjudicator:   adj,
		firewall:      cfg.Firewall,
		temporalBonus: cfg.TemporalBonus,
		detectors:     cfg.Detectors,
		logger:        logger,
	}
}

// Verify scores the evidence for one entity given its records.
func (v *Verifier) Verify(ctx context.Context, entity model.ResolvedEntity, records []model.RawRecord, rec *trace.Recorder) model.EvidenceScore {
	start := time.Now()

	records = v.filterUnsupported(records)
	fields := buildFieldEvidence(records)
	original, derivative, authored := countTiers(records)

	conflicts := v.detectConflicts(entity.ID, records, fields)
	for i := range conflicts {
		v.adjudicateGroup(ctx, &conflicts[i])
	}

	consensusCount, contestedCount := 0, 0
	consensusSum := 0.0
	scored := 0
	for _, fe := range fields {
		if len(fe.Groups) == 0 {
			continue
		}
		scored++
		consensusSum += fe.ConsensusScore
		if fe.IsContested {
			contestedCount++
		} else {
			consensusCount++
		}
	}

	meanConsensus := 0.5
	if scored > 0 {
		meanConsensus = consensusSum / float64(scored)
	}

	score := model.EvidenceScore{
		EntityID:            entity.ID,
		Fields:              fields,
		OriginalSources:     original,
		DerivativeSources:   derivative,
		AuthoredSources:     authored,
		Conflicts:           conflicts,
		ConsensusFieldCount: consensusCount,
		ContestedFieldCount: contestedCount,
	}

	score.GPSComplianceScore = gpsScore(original, derivative, authored, consensusCount, contestedCount, entity.SourceCount)

	score.OverallConfidence = entity.ClusterConfidence * meanConsensus
	if score.OverallConfidence > 1.0 {
		score.OverallConfidence = 1.0
	}

	if contestedCount > 0 && meanConsensus < reviewConsensusFloor {
		score.RequiresHumanReview = true
		score.HumanReviewReason = "contested fields with weak consensus: " + strings.Join(contestedFieldNames(fields), ", ")
	}

	rec.TimedEvent(model.RoleVerifier, model.EventEvidenceVerified, "evidence verified", map[string]any{
		"entity_id":        entity.ID,
		"fields":           len(fields),
		"contested_fields": contestedCount,
		"conflicts":        len(conflicts),
		"gps_score":        score.GPSComplianceScore,
		"requires_review":  score.RequiresHumanReview,
	}, time.Since(start))

	return score
}

// adjudicateGroup asks the adjudicator to settle one conflict group and
// applies the verdict. Failures and non-resolved verdicts preserve the
// conflict.
func (v *Verifier) adjudicateGroup(ctx context.Context, group *model.ConflictGroup) {
	input := model.AdjudicationInput{
		SubjectID:  group.SubjectID,
		FactType:   group.FactType,
		Assertions: group.Assertions,
	}
	verdict, err := v.adjudicator.Adjudicate(ctx, input)
	if err != nil {
		v.logger.Warn("verifier: adjudication failed, conflict preserved",
			"fact_type", group.FactType, "error", err)
		group.Status = model.StatusPendingReview
		return
	}

	group.Analysis = verdict.Analysis
	if verdict.ResolutionStatus == model.StatusResolved &&
		verdict.WinningAssertion != nil &&
		*verdict.WinningAssertion >= 0 && *verdict.WinningAssertion < len(group.Assertions) {
		winner := *verdict.WinningAssertion
		group.Status = model.StatusResolved
		group.WinnerIdx = &winner
		for i := range group.Assertions {
			if i == winner {
				group.Assertions[i].Status = model.StatusResolved
			} else {
				group.Assertions[i].Status = model.StatusRejected
			}
		}
		return
	}

	// Non-resolved (or malformed resolved) verdicts never force a choice.
	status := verdict.ResolutionStatus
	if !status.Valid() || status == model.StatusResolved || status == model.StatusRejected {
		status = model.StatusPendingReview
	}
	group.Status = status
	for i := range group.Assertions {
		group.Assertions[i].Status = status
	}
}

// filterUnsupported drops records whose citation snippet fails the firewall
// in strict mode. Records without a snippet are untouched; the firewall
// guards extracted claims, not raw source data.
func (v *Verifier) filterUnsupported(records []model.RawRecord) []model.RawRecord {
	if !v.firewall.Strict {
		return records
	}
	kept := records[:0:0]
	for _, rec := range records {
		snippet := rec.ExtractedFields["citation_snippet"]
		if snippet != "" && !v.firewall.Supported(snippet, string(rec.RawData)) {
			v.logger.Warn("verifier: claim rejected by hallucination firewall",
				"record", rec.Key(), "snippet", snippet)
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// countTiers counts distinct sources per tier. A source appearing with
// multiple record types is counted once, at its best (highest) tier.
func countTiers(records []model.RawRecord) (original, derivative, authored int) {
	best := make(map[string]model.SourceTier)
	for _, rec := range records {
		tier := ClassifyTier(rec.Source, rec.RecordType)
		if cur, ok := best[rec.Source]; !ok || tier.Weight() > cur.Weight() {
			best[rec.Source] = tier
		}
	}
	for _, tier := range best {
		switch tier {
		case model.TierOriginal:
			original++
		case model.TierDerivative:
			derivative++
		case model.TierAuthored:
			authored++
		}
	}
	return original, derivative, authored
}

// gpsScore combines source quality, field agreement, and corroboration into
// the Genealogical Proof Standard compliance score.
func gpsScore(original, derivative, authored, consensusFields, contestedFields, sourceCount int) float64 {
	totalSources := original + derivative + authored

	quality := 0.0
	if totalSources > 0 {
		quality = (float64(original)*1.0 + float64(derivative)*0.7 + float64(authored)*0.4) / float64(totalSources)
	}

	agreement := 0.5
	if consensusFields+contestedFields > 0 {
		agreement = float64(consensusFields) / float64(consensusFields+contestedFields)
	}

	corroboration := float64(sourceCount) / 3.0
	if corroboration > 1.0 {
		corroboration = 1.0
	}

	return qualityWeight*quality + agreementWeight*agreement + corroborationWeight*corroboration
}

func contestedFieldNames(fields []model.FieldEvidence) []string {
	var names []string
	for _, fe := range fields {
		if fe.IsContested {
			names = append(names, fe.FieldName)
		}
	}
	return names
}
