package executor

import "github.com/keifu-ai/keifu/internal/model"

// confidenceAfterPass estimates how confident we are in the coverage so far.
//
//	record_factor = min(1.0, total_records / 10)
//	source_factor = successful sources / attempted sources
//	confidence    = (record_factor + source_factor) / 2
//
// Adding a successful source result never decreases the estimate.
func confidenceAfterPass(results []model.SourceExecutionResult) float64 {
	if len(results) == 0 {
		return 0.0
	}
	totalRecords := 0
	successes := 0
	for _, r := range results {
		if r.Success {
			successes++
			totalRecords += r.TotalCount
		}
	}
	recordFactor := float64(totalRecords) / 10.0
	if recordFactor > 1.0 {
		recordFactor = 1.0
	}
	sourceFactor := float64(successes) / float64(len(results))
	return (recordFactor + sourceFactor) / 2.0
}

// aggregate fills the execution result's aggregated views from its per-source
// results. Records keep pass order (pass-1 results precede pass-2 results in
// SourceResults, so their records do too) and the total is capped.
func aggregate(result *model.ExecutionResult, maxTotalResults int) {
	for _, sr := range result.SourceResults {
		if sr.Success {
			result.SourcesSearched = append(result.SourcesSearched, sr.SourceName)
			result.AllRecords = append(result.AllRecords, sr.Records...)
		} else {
			result.SourcesFailed = append(result.SourcesFailed, sr.SourceName)
		}
	}
	if maxTotalResults > 0 && len(result.AllRecords) > maxTotalResults {
		result.AllRecords = result.AllRecords[:maxTotalResults]
	}
}
