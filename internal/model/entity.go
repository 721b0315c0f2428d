package model

// ResolvedEntity is a cluster of records believed to describe one person.
// The entity ID is the cluster's content fingerprint, so identical evidence
// always resolves to the same entity across runs.
type ResolvedEntity struct {
	ID                 string   `json:"id"` // fingerprint, hex
	RecordIDs          []string `json:"record_ids"`
	Sources            []string `json:"sources"` // distinct, sorted
	BestName           string   `json:"best_name,omitempty"`
	BestBirthYear      int      `json:"best_birth_year,omitempty"`
	BestDeathYear      int      `json:"best_death_year,omitempty"`
	BestBirthPlace     string   `json:"best_birth_place,omitempty"`
	ClusterConfidence  float64  `json:"cluster_confidence"`
	CorroborationBoost float64  `json:"corroboration_boost"`
	RecordCount        int      `json:"record_count"`
	SourceCount        int      `json:"source_count"`
}

// EntityClusters is the resolver's output for one execution: entities sorted
// by descending cluster confidence, plus the records that carried too little
// identifying content to cluster.
type EntityClusters struct {
	ExecutionID         string           `json:"execution_id"`
	Entities            []ResolvedEntity `json:"entities"`
	UnresolvedRecordIDs []string         `json:"unresolved_record_ids"`
	TotalRecords        int              `json:"total_records"`
	TotalEntities       int              `json:"total_entities"`
	MultiSourceEntities int              `json:"multi_source_entities"`
}
