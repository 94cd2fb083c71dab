package contracts

import "time"

// Stage names a step of the daily run. Used in logs, item failures and metrics.
//
// Flow per item:
//
//	acquire → persist → reconstruct → momentum → compose → overlay
//
// and once per run: rank → report.
type Stage string

const (
	// StageAcquire pulls today's observation from the acquisition sources
	StageAcquire Stage = "ACQUIRE"

	// StagePersist writes the observation to the snapshot store
	StagePersist Stage = "PERSIST"

	// StageReconstruct reads the lookback series back from the store
	StageReconstruct Stage = "RECONSTRUCT"

	// StageMomentum derives deltas, z-score and supply/DOM/demand moves
	StageMomentum Stage = "MOMENTUM"

	// StageCompose combines the metrics into the heat score and hot flag
	StageCompose Stage = "COMPOSE"

	// StageOverlay computes the max-bid thresholds
	StageOverlay Stage = "OVERLAY"

	// StageRank orders the records
	StageRank Stage = "RANK"

	// StageReport hands the records to the report writers
	StageReport Stage = "REPORT"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// AllStages returns all stages in run order
func AllStages() []Stage {
	return []Stage{
		StageAcquire,
		StagePersist,
		StageReconstruct,
		StageMomentum,
		StageCompose,
		StageOverlay,
		StageRank,
		StageReport,
	}
}

// ItemFailure records one item that could not be processed in a run
type ItemFailure struct {
	ItemID string `json:"item_id"`
	Stage  Stage  `json:"stage"`
	Error  string `json:"error"`
}

// RunMetadata is the run-level summary handed to the report writers
type RunMetadata struct {
	RunID               string        `json:"run_id"`
	AsOf                time.Time     `json:"as_of"`
	UniverseSize        int           `json:"universe_size"`
	Scored              int           `json:"scored"`
	InsufficientHistory int           `json:"insufficient_history"`
	MissingObservations int           `json:"missing_observations"`
	HotCount            int           `json:"hot_count"`
	ScoringHash         string        `json:"scoring_hash"`
	Failures            []ItemFailure `json:"failures,omitempty"`
	StartedAt           time.Time     `json:"started_at"`
	Duration            time.Duration `json:"duration_ns"`

	// StageDurations is the time spent in each stage, summed over items
	StageDurations map[Stage]time.Duration `json:"stage_durations_ns,omitempty"`
}

// RunResult is the ranked output of one scoring pass
type RunResult struct {
	Records  []HeatRecord `json:"records"`
	Metadata RunMetadata  `json:"metadata"`
}
