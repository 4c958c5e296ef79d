package matching

// Tier buckets a confidence score against the acceptance thresholds.
type Tier string

const (
	TierAutoAccept   Tier = "auto_accept"
	TierManualReview Tier = "manual_review"
	TierReject       Tier = "reject"
)

// Weights assigns a relative importance to each signal. A zero weight
// removes the signal from scoring entirely.
type Weights struct {
	NameSimilarity float64
	TeamMatch      float64
	PositionMatch  float64
	TimeProximity  float64
}

type Thresholds struct {
	AutoAccept   float64
	ManualReview float64
}

type ScorerConfig struct {
	Weights    Weights
	Thresholds Thresholds
}

// DefaultPlayerConfig weighs name similarity heaviest, with team and
// position as corroborating signals.
func DefaultPlayerConfig() ScorerConfig {
	return ScorerConfig{
		Weights:    Weights{NameSimilarity: 0.6, TeamMatch: 0.25, PositionMatch: 0.15},
		Thresholds: Thresholds{AutoAccept: 0.85, ManualReview: 0.70},
	}
}

// DefaultGameConfig weighs the team pair heaviest, with kickoff proximity
// as the corroborating signal.
func DefaultGameConfig() ScorerConfig {
	return ScorerConfig{
		Weights:    Weights{NameSimilarity: 0.5, TeamMatch: 0.3, TimeProximity: 0.2},
		Thresholds: Thresholds{AutoAccept: 0.85, ManualReview: 0.70},
	}
}

// Signals are the per-candidate inputs to one scoring call. ExactID short
// circuits everything else. Continuous signals are in [0, 1].
type Signals struct {
	ExactID        bool
	NameSimilarity float64
	TeamMatch      bool
	PositionMatch  bool
	TimeProximity  float64
}

// Map flattens the signals for audit payloads and review candidates.
func (s Signals) Map() map[string]float64 {
	m := map[string]float64{
		"name_similarity": s.NameSimilarity,
		"time_proximity":  s.TimeProximity,
	}
	m["team_match"] = boolSignal(s.TeamMatch)
	m["position_match"] = boolSignal(s.PositionMatch)
	if s.ExactID {
		m["exact_id"] = 1
	}
	return m
}

func boolSignal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Scorer turns match signals into a confidence score and tier. It holds no
// mutable state; one instance serves all goroutines.
type Scorer struct {
	cfg ScorerConfig
}

func NewScorer(cfg ScorerConfig) Scorer {
	return Scorer{cfg: cfg}
}

// Score computes the weighted average of the active signals, clamped to
// [0, 1]. An exact external id match scores 1.0 outright. Raising any
// signal never lowers the score.
func (s Scorer) Score(sig Signals) (float64, Tier) {
	if sig.ExactID {
		return 1, s.TierFor(1)
	}

	w := s.cfg.Weights
	total := w.NameSimilarity + w.TeamMatch + w.PositionMatch + w.TimeProximity
	if total <= 0 {
		return 0, TierReject
	}

	sum := w.NameSimilarity*clamp01(sig.NameSimilarity) +
		w.TeamMatch*boolSignal(sig.TeamMatch) +
		w.PositionMatch*boolSignal(sig.PositionMatch) +
		w.TimeProximity*clamp01(sig.TimeProximity)

	conf := clamp01(sum / total)
	return conf, s.TierFor(conf)
}

// TierFor buckets an already-computed confidence.
func (s Scorer) TierFor(conf float64) Tier {
	switch {
	case conf >= s.cfg.Thresholds.AutoAccept:
		return TierAutoAccept
	case conf >= s.cfg.Thresholds.ManualReview:
		return TierManualReview
	default:
		return TierReject
	}
}

func (s Scorer) Thresholds() Thresholds { return s.cfg.Thresholds }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
