package matching

import "testing"

func TestScorerExactIDWins(t *testing.T) {
	t.Parallel()

	s := NewScorer(DefaultPlayerConfig())
	conf, tier := s.Score(Signals{ExactID: true})
	if conf != 1 || tier != TierAutoAccept {
		t.Fatalf("exact id = (%f, %s), want (1, auto_accept)", conf, tier)
	}
}

func TestScorerTiers(t *testing.T) {
	t.Parallel()

	s := NewScorer(DefaultPlayerConfig())

	tests := []struct {
		name string
		sig  Signals
		tier Tier
	}{
		{
			"perfect signals auto accept",
			Signals{NameSimilarity: 1, TeamMatch: true, PositionMatch: true},
			TierAutoAccept,
		},
		{
			"strong name with team clears accept",
			Signals{NameSimilarity: 0.95, TeamMatch: true, PositionMatch: true},
			TierAutoAccept,
		},
		{
			"good name without position lands in review",
			Signals{NameSimilarity: 0.9, TeamMatch: true},
			TierManualReview,
		},
		{
			"weak everything rejects",
			Signals{NameSimilarity: 0.4},
			TierReject,
		},
		{
			"no signals rejects",
			Signals{},
			TierReject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			conf, tier := s.Score(tt.sig)
			if tier != tt.tier {
				t.Fatalf("score %f landed in %s, want %s", conf, tier, tt.tier)
			}
		})
	}
}

func TestScorerMonotonic(t *testing.T) {
	t.Parallel()

	s := NewScorer(DefaultPlayerConfig())
	base := Signals{NameSimilarity: 0.6}
	baseConf, _ := s.Score(base)

	stronger := []Signals{
		{NameSimilarity: 0.8},
		{NameSimilarity: 0.6, TeamMatch: true},
		{NameSimilarity: 0.6, PositionMatch: true},
		{NameSimilarity: 0.6, TeamMatch: true, PositionMatch: true},
	}
	for _, sig := range stronger {
		conf, _ := s.Score(sig)
		if conf < baseConf {
			t.Fatalf("raising a signal lowered confidence: %f < %f for %+v", conf, baseConf, sig)
		}
	}
}

func TestScorerDeterministic(t *testing.T) {
	t.Parallel()

	s := NewScorer(DefaultGameConfig())
	sig := Signals{NameSimilarity: 0.91, TeamMatch: true, TimeProximity: 0.7}
	first, _ := s.Score(sig)
	for i := 0; i < 10; i++ {
		if conf, _ := s.Score(sig); conf != first {
			t.Fatalf("scorer returned %f then %f for equal input", first, conf)
		}
	}
}

func TestScorerClampsOutOfRangeSignals(t *testing.T) {
	t.Parallel()

	s := NewScorer(DefaultPlayerConfig())
	conf, _ := s.Score(Signals{NameSimilarity: 3, TeamMatch: true, PositionMatch: true})
	if conf > 1 {
		t.Fatalf("confidence %f escaped [0, 1]", conf)
	}
}
