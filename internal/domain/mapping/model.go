package mapping

import (
	"errors"
	"fmt"
	"time"
)

var ErrDuplicate = errors.New("duplicate mapping")

type Kind string

const (
	KindGame   Kind = "game"
	KindPlayer Kind = "player"
)

func (k Kind) Valid() bool { return k == KindGame || k == KindPlayer }

type Status string

const (
	StatusPending      Status = "pending"
	StatusMatched      Status = "matched"
	StatusFailed       Status = "failed"
	StatusManualReview Status = "manual_review"
)

// Method records which pipeline step produced a match.
type Method string

const (
	MethodExactID    Method = "exact_id"
	MethodTimeWindow Method = "time_window"
	MethodFuzzyTeam  Method = "fuzzy_team"
	MethodNameTeam   Method = "name_team"
	MethodAlias      Method = "alias"
	MethodFuzzyName  Method = "fuzzy_name"
	MethodCreated    Method = "created"
	MethodManual     Method = "manual"
)

// Mapping links one (source, source id) pair to a canonical entity. The pair
// is unique per sport and kind; CanonicalID is empty while the record sits in
// manual review or is marked failed.
type Mapping struct {
	Sport       string
	Kind        Kind
	Source      string
	SourceID    string
	CanonicalID string
	Confidence  float64
	Method      Method
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (m Mapping) Validate() error {
	if m.Sport == "" || m.Source == "" || m.SourceID == "" {
		return fmt.Errorf("mapping sport, source and source id are required")
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("mapping kind %q is invalid", m.Kind)
	}
	if m.Status == StatusMatched && m.CanonicalID == "" {
		return fmt.Errorf("matched mapping requires a canonical id")
	}
	return nil
}
