package sourcerecord

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindGame   Kind = "game"
	KindPlayer Kind = "player"
)

// Known feed names. Mapping tables accept arbitrary sources; only these
// three are mirrored onto canonical per-source id columns.
const (
	SourceStats = "stats_api"
	SourceOdds  = "odds_api"
	SourceNews  = "news_feed"
)

// Record is the immutable capture of one upstream payload. Exactly one of
// Game or Player is set, matching Kind.
type Record struct {
	Source   string
	Sport    string
	Kind     Kind
	SourceID string

	Game   *GameFields
	Player *PlayerFields

	// RawPayload keeps the upstream JSON for audit and replay.
	RawPayload []byte

	IngestedAt time.Time
}

// GameFields carries the game attributes a source exposes. HomeKey and
// AwayKey are source-specific team keys (abbreviations, slugs); HomeName and
// AwayName are display names used as a fallback when the key is unknown to
// the team registry.
type GameFields struct {
	HomeKey     string
	AwayKey     string
	HomeName    string
	AwayName    string
	ScheduledAt time.Time
	Status      string
	Venue       string
}

type PlayerFields struct {
	Name     string
	TeamKey  string
	TeamName string
	Position string
}

func (r Record) Validate() error {
	if r.Source == "" || r.Sport == "" || r.SourceID == "" {
		return fmt.Errorf("record source, sport and source id are required")
	}
	switch r.Kind {
	case KindGame:
		if r.Game == nil {
			return fmt.Errorf("game record has no game fields")
		}
		if r.Game.ScheduledAt.IsZero() {
			return fmt.Errorf("game record has no scheduled time")
		}
		if r.Game.HomeKey == "" && r.Game.HomeName == "" {
			return fmt.Errorf("game record has no home team")
		}
		if r.Game.AwayKey == "" && r.Game.AwayName == "" {
			return fmt.Errorf("game record has no away team")
		}
	case KindPlayer:
		if r.Player == nil {
			return fmt.Errorf("player record has no player fields")
		}
		if r.Player.Name == "" {
			return fmt.Errorf("player record has no name")
		}
	default:
		return fmt.Errorf("record kind %q is invalid", r.Kind)
	}
	return nil
}
