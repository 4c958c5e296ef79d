package postgres

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestErrorClassification(t *testing.T) {
	if !isNotFound(sql.ErrNoRows) {
		t.Fatal("sql.ErrNoRows should classify as not found")
	}
	if !isNotFound(fmt.Errorf("select game: %w", sql.ErrNoRows)) {
		t.Fatal("wrapped sql.ErrNoRows should classify as not found")
	}

	unique := &pq.Error{Code: pqUniqueViolation}
	if !isUniqueViolation(unique) {
		t.Fatal("23505 should classify as unique violation")
	}
	if isForeignKeyViolation(unique) {
		t.Fatal("23505 is not a foreign key violation")
	}

	fk := &pq.Error{Code: pqForeignKeyViolation}
	if !isForeignKeyViolation(fk) {
		t.Fatal("23503 should classify as foreign key violation")
	}
	if isUniqueViolation(fk) {
		t.Fatal("23503 is not a unique violation")
	}

	if isUniqueViolation(nil) || isForeignKeyViolation(nil) || isNotFound(nil) {
		t.Fatal("nil error should not classify")
	}
}

func TestGameSourceColumn(t *testing.T) {
	cases := map[string]string{
		"stats_api": "stats_game_id",
		"odds_api":  "odds_event_id",
		"news_feed": "news_game_key",
	}
	for source, want := range cases {
		got, err := gameSourceColumn(source)
		if err != nil {
			t.Fatalf("gameSourceColumn(%s): %v", source, err)
		}
		if got != want {
			t.Fatalf("gameSourceColumn(%s) = %q, want %q", source, got, want)
		}
	}
	if _, err := gameSourceColumn("rumor_mill"); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestPlayerSourceColumn(t *testing.T) {
	cases := map[string]string{
		"stats_api": "stats_player_id",
		"odds_api":  "odds_player_id",
		"news_feed": "news_player_key",
	}
	for source, want := range cases {
		got, err := playerSourceColumn(source)
		if err != nil {
			t.Fatalf("playerSourceColumn(%s): %v", source, err)
		}
		if got != want {
			t.Fatalf("playerSourceColumn(%s) = %q, want %q", source, got, want)
		}
	}
	if _, err := playerSourceColumn("rumor_mill"); err == nil {
		t.Fatal("expected error for unknown source")
	}
}
