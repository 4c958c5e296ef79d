package memory

import (
	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
	"github.com/riskibarqy/sportsync/internal/domain/teamregistry"
)

// SeedTeamRegistry returns the bootstrap source-key to team-code table.
// Each source publishes teams under its own key scheme: the stats feed uses
// tricodes, the odds feed uses slugs, the news feed uses display names.
func SeedTeamRegistry() []teamregistry.Entry {
	return []teamregistry.Entry{
		{Sport: "basketball", Source: sourcerecord.SourceStats, SourceKey: "LAL", TeamCode: "LAL", TeamName: "Los Angeles Lakers"},
		{Sport: "basketball", Source: sourcerecord.SourceStats, SourceKey: "BOS", TeamCode: "BOS", TeamName: "Boston Celtics"},
		{Sport: "basketball", Source: sourcerecord.SourceStats, SourceKey: "GSW", TeamCode: "GSW", TeamName: "Golden State Warriors"},
		{Sport: "basketball", Source: sourcerecord.SourceStats, SourceKey: "NYK", TeamCode: "NYK", TeamName: "New York Knicks"},
		{Sport: "basketball", Source: sourcerecord.SourceStats, SourceKey: "BKN", TeamCode: "BKN", TeamName: "Brooklyn Nets"},
		{Sport: "basketball", Source: sourcerecord.SourceStats, SourceKey: "MIA", TeamCode: "MIA", TeamName: "Miami Heat"},
		{Sport: "basketball", Source: sourcerecord.SourceStats, SourceKey: "DEN", TeamCode: "DEN", TeamName: "Denver Nuggets"},
		{Sport: "basketball", Source: sourcerecord.SourceStats, SourceKey: "PHX", TeamCode: "PHX", TeamName: "Phoenix Suns"},
		{Sport: "basketball", Source: sourcerecord.SourceStats, SourceKey: "MIL", TeamCode: "MIL", TeamName: "Milwaukee Bucks"},
		{Sport: "basketball", Source: sourcerecord.SourceStats, SourceKey: "DAL", TeamCode: "DAL", TeamName: "Dallas Mavericks"},

		{Sport: "basketball", Source: sourcerecord.SourceOdds, SourceKey: "lakers", TeamCode: "LAL", TeamName: "LA Lakers"},
		{Sport: "basketball", Source: sourcerecord.SourceOdds, SourceKey: "celtics", TeamCode: "BOS", TeamName: "Boston Celtics"},
		{Sport: "basketball", Source: sourcerecord.SourceOdds, SourceKey: "warriors", TeamCode: "GSW", TeamName: "Golden State"},
		{Sport: "basketball", Source: sourcerecord.SourceOdds, SourceKey: "knicks", TeamCode: "NYK", TeamName: "NY Knicks"},
		{Sport: "basketball", Source: sourcerecord.SourceOdds, SourceKey: "nets", TeamCode: "BKN", TeamName: "Brooklyn Nets"},
		{Sport: "basketball", Source: sourcerecord.SourceOdds, SourceKey: "heat", TeamCode: "MIA", TeamName: "Miami Heat"},
		{Sport: "basketball", Source: sourcerecord.SourceOdds, SourceKey: "nuggets", TeamCode: "DEN", TeamName: "Denver Nuggets"},
		{Sport: "basketball", Source: sourcerecord.SourceOdds, SourceKey: "suns", TeamCode: "PHX", TeamName: "Phoenix Suns"},
		{Sport: "basketball", Source: sourcerecord.SourceOdds, SourceKey: "bucks", TeamCode: "MIL", TeamName: "Milwaukee Bucks"},
		{Sport: "basketball", Source: sourcerecord.SourceOdds, SourceKey: "mavericks", TeamCode: "DAL", TeamName: "Dallas Mavericks"},

		{Sport: "basketball", Source: sourcerecord.SourceNews, SourceKey: "Los Angeles Lakers", TeamCode: "LAL", TeamName: "Los Angeles Lakers"},
		{Sport: "basketball", Source: sourcerecord.SourceNews, SourceKey: "Boston Celtics", TeamCode: "BOS", TeamName: "Boston Celtics"},
		{Sport: "basketball", Source: sourcerecord.SourceNews, SourceKey: "Golden State Warriors", TeamCode: "GSW", TeamName: "Golden State Warriors"},
		{Sport: "basketball", Source: sourcerecord.SourceNews, SourceKey: "New York Knicks", TeamCode: "NYK", TeamName: "New York Knicks"},
		{Sport: "basketball", Source: sourcerecord.SourceNews, SourceKey: "Brooklyn Nets", TeamCode: "BKN", TeamName: "Brooklyn Nets"},
		{Sport: "basketball", Source: sourcerecord.SourceNews, SourceKey: "Miami Heat", TeamCode: "MIA", TeamName: "Miami Heat"},
		{Sport: "basketball", Source: sourcerecord.SourceNews, SourceKey: "Denver Nuggets", TeamCode: "DEN", TeamName: "Denver Nuggets"},
		{Sport: "basketball", Source: sourcerecord.SourceNews, SourceKey: "Phoenix Suns", TeamCode: "PHX", TeamName: "Phoenix Suns"},
		{Sport: "basketball", Source: sourcerecord.SourceNews, SourceKey: "Milwaukee Bucks", TeamCode: "MIL", TeamName: "Milwaukee Bucks"},
		{Sport: "basketball", Source: sourcerecord.SourceNews, SourceKey: "Dallas Mavericks", TeamCode: "DAL", TeamName: "Dallas Mavericks"},
	}
}
