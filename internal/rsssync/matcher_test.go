package rsssync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipstream/feedgrab/internal/release"
)

func parseItem(t *testing.T, title, quality string) *release.ParsedItem {
	t.Helper()
	item, err := release.Parse(title, quality, "https://tracker.example/t.torrent", nil)
	require.NoError(t, err)
	return item
}

func episodeItem(name, series, quality string) *release.ParsedItem {
	return &release.ParsedItem{Name: name, SeriesID: release.SeriesID(series), Quality: quality}
}

func TestShouldFetch_EpisodeScenario(t *testing.T) {
	item := parseItem(t, "Show.Name.(Full Title).(S02E05).[720p].rus.LostFilm.TV", "720p")
	rules := &Rules{Episodes: map[string]string{"Full Title": "720p"}}

	d := ShouldFetch(item, Catalog{}, rules)
	assert.True(t, d.Accept)
	assert.Equal(t, ReasonAccepted, d.Reason)

	catalog := Catalog{}
	catalog.add("Full Title", "S02E05")
	d = ShouldFetch(item, catalog, rules)
	assert.False(t, d.Accept)
	assert.Equal(t, ReasonAlreadyPresent, d.Reason)
}

func TestShouldFetch_SeasonScenario(t *testing.T) {
	item := parseItem(t, "Шоу (Full Title). Сезон 1 (S01E99) [1080p]", "1080p")
	rules := &Rules{GlobalSeasonQuality: "1080p"}

	d := ShouldFetch(item, Catalog{}, rules)
	assert.True(t, d.Accept)
}

func TestShouldFetch_GlobalSeasonQualityOverridesMissingRule(t *testing.T) {
	item := episodeItem("Nobody Subscribed", "S03E99", "1080p")
	rules := &Rules{
		Episodes:            map[string]string{"Nobody Subscribed": "720p"},
		GlobalSeasonQuality: "1080p",
	}

	assert.True(t, ShouldFetch(item, Catalog{}, rules).Accept)

	item.Quality = "720p"
	d := ShouldFetch(item, Catalog{}, rules)
	assert.False(t, d.Accept)
	assert.Equal(t, ReasonNotSubscribed, d.Reason)
}

func TestShouldFetch_SeasonRules(t *testing.T) {
	tests := []struct {
		name    string
		rules   Rules
		item    *release.ParsedItem
		want    bool
		wantWhy DecisionReason
	}{
		{
			name:    "per-name season rule",
			rules:   Rules{Seasons: map[string]string{"Full Title": "1080p"}},
			item:    episodeItem("Full Title", "S02E99", "1080p"),
			want:    true,
			wantWhy: ReasonAccepted,
		},
		{
			name:    "per-name season rule wrong quality",
			rules:   Rules{Seasons: map[string]string{"Full Title": "1080p"}},
			item:    episodeItem("Full Title", "S02E99", "720p"),
			wantWhy: ReasonWrongQuality,
		},
		{
			name:    "wildcard season quality",
			rules:   Rules{SeasonWildcard: "1080p"},
			item:    episodeItem("Anything", "S02E99", "1080p"),
			want:    true,
			wantWhy: ReasonAccepted,
		},
		{
			name:    "per-name rule beats wildcard",
			rules:   Rules{Seasons: map[string]string{"Full Title": "720p"}, SeasonWildcard: "1080p"},
			item:    episodeItem("Full Title", "S02E99", "1080p"),
			wantWhy: ReasonWrongQuality,
		},
		{
			name:    "episode rule does not cover seasons",
			rules:   Rules{Episodes: map[string]string{"Full Title": "1080p"}},
			item:    episodeItem("Full Title", "S02E99", "1080p"),
			wantWhy: ReasonNotSubscribed,
		},
		{
			name:    "season rule does not cover episodes",
			rules:   Rules{Seasons: map[string]string{"Full Title": "1080p"}, GlobalSeasonQuality: "1080p"},
			item:    episodeItem("Full Title", "S02E03", "1080p"),
			wantWhy: ReasonNotSubscribed,
		},
		{
			name:    "episode wrong quality",
			rules:   Rules{Episodes: map[string]string{"Full Title": "1080p"}},
			item:    episodeItem("Full Title", "S02E03", "SD"),
			wantWhy: ReasonWrongQuality,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ShouldFetch(tt.item, Catalog{}, &tt.rules)
			assert.Equal(t, tt.want, d.Accept)
			assert.Equal(t, tt.wantWhy, d.Reason)
		})
	}
}

func TestShouldFetch_BlacklistDominates(t *testing.T) {
	item := episodeItem("Full Title", "S01E99", "1080p")
	rules := &Rules{
		Episodes:            map[string]string{"Full Title": "1080p"},
		Seasons:             map[string]string{"Full Title": "1080p"},
		SeasonWildcard:      "1080p",
		GlobalSeasonQuality: "1080p",
		Blacklist:           NewBlacklist([]string{"Full Title"}),
	}

	d := ShouldFetch(item, Catalog{}, rules)
	assert.False(t, d.Accept)
	assert.Equal(t, ReasonBlacklisted, d.Reason)
}

func TestShouldFetch_PresentIsNeverFetched(t *testing.T) {
	catalog := Catalog{}
	catalog.add("Full Title", "S02E05")
	catalog.add("Full Title", "S01E99")

	ruleSets := []*Rules{
		{Episodes: map[string]string{"Full Title": "720p"}},
		{Episodes: map[string]string{"Full Title": "1080p"}},
		{GlobalSeasonQuality: "720p"},
		{SeasonWildcard: "720p", Seasons: map[string]string{"Full Title": "720p"}},
	}

	for _, rules := range ruleSets {
		for _, quality := range []string{"720p", "1080p", "SD"} {
			assert.False(t, ShouldFetch(episodeItem("Full Title", "S02E05", quality), catalog, rules).Accept)
			assert.False(t, ShouldFetch(episodeItem("Full Title", "S01E99", quality), catalog, rules).Accept)
		}
	}
}

func TestShouldFetch_Pure(t *testing.T) {
	item := episodeItem("Full Title", "S02E05", "720p")
	catalog := Catalog{}
	catalog.add("Other", "S01E01")
	rules := &Rules{
		Episodes:  map[string]string{"Full Title": "720p"},
		Blacklist: NewBlacklist([]string{"Banned"}),
	}

	before := *item
	first := ShouldFetch(item, catalog, rules)
	second := ShouldFetch(item, catalog, rules)

	assert.Equal(t, first, second)
	assert.Equal(t, before, *item)
	assert.Len(t, catalog, 1)
	assert.False(t, catalog.Has("Full Title", "S02E05"))
	assert.Len(t, rules.Episodes, 1)
	assert.Len(t, rules.Blacklist, 1)
}
