package rsssync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slipstream/feedgrab/internal/downloader/types"
	"github.com/slipstream/feedgrab/internal/release"
)

func TestParseJobName(t *testing.T) {
	tests := []struct {
		job      string
		wantName string
		wantID   release.SeriesID
		wantOK   bool
	}{
		{"Full.Title.S02E05.720p.rus.LostFilm.TV.avi", "Full Title", "S02E05", true},
		{"Full.Title.S02E05.1080p.rus.LostFilm.TV.mkv", "Full Title", "S02E05", true},
		{"The_Show.s1e3.SD.rus.LostFilm.TV", "The Show", "S01E03", true},
		{"Full.Title.S03.1080p.rus.LostFilm.TV", "Full Title", "S03E99", true},
		{"Full.Title.Season.4.rus.LostFilm.TV", "Full Title", "S04E99", true},
		{"Full Title S05 720p rus LostFilm TV", "Full Title", "S05E99", true},
		{"Show.Name.S02.E05.720p.rus.LostFilm.TV.avi", "Show Name", "S02E05", true},
		{"Show_Name_S02_E06_720p_rus_LostFilm_TV", "Show Name", "S02E06", true},
		{"Show Name S02 E07 rus LostFilm TV", "Show Name", "S02E07", true},
		{"random.linux.iso", "", "", false},
		{"S02E05.720p.rus.LostFilm.TV", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.job, func(t *testing.T) {
			name, id, ok := ParseJobName(tt.job)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestBuildCatalog(t *testing.T) {
	jobs := []types.DownloadItem{
		{Name: "Full.Title.S02E05.720p.rus.LostFilm.TV.avi"},
		{Name: "Full.Title.S02E05.1080p.rus.LostFilm.TV.mkv"}, // same release, other quality
		{Name: "Full.Title.S02E06.720p.rus.LostFilm.TV.avi"},
		{Name: "Full.Title.S01.1080p.rus.LostFilm.TV"},
		{Name: "Marvels.Agents.of.S.H.I.E.L.D.S05E01.1080p.rus.LostFilm.TV.mkv"},
		{Name: "Other.Show.S01E01.720p.WEB-DL.mkv"}, // not from the tracked source
		{Name: "LostFilm promo pack"},              // marker without a parsable name
	}
	aliases := release.Aliases{"Marvels Agents of S H I E L D": "Agents of SHIELD"}

	catalog := BuildCatalog(jobs, "LostFilm", aliases)

	assert.Len(t, catalog, 2)
	assert.Len(t, catalog["Full Title"], 3)
	assert.True(t, catalog.Has("Full Title", "S02E05"))
	assert.True(t, catalog.Has("Full Title", "S02E06"))
	assert.True(t, catalog.Has("Full Title", "S01E99"))
	assert.True(t, catalog.Has("Agents of SHIELD", "S05E01"))
	assert.False(t, catalog.Has("Other Show", "S01E01"))
	assert.False(t, catalog.Has("Unknown", "S01E01"))
	assert.Equal(t, 4, catalog.Releases())
}

func TestBuildCatalog_DefaultMarker(t *testing.T) {
	catalog := BuildCatalog([]types.DownloadItem{{Name: "Full.Title.S01E01.720p.rus.LostFilm.TV"}}, "", nil)
	assert.True(t, catalog.Has("Full Title", "S01E01"))
}

func TestBuildCatalog_SplitEpisodeTokenIsNotSeason(t *testing.T) {
	catalog := BuildCatalog([]types.DownloadItem{{Name: "Show.Name.S02.E05.720p.rus.LostFilm.TV.avi"}}, "", nil)
	assert.True(t, catalog.Has("Show Name", "S02E05"))
	assert.False(t, catalog.Has("Show Name", "S02E99"))
}
