package release

import (
	"fmt"
	"regexp"
	"strconv"
)

// SeasonEpisode is the reserved episode number that marks a whole-season release.
const SeasonEpisode = 99

var seriesPattern = regexp.MustCompile(`(?i)^S(\d{1,4})E(\d{1,4})$`)

// SeriesID is a normalized season/episode token such as "S02E05".
type SeriesID string

// NewSeriesID builds a normalized id from season and episode numbers.
func NewSeriesID(season, episode int) SeriesID {
	return SeriesID(fmt.Sprintf("S%02dE%02d", season, episode))
}

// SeasonID returns the synthetic id used for a whole-season release.
func SeasonID(season int) SeriesID {
	return NewSeriesID(season, SeasonEpisode)
}

// ParseSeriesID normalizes tokens like "s2e5" or "S02E005" to "S02E05".
func ParseSeriesID(token string) (SeriesID, bool) {
	m := seriesPattern.FindStringSubmatch(token)
	if m == nil {
		return "", false
	}
	season, _ := strconv.Atoi(m[1])
	episode, _ := strconv.Atoi(m[2])
	return NewSeriesID(season, episode), true
}

// IsSeason reports whether the id denotes a whole-season release.
func (id SeriesID) IsSeason() bool {
	m := seriesPattern.FindStringSubmatch(string(id))
	if m == nil {
		return false
	}
	episode, _ := strconv.Atoi(m[2])
	return episode == SeasonEpisode
}

func (id SeriesID) String() string {
	return string(id)
}
