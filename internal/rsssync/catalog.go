package rsssync

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/slipstream/feedgrab/internal/downloader/types"
	"github.com/slipstream/feedgrab/internal/release"
)

// DefaultSourceMarker identifies jobs that came from the tracked feed.
const DefaultSourceMarker = "LostFilm"

var (
	// Show.Name.S02E05.720p.rus.LostFilm.TV.avi or Show.Name.S02.E05.720p...
	jobEpisodePattern = regexp.MustCompile(`(?i)^(.+?)[.\s_-]+S(\d{1,4})[.\s_-]?E(\d{1,4})(?:[.\s_-]|$)`)

	// Show.Name.S03.1080p.rus.LostFilm.TV or Show.Name.Season.3.rus.LostFilm.TV
	jobSeasonPattern = regexp.MustCompile(`(?i)^(.+?)[.\s_-]+(?:S(\d{1,4})|Season[.\s_-]*(\d{1,4}))(?:[.\s_-]|$)`)

	nameSeparators = strings.NewReplacer(".", " ", "_", " ")
)

// Catalog indexes the releases already present in the job queue by canonical
// name. It is a snapshot rebuilt on every run.
type Catalog map[string]map[release.SeriesID]struct{}

// Has reports whether the series id is already present for name. A name the
// catalog has never seen is not present.
func (c Catalog) Has(name string, id release.SeriesID) bool {
	ids, ok := c[name]
	if !ok {
		return false
	}
	_, ok = ids[id]
	return ok
}

func (c Catalog) add(name string, id release.SeriesID) {
	ids, ok := c[name]
	if !ok {
		ids = make(map[release.SeriesID]struct{})
		c[name] = ids
	}
	ids[id] = struct{}{}
}

// Releases returns the number of distinct (name, series) pairs.
func (c Catalog) Releases() int {
	n := 0
	for _, ids := range c {
		n += len(ids)
	}
	return n
}

// BuildCatalog normalizes the queue's jobs into a Catalog. Jobs without the
// source marker in their name, or whose name matches neither the episode nor
// the whole-season convention, are ignored.
func BuildCatalog(jobs []types.DownloadItem, marker string, aliases release.Aliases) Catalog {
	if marker == "" {
		marker = DefaultSourceMarker
	}

	catalog := make(Catalog)
	for i := range jobs {
		if !strings.Contains(jobs[i].Name, marker) {
			continue
		}
		name, id, ok := ParseJobName(jobs[i].Name)
		if !ok {
			continue
		}
		catalog.add(aliases.Resolve(name), id)
	}
	return catalog
}

// ParseJobName derives the raw release name and series id from a job name.
// Whole-season jobs map to the synthetic id SxxE99. The episode form is tried
// first, so a season token followed by an episode token is never a season.
func ParseJobName(jobName string) (string, release.SeriesID, bool) {
	if m := jobEpisodePattern.FindStringSubmatch(jobName); m != nil {
		season, _ := strconv.Atoi(m[2])
		episode, _ := strconv.Atoi(m[3])
		name := cleanJobName(m[1])
		if name == "" {
			return "", "", false
		}
		return name, release.NewSeriesID(season, episode), true
	}

	if m := jobSeasonPattern.FindStringSubmatch(jobName); m != nil {
		number := m[2]
		if number == "" {
			number = m[3]
		}
		season, _ := strconv.Atoi(number)
		name := cleanJobName(m[1])
		if name == "" {
			return "", "", false
		}
		return name, release.SeasonID(season), true
	}

	return "", "", false
}

func cleanJobName(raw string) string {
	return strings.Join(strings.Fields(nameSeparators.Replace(raw)), " ")
}
