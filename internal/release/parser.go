// Package release extracts structured attributes from tracker feed titles.
package release

import (
	"fmt"
	"regexp"
	"strings"
)

// Reason identifies which attribute could not be extracted from a title.
type Reason string

const (
	ReasonNoName    Reason = "no_name"
	ReasonNoQuality Reason = "no_quality"
	ReasonNoSeries  Reason = "no_series"
)

// ParseFailure is returned when a title lacks one of the required attributes.
type ParseFailure struct {
	Title  string
	Reason Reason
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("%s: %q", e.Reason, e.Title)
}

// ParsedItem is a feed entry whose name, quality and series were all found.
type ParsedItem struct {
	Name       string   `json:"name"`
	SeriesID   SeriesID `json:"seriesId"`
	Quality    string   `json:"quality"`
	SourceLink string   `json:"sourceLink"`
	Title      string   `json:"title"`
}

// IsSeason reports whether the item is a whole-season release.
func (p *ParsedItem) IsSeason() bool {
	return p.SeriesID.IsSeason()
}

var (
	// Parenthesized segments: "(Full Title)", "(S02E05)"
	parenPattern = regexp.MustCompile(`\(([^()]+)\)`)

	// Bracketed segments: "[720p]"
	bracketPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)
)

// Aliases maps raw release names to their canonical names.
type Aliases map[string]string

// Resolve returns the canonical name for raw. Unknown names pass through.
func (a Aliases) Resolve(raw string) string {
	if canonical, ok := a[raw]; ok && canonical != "" {
		return canonical
	}
	return raw
}

// Parse extracts a ParsedItem from a feed title such as
// "Show.Name.(Full Title).(S02E05).[720p].rus.LostFilm.TV". A non-empty
// qualityHint (the feed's category field) takes precedence over a quality in
// brackets. Any missing attribute yields a *ParseFailure and no item.
func Parse(title, qualityHint, link string, aliases Aliases) (*ParsedItem, error) {
	name := extractName(title)
	if name == "" {
		return nil, &ParseFailure{Title: title, Reason: ReasonNoName}
	}

	quality := cleanQuality(qualityHint)
	if quality == "" {
		if m := bracketPattern.FindStringSubmatch(title); m != nil {
			quality = cleanQuality(m[1])
		}
	}
	if quality == "" {
		return nil, &ParseFailure{Title: title, Reason: ReasonNoQuality}
	}

	series, ok := extractSeries(title)
	if !ok {
		return nil, &ParseFailure{Title: title, Reason: ReasonNoSeries}
	}

	return &ParsedItem{
		Name:       aliases.Resolve(name),
		SeriesID:   series,
		Quality:    quality,
		SourceLink: link,
		Title:      title,
	}, nil
}

// extractName returns the first parenthesized segment that is not a series token.
func extractName(title string) string {
	for _, m := range parenPattern.FindAllStringSubmatch(title, -1) {
		candidate := strings.TrimSpace(m[1])
		if candidate == "" {
			continue
		}
		if _, isSeries := ParseSeriesID(candidate); isSeries {
			continue
		}
		return candidate
	}
	return ""
}

func extractSeries(title string) (SeriesID, bool) {
	for _, m := range parenPattern.FindAllStringSubmatch(title, -1) {
		if id, ok := ParseSeriesID(strings.TrimSpace(m[1])); ok {
			return id, true
		}
	}
	return "", false
}

func cleanQuality(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "[]"))
}
