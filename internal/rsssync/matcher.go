package rsssync

import (
	"github.com/slipstream/feedgrab/internal/release"
)

// Rules is the subscription configuration a run evaluates feed items against.
type Rules struct {
	// Episodes maps a canonical name to the quality wanted for single episodes.
	Episodes map[string]string

	// Seasons maps a canonical name to the quality wanted for whole seasons.
	Seasons map[string]string

	// SeasonWildcard, when set, is the season quality for every name that has
	// no entry in Seasons.
	SeasonWildcard string

	// GlobalSeasonQuality qualifies any season release on its own.
	GlobalSeasonQuality string

	Blacklist map[string]struct{}
}

// NewBlacklist builds the blacklist set.
func NewBlacklist(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// DecisionReason explains why an item was accepted or rejected.
type DecisionReason string

const (
	ReasonAccepted       DecisionReason = "accepted"
	ReasonBlacklisted    DecisionReason = "blacklisted"
	ReasonNotSubscribed  DecisionReason = "not_subscribed"
	ReasonWrongQuality   DecisionReason = "wrong_quality"
	ReasonAlreadyPresent DecisionReason = "already_present"

	// ReasonInvalidName is set by the dispatcher, not ShouldFetch, when the
	// name cannot serve as a directory name.
	ReasonInvalidName DecisionReason = "invalid_name"
)

// Decision is the matcher's verdict for one item.
type Decision struct {
	Accept bool
	Reason DecisionReason
}

func reject(reason DecisionReason) Decision {
	return Decision{Reason: reason}
}

// ShouldFetch decides whether item should be submitted. Checks run in order:
// blacklist, eligibility for the release kind, presence in the catalog.
func ShouldFetch(item *release.ParsedItem, catalog Catalog, rules *Rules) Decision {
	if _, banned := rules.Blacklist[item.Name]; banned {
		return reject(ReasonBlacklisted)
	}

	if reason, ok := eligible(item, rules); !ok {
		return reject(reason)
	}

	if catalog.Has(item.Name, item.SeriesID) {
		return reject(ReasonAlreadyPresent)
	}

	return Decision{Accept: true, Reason: ReasonAccepted}
}

func eligible(item *release.ParsedItem, rules *Rules) (DecisionReason, bool) {
	if !item.IsSeason() {
		want, ok := rules.Episodes[item.Name]
		if !ok {
			return ReasonNotSubscribed, false
		}
		if want != item.Quality {
			return ReasonWrongQuality, false
		}
		return "", true
	}

	if rules.GlobalSeasonQuality != "" && rules.GlobalSeasonQuality == item.Quality {
		return "", true
	}

	want, ok := rules.seasonQuality(item.Name)
	if !ok {
		return ReasonNotSubscribed, false
	}
	if want != item.Quality {
		return ReasonWrongQuality, false
	}
	return "", true
}

func (r *Rules) seasonQuality(name string) (string, bool) {
	if want, ok := r.Seasons[name]; ok {
		return want, true
	}
	if r.SeasonWildcard != "" {
		return r.SeasonWildcard, true
	}
	return "", false
}
