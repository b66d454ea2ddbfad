// Package rsssync reconciles the tracker feed against the job queue: it builds
// the catalog of releases already queued, matches each feed item against the
// subscription rules and submits the ones that are new.
package rsssync

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/slipstream/feedgrab/internal/downloader/types"
	"github.com/slipstream/feedgrab/internal/feed"
	"github.com/slipstream/feedgrab/internal/history"
	"github.com/slipstream/feedgrab/internal/release"
)

// FeedSource yields the feed's items in feed order.
type FeedSource interface {
	Fetch(ctx context.Context) ([]feed.Item, error)
}

// Recorder persists dispatch outcomes.
type Recorder interface {
	Create(ctx context.Context, input *history.CreateInput) (*history.Entry, error)
}

// Settings holds everything a run needs besides its collaborators.
type Settings struct {
	Marker  string
	Cookies string
	Aliases release.Aliases
	Rules   Rules

	// DryRun evaluates every item but submits nothing.
	DryRun bool

	// ContinueOnError keeps going after a failed submission. Authentication
	// failures still end the run.
	ContinueOnError bool
}

// ItemOutcome records what happened to one feed item.
type ItemOutcome struct {
	Title        string              `json:"title"`
	Item         *release.ParsedItem `json:"item,omitempty"`
	ParseFailure release.Reason      `json:"parseFailure,omitempty"`
	Decision     Decision            `json:"decision"`
	Destination  string              `json:"destination,omitempty"`
	JobID        string              `json:"jobId,omitempty"`
	Err          error               `json:"-"`
}

// RunResult summarizes one reconciliation pass.
type RunResult struct {
	RunID           string        `json:"runId"`
	StartedAt       time.Time     `json:"startedAt"`
	Elapsed         time.Duration `json:"elapsed"`
	DownloadDir     string        `json:"downloadDir"`
	CatalogReleases int           `json:"catalogReleases"`
	Items           []ItemOutcome `json:"items"`

	Skipped    int `json:"skipped"`  // parse failures
	Rejected   int `json:"rejected"` // matcher said no
	Accepted   int `json:"accepted"`
	Dispatched int `json:"dispatched"`
	Failed     int `json:"failed"`
}

// Service orchestrates reconciliation passes.
type Service struct {
	queue    types.Queue
	feed     FeedSource
	recorder Recorder
	settings Settings
	logger   zerolog.Logger
}

// NewService creates a new reconciliation service.
func NewService(queue types.Queue, source FeedSource, settings *Settings, logger zerolog.Logger) *Service {
	return &Service{
		queue:    queue,
		feed:     source,
		settings: *settings,
		logger:   logger.With().Str("component", "rsssync").Logger(),
	}
}

// SetRecorder enables dispatch history.
func (s *Service) SetRecorder(recorder Recorder) {
	s.recorder = recorder
}

// Run executes one full pass. Queue or feed failures end the pass with an
// error; items whose titles cannot be parsed are skipped. The returned result
// is non-nil even when err is not.
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger := s.logger.With().Str("run", result.RunID).Logger()
	defer func() { result.Elapsed = time.Since(result.StartedAt) }()

	logger.Info().Bool("dryRun", s.settings.DryRun).Msg("RSS sync starting")

	root, err := s.queue.GetDownloadDir(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to get download dir: %w", err)
	}
	result.DownloadDir = root

	jobs, err := s.queue.List(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list jobs: %w", err)
	}

	catalog := BuildCatalog(jobs, s.settings.Marker, s.settings.Aliases)
	result.CatalogReleases = catalog.Releases()
	logger.Debug().
		Str("downloadDir", root).
		Int("jobs", len(jobs)).
		Int("names", len(catalog)).
		Int("releases", result.CatalogReleases).
		Msg("built catalog")

	items, err := s.feed.Fetch(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to fetch feed: %w", err)
	}
	logger.Info().Int("items", len(items)).Msg("RSS feed fetched")

	p := &pass{id: result.RunID, logger: logger, catalog: catalog, root: root}

	var submitErrs []error
	for i := range items {
		outcome := s.processItem(ctx, p, &items[i])
		result.Items = append(result.Items, outcome)

		switch {
		case outcome.ParseFailure != "":
			result.Skipped++
			continue
		case !outcome.Decision.Accept:
			result.Rejected++
			continue
		}

		result.Accepted++
		if outcome.Err == nil {
			if !s.settings.DryRun {
				result.Dispatched++
			}
			continue
		}

		result.Failed++
		if !s.settings.ContinueOnError || errors.Is(outcome.Err, types.ErrAuthFailed) {
			return result, fmt.Errorf("failed to submit %q: %w", outcome.Title, outcome.Err)
		}
		submitErrs = append(submitErrs, fmt.Errorf("%q: %w", outcome.Title, outcome.Err))
	}

	logger.Info().
		Int("items", len(items)).
		Int("skipped", result.Skipped).
		Int("rejected", result.Rejected).
		Int("accepted", result.Accepted).
		Int("dispatched", result.Dispatched).
		Int("failed", result.Failed).
		Dur("elapsed", time.Since(result.StartedAt)).
		Msg("RSS sync completed")

	if len(submitErrs) > 0 {
		return result, fmt.Errorf("%d submissions failed: %w", len(submitErrs), errors.Join(submitErrs...))
	}
	return result, nil
}

// pass carries the per-run state shared by every item of one run.
type pass struct {
	id      string
	logger  zerolog.Logger
	catalog Catalog
	root    string
}

func (s *Service) processItem(ctx context.Context, p *pass, it *feed.Item) ItemOutcome {
	outcome := ItemOutcome{Title: it.Title}
	logger := p.logger

	parsed, err := release.Parse(it.Title, it.Category, it.Link, s.settings.Aliases)
	if err != nil {
		var failure *release.ParseFailure
		if errors.As(err, &failure) {
			outcome.ParseFailure = failure.Reason
		}
		logger.Warn().Str("title", it.Title).Str("reason", string(outcome.ParseFailure)).Msg("skipping unparsable item")
		return outcome
	}
	outcome.Item = parsed

	outcome.Decision = ShouldFetch(parsed, p.catalog, &s.settings.Rules)
	if !outcome.Decision.Accept {
		logger.Debug().
			Str("title", it.Title).
			Str("name", parsed.Name).
			Str("series", parsed.SeriesID.String()).
			Str("quality", parsed.Quality).
			Str("reason", string(outcome.Decision.Reason)).
			Msg("item rejected")
		return outcome
	}

	dest, ok := Destination(p.root, parsed.Name)
	if !ok {
		outcome.Decision = reject(ReasonInvalidName)
		logger.Warn().
			Str("title", it.Title).
			Str("name", parsed.Name).
			Msg("item rejected: name is not a usable directory")
		return outcome
	}
	outcome.Destination = dest

	if s.settings.DryRun {
		logger.Info().
			Str("title", it.Title).
			Str("destination", outcome.Destination).
			Msg("dry run: would dispatch")
		return outcome
	}

	outcome.JobID, outcome.Err = s.queue.Add(ctx, &types.AddOptions{
		URL:         parsed.SourceLink,
		DownloadDir: outcome.Destination,
		Cookies:     s.settings.Cookies,
	})
	if outcome.Err != nil {
		logger.Error().Err(outcome.Err).Str("title", it.Title).Msg("dispatch failed")
		s.record(ctx, p, history.EventTypeFailed, &outcome)
		return outcome
	}

	logger.Info().
		Str("title", it.Title).
		Str("destination", outcome.Destination).
		Str("jobId", outcome.JobID).
		Msg("dispatched")
	s.record(ctx, p, history.EventTypeDispatched, &outcome)

	return outcome
}

func (s *Service) record(ctx context.Context, p *pass, event history.EventType, o *ItemOutcome) {
	if s.recorder == nil {
		return
	}

	input := &history.CreateInput{
		RunID:       p.id,
		EventType:   event,
		Title:       o.Title,
		Name:        o.Item.Name,
		SeriesID:    o.Item.SeriesID.String(),
		Quality:     o.Item.Quality,
		Destination: o.Destination,
		JobID:       o.JobID,
	}
	if o.Err != nil {
		input.Error = o.Err.Error()
	}

	if _, err := s.recorder.Create(ctx, input); err != nil {
		p.logger.Warn().Err(err).Msg("failed to record dispatch history")
	}
}

// Destination returns the directory a release named name is downloaded to.
// Transmission rejects directory names ending in a dot. ok is false when the
// trimmed name is empty or would leave root.
func Destination(root, name string) (string, bool) {
	name = strings.TrimRight(name, "./ ")
	if name == "" || strings.ContainsAny(name, "/\\") {
		return "", false
	}
	root = strings.ReplaceAll(root, "\\", "/")
	return path.Join(root, name), true
}
