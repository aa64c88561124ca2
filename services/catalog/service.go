// Package catalog ties the fetch pipeline together: it pulls the full
// course catalog for a term from the registration API, persists it,
// and archives the run's validation report.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"advisor-backend/lib/coursestore"
	"advisor-backend/lib/respcache"
	"advisor-backend/lib/scrapers/fose"
	"advisor-backend/lib/termcode"
	"advisor-backend/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/catalog")

type Config struct {
	BaseUrl      string  `json:"base_url"`
	ContactEmail string  `json:"contact_email"`
	RateLimit    float64 `json:"rate_limit"`
	Burst        int     `json:"burst"`
	// sqlite database path, ":memory:" for ephemeral
	DatabasePath string `json:"database_path"`
	// badger cache directory, empty for in-memory
	CacheDir string `json:"cache_dir"`
	// TTLs in seconds, zero means package defaults
	SearchTTLSeconds  int `json:"search_ttl_seconds"`
	DetailsTTLSeconds int `json:"details_ttl_seconds"`
}

type Service struct {
	config Config
	store  coursestore.Store
	cache  *respcache.Cache
}

func NewService(config Config, store coursestore.Store, cache *respcache.Cache) Service {
	return Service{
		config: config,
		store:  store,
		cache:  cache,
	}
}

func (s Service) Store() coursestore.Store {
	return s.store
}

type SyncResult struct {
	TermCode string
	Courses  int
	Sections int
	Report   *fose.Report
}

// Sync fetches the full catalog for a term, persists it and archives
// the validation report. Catalog data is stored even when the report
// has issues; only a failed search or a storage error aborts the run.
func (s Service) Sync(ctx context.Context, term string) (SyncResult, error) {
	ctx, span := tracer.Start(ctx, "Sync")
	defer span.End()
	span.SetAttributes(attribute.String("term_code", term))

	report := fose.NewReport(term)
	client := fose.NewClient(fose.ClientOptions{
		BaseUrl:      s.config.BaseUrl,
		ContactEmail: s.config.ContactEmail,
		Rate:         s.config.RateLimit,
		Burst:        s.config.Burst,
		Cache:        s.cache,
		SearchTTL:    time.Duration(s.config.SearchTTLSeconds) * time.Second,
		DetailsTTL:   time.Duration(s.config.DetailsTTLSeconds) * time.Second,
		Report:       report,
	})
	defer client.Close()

	fetcher := fose.NewFetcher(client)
	courses, err := fetcher.FetchAllCourses(ctx, term)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		if saveErr := s.store.SaveReport(ctx, report); saveErr != nil {
			slog.WarnContext(ctx, "failed to archive report for failed run",
				"term", term, "err", saveErr)
		}
		return SyncResult{}, err
	}

	err = s.store.Upsert(ctx, term, courses)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist catalog")
		return SyncResult{}, fmt.Errorf("persist catalog for term %s: %w", term, err)
	}
	err = s.store.SaveReport(ctx, report)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to archive report")
		return SyncResult{}, fmt.Errorf("archive report for term %s: %w", term, err)
	}

	sections := 0
	for _, course := range courses {
		sections += len(course.Sections)
	}
	if report.HasIssues() {
		slog.WarnContext(ctx, "catalog sync finished with data quality issues",
			"term", term, "courses", len(courses), "sections", sections)
	} else {
		slog.InfoContext(ctx, "catalog sync finished",
			"term", term, "courses", len(courses), "sections", sections)
	}

	span.SetAttributes(
		attribute.Int("courses", len(courses)),
		attribute.Int("sections", sections),
	)
	return SyncResult{
		TermCode: term,
		Courses:  len(courses),
		Sections: sections,
		Report:   report,
	}, nil
}

// SyncCurrent syncs the term students can currently register for.
func (s Service) SyncCurrent(ctx context.Context) (SyncResult, error) {
	return s.Sync(ctx, termcode.Current(timezone.Now()).Code())
}

// Run syncs the current term in a loop. The interval tightens during
// registration periods and the target term rolls over on its own.
func (s Service) Run(ctx context.Context) error {
	for {
		now := timezone.Now()
		term := termcode.Current(now)

		_, err := s.Sync(ctx, term.Code())
		if err != nil {
			slog.ErrorContext(ctx, "catalog sync failed",
				"term", term.Code(), "err", err)
		}

		interval := termcode.UpdateInterval(now)
		slog.InfoContext(ctx, "next catalog sync scheduled",
			"term", term.Code(), "interval", interval)

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
