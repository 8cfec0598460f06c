package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/beltledger/internal/domain"
	"github.com/vanshika/beltledger/internal/ledger"
)

// LedgerSource is the read side of the ledger backend used for mirroring.
type LedgerSource interface {
	Profiles(ctx context.Context, opts ledger.ListOptions) ([]domain.ProfileSummary, error)
	ProfilesCount(ctx context.Context, opts ledger.ListOptions) (int, error)
	Belts(ctx context.Context, opts ledger.ListOptions) ([]domain.Rank, error)
	BeltsCount(ctx context.Context, opts ledger.ListOptions) (int, error)
	Promotions(ctx context.Context, opts ledger.ListOptions) ([]domain.Promotion, error)
	PromotionsCount(ctx context.Context, opts ledger.ListOptions) (int, error)
}

// SyncOptions tunes a mirror run.
type SyncOptions struct {
	PageSize     int
	PageFetchers int
}

// SyncReport counts the records fetched in one run.
type SyncReport struct {
	Profiles   int           `json:"profiles"`
	Ranks      int           `json:"ranks"`
	Promotions int           `json:"promotions"`
	Duration   time.Duration `json:"duration"`
}

// SyncService mirrors the ledger listings into the lineage graph.
type SyncService struct {
	source   LedgerSource
	ingestor *BulkIngestor
	opts     SyncOptions
	logger   *slog.Logger
	nowFn    func() time.Time
}

// NewSyncService wires a mirror run.
func NewSyncService(source LedgerSource, ingestor *BulkIngestor, opts SyncOptions, logger *slog.Logger) *SyncService {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.PageFetchers <= 0 {
		opts.PageFetchers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		source:   source,
		ingestor: ingestor,
		opts:     opts,
		logger:   logger.With("component", "sync"),
		nowFn:    time.Now,
	}
}

// Run fetches profiles, ranks and pending promotions and upserts them in
// that order so every rank finds its holder already named. A failure to
// fetch aborts the run; per-record write failures are collected and
// returned together after all kinds were attempted.
func (s *SyncService) Run(ctx context.Context) (SyncReport, error) {
	start := s.nowFn()
	var report SyncReport
	var failures []error

	profiles, err := fetchAll(ctx, s.opts, s.source.ProfilesCount, s.source.Profiles)
	if err != nil {
		return report, err
	}
	report.Profiles = len(profiles)
	if err := s.ingestor.IngestProfiles(ctx, profiles); err != nil {
		if isContextErr(err) {
			return report, err
		}
		failures = append(failures, err)
	}

	ranks, err := fetchAll(ctx, s.opts, s.source.BeltsCount, s.source.Belts)
	if err != nil {
		return report, err
	}
	report.Ranks = len(ranks)
	if err := s.ingestor.IngestRanks(ctx, ranks); err != nil {
		if isContextErr(err) {
			return report, err
		}
		failures = append(failures, err)
	}

	promotions, err := fetchAll(ctx, s.opts, s.source.PromotionsCount, s.source.Promotions)
	if err != nil {
		return report, err
	}
	report.Promotions = len(promotions)
	if err := s.ingestor.IngestPromotions(ctx, promotions); err != nil {
		if isContextErr(err) {
			return report, err
		}
		failures = append(failures, err)
	}

	report.Duration = s.nowFn().Sub(start)
	s.logger.Info("lineage sync finished",
		"profiles", report.Profiles,
		"ranks", report.Ranks,
		"promotions", report.Promotions,
		"failures", len(failures),
		"duration", report.Duration,
	)
	return report, errors.Join(failures...)
}

// fetchAll reads every page of a listing, several pages at a time.
func fetchAll[T any](
	ctx context.Context,
	opts SyncOptions,
	count func(context.Context, ledger.ListOptions) (int, error),
	page func(context.Context, ledger.ListOptions) ([]T, error),
) ([]T, error) {
	total, err := count(ctx, ledger.ListOptions{})
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, nil
	}

	pages := (total + opts.PageSize - 1) / opts.PageSize
	results := make([][]T, pages)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.PageFetchers)
	for i := range pages {
		g.Go(func() error {
			items, err := page(gctx, ledger.ListOptions{Limit: opts.PageSize, Offset: i * opts.PageSize})
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]T, 0, total)
	for _, items := range results {
		out = append(out, items...)
	}
	return out, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
