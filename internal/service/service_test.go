package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/beltledger/internal/domain"
	"github.com/vanshika/beltledger/internal/ledger"
)

type stubRepository struct {
	mu         sync.Mutex
	profiles   []string
	ranks      []string
	promotions []string
	cleared    []string
	rankErr    error
	lineage    []domain.LineageStep
	lineageID  string
	students   []domain.LineageStep
}

func (s *stubRepository) UpsertProfile(_ context.Context, p domain.ProfileSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = append(s.profiles, p.ID)
	return nil
}

func (s *stubRepository) UpsertRank(_ context.Context, r domain.Rank) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rankErr != nil && r.ID == "bad" {
		return s.rankErr
	}
	s.ranks = append(s.ranks, r.ID)
	return nil
}

func (s *stubRepository) UpsertPromotion(_ context.Context, p domain.Promotion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promotions = append(s.promotions, p.ID)
	return nil
}

func (s *stubRepository) ClearPromotion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, id)
	return nil
}

func (s *stubRepository) Lineage(_ context.Context, id string, _ int) ([]domain.LineageStep, error) {
	s.lineageID = id
	return append([]domain.LineageStep(nil), s.lineage...), nil
}

func (s *stubRepository) Students(context.Context, string) ([]domain.LineageStep, error) {
	return append([]domain.LineageStep(nil), s.students...), nil
}

func (s *stubRepository) PendingPromotions(_ context.Context, id string) ([]domain.Promotion, error) {
	return []domain.Promotion{{ID: "p", AchievedByProfileID: id}}, nil
}

type stubSource struct {
	mu        sync.Mutex
	ranks     []domain.Rank
	fetchErr  error
	pageCalls []ledger.ListOptions
}

func page[T any](items []T, opts ledger.ListOptions) []T {
	if opts.Offset >= len(items) {
		return nil
	}
	end := min(opts.Offset+opts.Limit, len(items))
	return items[opts.Offset:end]
}

func (s *stubSource) Profiles(_ context.Context, opts ledger.ListOptions) ([]domain.ProfileSummary, error) {
	return page([]domain.ProfileSummary{{ID: "m.1"}, {ID: "s.1"}}, opts), nil
}

func (s *stubSource) ProfilesCount(context.Context, ledger.ListOptions) (int, error) { return 2, nil }

func (s *stubSource) Belts(_ context.Context, opts ledger.ListOptions) ([]domain.Rank, error) {
	s.mu.Lock()
	s.pageCalls = append(s.pageCalls, opts)
	s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return page(s.ranks, opts), nil
}

func (s *stubSource) BeltsCount(context.Context, ledger.ListOptions) (int, error) {
	return len(s.ranks), nil
}

func (s *stubSource) Promotions(_ context.Context, opts ledger.ListOptions) ([]domain.Promotion, error) {
	return page([]domain.Promotion{{ID: "promo-1"}}, opts), nil
}

func (s *stubSource) PromotionsCount(context.Context, ledger.ListOptions) (int, error) { return 1, nil }

type stubNames map[string]string

func (n stubNames) Name(_ context.Context, id string) string {
	if name, ok := n[id]; ok {
		return name
	}
	return id
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ranks(ids ...string) []domain.Rank {
	out := make([]domain.Rank, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Rank{ID: id, AchievedByProfileID: "s.1"})
	}
	return out
}

func TestSyncServiceMirrorsAllPages(t *testing.T) {
	repo := &stubRepository{}
	source := &stubSource{ranks: ranks("r1", "r2", "r3", "r4", "r5")}
	svc := NewSyncService(source, NewBulkIngestor(repo, 2, nil), SyncOptions{PageSize: 2, PageFetchers: 2}, testLogger())

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Profiles)
	assert.Equal(t, 5, report.Ranks)
	assert.Equal(t, 1, report.Promotions)

	sort.Strings(repo.ranks)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4", "r5"}, repo.ranks)
	assert.ElementsMatch(t, repo.ranks, repo.cleared)
	assert.ElementsMatch(t, []string{"m.1", "s.1"}, repo.profiles)
	assert.Equal(t, []string{"promo-1"}, repo.promotions)

	offsets := []int{}
	for _, c := range source.pageCalls {
		assert.Equal(t, 2, c.Limit)
		offsets = append(offsets, c.Offset)
	}
	sort.Ints(offsets)
	assert.Equal(t, []int{0, 2, 4}, offsets)
}

func TestSyncServiceCollectsWriteFailures(t *testing.T) {
	boom := errors.New("write failed")
	repo := &stubRepository{rankErr: boom}
	source := &stubSource{ranks: ranks("ok", "bad")}
	svc := NewSyncService(source, NewBulkIngestor(repo, 1, nil), SyncOptions{}, testLogger())

	report, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Len(t, taskErr.Errors, 1)

	assert.Equal(t, 2, report.Ranks)
	assert.Equal(t, []string{"promo-1"}, repo.promotions)
}

func TestSyncServiceAbortsOnFetchError(t *testing.T) {
	boom := errors.New("ledger down")
	repo := &stubRepository{}
	source := &stubSource{ranks: ranks("r1"), fetchErr: boom}
	svc := NewSyncService(source, NewBulkIngestor(repo, 1, nil), SyncOptions{}, testLogger())

	_, err := svc.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Empty(t, repo.promotions)
}

func TestBulkIngestorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := &stubRepository{}
	err := NewBulkIngestor(repo, 2, nil).IngestRanks(ctx, ranks("a", "b", "c"))
	assert.NoError(t, err)
	assert.LessOrEqual(t, len(repo.ranks), 3)
}

func TestTaskErrorMessage(t *testing.T) {
	var te TaskError
	assert.Equal(t, "no errors", te.Error())
	assert.NoError(t, te.asError())

	te.append(nil)
	te.append(errors.New("a"))
	assert.Equal(t, "a", te.Error())
	te.append(errors.New("b"))
	assert.Equal(t, "multiple errors: a; b;", te.Error())
}

func TestLineageServiceNormalizesAndFillsNames(t *testing.T) {
	policy := "0123456789abcdef0123456789abcdef0123456789abcdef01234567"
	repo := &stubRepository{lineage: []domain.LineageStep{
		{ProfileID: policy + ".000643b0aa", AwardedBy: "m.1"},
		{ProfileID: "m.1", ProfileName: "Known"},
	}}
	svc := NewLineageService(repo, stubNames{policy + ".000643b0aa": "Student"})

	steps, err := svc.Lineage(context.Background(), policy+"000de140aa", 0)
	require.NoError(t, err)
	assert.Equal(t, policy+".000643b0aa", repo.lineageID)
	assert.Equal(t, "Student", steps[0].ProfileName)
	assert.Equal(t, "Known", steps[1].ProfileName)

	_, err = svc.Lineage(context.Background(), "  ", 0)
	assert.ErrorIs(t, err, ErrInvalidProfileID)

	pending, err := svc.PendingPromotions(context.Background(), "a.b")
	require.NoError(t, err)
	assert.Equal(t, "a.b", pending[0].AchievedByProfileID)
}
