package service

import (
	"context"
	"errors"
	"strings"

	"github.com/vanshika/beltledger/internal/domain"
	"github.com/vanshika/beltledger/internal/resolver"
)

// ErrInvalidProfileID is returned for ids that are empty after normalization.
var ErrInvalidProfileID = errors.New("invalid profile id")

// LineageRepository is the storage contract required by the lineage services.
type LineageRepository interface {
	UpsertProfile(ctx context.Context, p domain.ProfileSummary) error
	UpsertRank(ctx context.Context, rank domain.Rank) error
	UpsertPromotion(ctx context.Context, p domain.Promotion) error
	ClearPromotion(ctx context.Context, promotionID string) error
	Lineage(ctx context.Context, profileID string, maxDepth int) ([]domain.LineageStep, error)
	Students(ctx context.Context, profileID string) ([]domain.LineageStep, error)
	PendingPromotions(ctx context.Context, profileID string) ([]domain.Promotion, error)
}

// NameLookup resolves display names for profile ids.
type NameLookup interface {
	Name(ctx context.Context, id string) string
}

// LineageService answers lineage queries for the HTTP layer.
type LineageService struct {
	repo  LineageRepository
	names NameLookup
}

// NewLineageService wires the service. names may be nil.
func NewLineageService(repo LineageRepository, names NameLookup) *LineageService {
	return &LineageService{repo: repo, names: names}
}

// Lineage returns the chain of awarding profiles above id.
func (s *LineageService) Lineage(ctx context.Context, id string, maxDepth int) ([]domain.LineageStep, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	steps, err := s.repo.Lineage(ctx, id, maxDepth)
	if err != nil {
		return nil, err
	}
	s.fillNames(ctx, steps)
	return steps, nil
}

// Students returns the ranks id has awarded.
func (s *LineageService) Students(ctx context.Context, id string) ([]domain.LineageStep, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	steps, err := s.repo.Students(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fillNames(ctx, steps)
	return steps, nil
}

// PendingPromotions returns promotions waiting for id to accept them.
func (s *LineageService) PendingPromotions(ctx context.Context, id string) ([]domain.Promotion, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.PendingPromotions(ctx, id)
}

// fillNames completes names the graph does not know yet.
func (s *LineageService) fillNames(ctx context.Context, steps []domain.LineageStep) {
	if s.names == nil {
		return
	}
	for i := range steps {
		if steps[i].ProfileName == "" {
			steps[i].ProfileName = s.names.Name(ctx, steps[i].ProfileID)
		}
	}
}

func normalizeID(id string) (string, error) {
	id = resolver.NormalizeProfileID(id)
	if id == "" || !strings.Contains(id, ".") {
		return "", ErrInvalidProfileID
	}
	return id, nil
}
