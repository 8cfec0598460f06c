package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vanshika/beltledger/internal/domain"
	"github.com/vanshika/beltledger/internal/graph"
)

// DefaultLineageDepth bounds lineage walks when the caller gives no limit.
const DefaultLineageDepth = 12

// Repository stores the promotion lineage graph.
type Repository struct {
	client graph.Client
	now    func() time.Time
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client, now: time.Now}
}

// UpsertProfile records a profile's name and type.
func (r *Repository) UpsertProfile(ctx context.Context, p domain.ProfileSummary) error {
	if p.ID == "" {
		return errors.New("profile id is required")
	}
	params := map[string]any{
		"profileId": p.ID,
		"name":      p.Name,
		"type":      string(p.Type),
		"updatedAt": r.timestamp(),
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertProfileCypher, params); err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.ID, err)
	}
	return nil
}

// UpsertRank records a held rank and, when known, who awarded it.
func (r *Repository) UpsertRank(ctx context.Context, rank domain.Rank) error {
	if rank.ID == "" {
		return errors.New("rank id is required")
	}
	if rank.AchievedByProfileID == "" {
		return fmt.Errorf("rank %s has no holder", rank.ID)
	}
	params := map[string]any{
		"rankId":     rank.ID,
		"holderId":   rank.AchievedByProfileID,
		"awardedBy":  rank.AwardedByProfileID,
		"belt":       string(rank.Belt),
		"level":      int64(rank.Belt.Level()),
		"achievedAt": rank.AchievementDate,
		"updatedAt":  r.timestamp(),
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertRankCypher, params); err != nil {
		return fmt.Errorf("upsert rank %s: %w", rank.ID, err)
	}
	return nil
}

// UpsertPromotion records a pending promotion between two profiles.
func (r *Repository) UpsertPromotion(ctx context.Context, p domain.Promotion) error {
	if p.ID == "" {
		return errors.New("promotion id is required")
	}
	if p.AchievedByProfileID == "" || p.AwardedByProfileID == "" {
		return fmt.Errorf("promotion %s needs both profiles", p.ID)
	}
	params := map[string]any{
		"promotionId": p.ID,
		"studentId":   p.AchievedByProfileID,
		"masterId":    p.AwardedByProfileID,
		"belt":        string(p.Belt),
		"proposedAt":  p.AchievementDate,
		"updatedAt":   r.timestamp(),
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertPromotionCypher, params); err != nil {
		return fmt.Errorf("upsert promotion %s: %w", p.ID, err)
	}
	return nil
}

// Lineage walks from a practitioner to the profile that awarded their
// highest rank, then to whoever awarded that profile's highest rank, and so
// on. The walk ends at a profile with no recorded awarder, at a cycle, or
// after maxDepth steps.
func (r *Repository) Lineage(ctx context.Context, profileID string, maxDepth int) ([]domain.LineageStep, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return nil, errors.New("profile id is required")
	}
	if maxDepth <= 0 {
		maxDepth = DefaultLineageDepth
	}

	visited := map[string]struct{}{}
	steps := make([]domain.LineageStep, 0, 4)
	current := profileID
	for len(steps) < maxDepth {
		if _, seen := visited[current]; seen {
			break
		}
		visited[current] = struct{}{}

		res, err := r.client.ExecuteRead(ctx, highestRankCypher, map[string]any{"profileId": current})
		if err != nil {
			return nil, fmt.Errorf("lineage of %s: %w", profileID, err)
		}
		rec, ok := res.First()
		if !ok {
			break
		}
		step := domain.LineageStep{
			ProfileID:   current,
			ProfileName: rec.String("profileName"),
			Belt:        domain.Belt(rec.String("belt")),
			AwardedBy:   rec.String("awardedBy"),
			AchievedAt:  rec.String("achievedAt"),
		}
		steps = append(steps, step)
		if step.AwardedBy == "" {
			break
		}
		current = step.AwardedBy
	}
	return steps, nil
}

// Students lists the ranks a profile awarded, newest first.
func (r *Repository) Students(ctx context.Context, profileID string) ([]domain.LineageStep, error) {
	res, err := r.client.ExecuteRead(ctx, studentsCypher, map[string]any{"profileId": profileID})
	if err != nil {
		return nil, fmt.Errorf("students of %s: %w", profileID, err)
	}
	out := make([]domain.LineageStep, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, domain.LineageStep{
			ProfileID:   rec.String("profileId"),
			ProfileName: rec.String("profileName"),
			Belt:        domain.Belt(rec.String("belt")),
			AwardedBy:   profileID,
			AchievedAt:  rec.String("achievedAt"),
		})
	}
	return out, nil
}

// PendingPromotions lists promotions awaiting acceptance by a profile.
func (r *Repository) PendingPromotions(ctx context.Context, profileID string) ([]domain.Promotion, error) {
	res, err := r.client.ExecuteRead(ctx, pendingPromotionsCypher, map[string]any{"profileId": profileID})
	if err != nil {
		return nil, fmt.Errorf("pending promotions of %s: %w", profileID, err)
	}
	out := make([]domain.Promotion, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, domain.Promotion{
			ID:                  rec.String("promotionId"),
			Belt:                domain.Belt(rec.String("belt")),
			AchievedByProfileID: profileID,
			AwardedByProfileID:  rec.String("masterId"),
			AchievementDate:     rec.String("proposedAt"),
		})
	}
	return out, nil
}

// ClearPromotion removes a promotion once it was accepted or withdrawn.
func (r *Repository) ClearPromotion(ctx context.Context, promotionID string) error {
	if _, err := r.client.ExecuteWrite(ctx, clearPromotionCypher, map[string]any{"promotionId": promotionID}); err != nil {
		return fmt.Errorf("clear promotion %s: %w", promotionID, err)
	}
	return nil
}

func (r *Repository) timestamp() string {
	return r.now().UTC().Format(time.RFC3339)
}

const upsertProfileCypher = `
MERGE (p:Profile {profileId: $profileId})
SET p.name = CASE WHEN $name = "" THEN p.name ELSE $name END,
    p.type = CASE WHEN $type = "" THEN p.type ELSE $type END,
    p.updatedAt = $updatedAt
`

const upsertRankCypher = `
MERGE (holder:Profile {profileId: $holderId})
MERGE (r:Rank {rankId: $rankId})
SET r.belt = $belt,
    r.level = $level,
    r.achievedAt = $achievedAt,
    r.updatedAt = $updatedAt
MERGE (holder)-[:HOLDS]->(r)
FOREACH (_ IN CASE WHEN $awardedBy = "" THEN [] ELSE [1] END |
  MERGE (awarder:Profile {profileId: $awardedBy})
  MERGE (awarder)-[:AWARDED]->(r)
)
`

const upsertPromotionCypher = `
MERGE (student:Profile {profileId: $studentId})
MERGE (master:Profile {profileId: $masterId})
MERGE (p:Promotion {promotionId: $promotionId})
SET p.belt = $belt,
    p.proposedAt = $proposedAt,
    p.updatedAt = $updatedAt
MERGE (master)-[:PROPOSED]->(p)
MERGE (p)-[:FOR]->(student)
`

const clearPromotionCypher = `
MATCH (p:Promotion {promotionId: $promotionId})
DETACH DELETE p
`

const highestRankCypher = `
MATCH (p:Profile {profileId: $profileId})-[:HOLDS]->(r:Rank)
OPTIONAL MATCH (awarder:Profile)-[:AWARDED]->(r)
RETURN p.name AS profileName,
       r.belt AS belt,
       r.achievedAt AS achievedAt,
       awarder.profileId AS awardedBy
ORDER BY r.level DESC, r.achievedAt DESC
LIMIT 1
`

const studentsCypher = `
MATCH (:Profile {profileId: $profileId})-[:AWARDED]->(r:Rank)<-[:HOLDS]-(s:Profile)
RETURN s.profileId AS profileId,
       s.name AS profileName,
       r.belt AS belt,
       r.achievedAt AS achievedAt
ORDER BY r.achievedAt DESC
`

const pendingPromotionsCypher = `
MATCH (master:Profile)-[:PROPOSED]->(p:Promotion)-[:FOR]->(:Profile {profileId: $profileId})
RETURN p.promotionId AS promotionId,
       p.belt AS belt,
       p.proposedAt AS proposedAt,
       master.profileId AS masterId
ORDER BY p.proposedAt DESC
`
