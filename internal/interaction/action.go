package interaction

import (
	"github.com/vanshika/beltledger/internal/domain"
)

// Kind is the tag of a ledger action.
type Kind string

const (
	KindCreateProfileWithRank Kind = "CreateProfileWithRankAction"
	KindInitProfile           Kind = "InitProfileAction"
	KindPromoteProfile        Kind = "PromoteProfileAction"
	KindAcceptPromotion       Kind = "AcceptPromotionAction"
	KindUpdateProfileImage    Kind = "UpdateProfileImageAction"
	KindDeleteProfile         Kind = "DeleteProfileAction"
)

// Action is the tagged union sent to the backend: the tag plus the fields of
// that variant, flattened.
type Action struct {
	Tag                 Kind                `json:"tag"`
	ProfileData         *domain.ProfileData `json:"profile_data,omitempty"`
	ProfileType         domain.ProfileType  `json:"profile_type,omitempty"`
	CreationDate        string              `json:"creation_date,omitempty"`
	Belt                domain.Belt         `json:"belt,omitempty"`
	ProfileID           string              `json:"profile_id,omitempty"`
	ImageURI            string              `json:"image_uri,omitempty"`
	ProfileIdentifier   string              `json:"profileIdentifier,omitempty"`
	PromotedProfileID   string              `json:"promoted_profile_id,omitempty"`
	PromotedByProfileID string              `json:"promoted_by_profile_id,omitempty"`
	AchievementDate     string              `json:"achievement_date,omitempty"`
	PromotedBelt        domain.Belt         `json:"promoted_belt,omitempty"`
	PromotionID         string              `json:"promotion_id,omitempty"`
}

// UserAddresses are the caller's addresses in 114 character hex form.
type UserAddresses struct {
	UsedAddresses      []string `json:"usedAddresses"`
	ChangeAddress      string   `json:"changeAddress"`
	ReservedCollateral string   `json:"reservedCollateral,omitempty"`
}

// Interaction is the request body of the build-transaction endpoint.
type Interaction struct {
	Action        Action        `json:"action"`
	UserAddresses UserAddresses `json:"userAddresses"`
	Recipient     string        `json:"recipient,omitempty"`
}

// Params describes one action variant. Implementations are validated before
// being turned into an Action.
type Params interface {
	Kind() Kind
	action(now string) Action
}

// CreateProfileWithRank creates a profile holding an initial belt.
// Organizations are created with a white belt when none is given.
type CreateProfileWithRank struct {
	ProfileData domain.ProfileData `json:"profile_data"`
	ProfileType domain.ProfileType `json:"profile_type" validate:"required,profile_type"`
	Belt        domain.Belt        `json:"belt" validate:"omitempty,belt"`
}

func (CreateProfileWithRank) Kind() Kind { return KindCreateProfileWithRank }

func (p CreateProfileWithRank) action(now string) Action {
	belt := p.Belt
	if belt == "" {
		belt = domain.BeltWhite
	}
	data := p.ProfileData
	return Action{
		Tag:          KindCreateProfileWithRank,
		ProfileData:  &data,
		ProfileType:  p.ProfileType,
		CreationDate: now,
		Belt:         belt,
	}
}

// InitProfile creates a profile without a rank.
type InitProfile struct {
	ProfileData domain.ProfileData `json:"profile_data"`
	ProfileType domain.ProfileType `json:"profile_type" validate:"required,profile_type"`
}

func (InitProfile) Kind() Kind { return KindInitProfile }

func (p InitProfile) action(now string) Action {
	data := p.ProfileData
	return Action{
		Tag:          KindInitProfile,
		ProfileData:  &data,
		ProfileType:  p.ProfileType,
		CreationDate: now,
	}
}

// PromoteProfile awards a belt to another practitioner. The achievement date
// defaults to now.
type PromoteProfile struct {
	PromotedProfileID   string      `json:"promoted_profile_id" validate:"required,profile_id"`
	PromotedByProfileID string      `json:"promoted_by_profile_id" validate:"required,profile_id,nefield=PromotedProfileID"`
	AchievementDate     string      `json:"achievement_date" validate:"omitempty,timestamp"`
	Belt                domain.Belt `json:"belt" validate:"required,belt"`
}

func (PromoteProfile) Kind() Kind { return KindPromoteProfile }

func (p PromoteProfile) action(now string) Action {
	date := p.AchievementDate
	if date == "" {
		date = now
	}
	return Action{
		Tag:                 KindPromoteProfile,
		PromotedProfileID:   p.PromotedProfileID,
		PromotedByProfileID: p.PromotedByProfileID,
		AchievementDate:     date,
		PromotedBelt:        p.Belt,
	}
}

// AcceptPromotion accepts a pending promotion.
type AcceptPromotion struct {
	PromotionID string `json:"promotion_id" validate:"required"`
}

func (AcceptPromotion) Kind() Kind { return KindAcceptPromotion }

func (p AcceptPromotion) action(string) Action {
	return Action{Tag: KindAcceptPromotion, PromotionID: p.PromotionID}
}

// UpdateProfileImage points a profile at a new image.
type UpdateProfileImage struct {
	ProfileID string `json:"profile_id" validate:"required,profile_id"`
	ImageURI  string `json:"image_uri" validate:"required,uri"`
}

func (UpdateProfileImage) Kind() Kind { return KindUpdateProfileImage }

func (p UpdateProfileImage) action(string) Action {
	return Action{Tag: KindUpdateProfileImage, ProfileID: p.ProfileID, ImageURI: p.ImageURI}
}

// DeleteProfile burns a profile.
type DeleteProfile struct {
	ProfileID string `json:"profile_id" validate:"required,profile_id"`
}

func (DeleteProfile) Kind() Kind { return KindDeleteProfile }

func (p DeleteProfile) action(string) Action {
	return Action{Tag: KindDeleteProfile, ProfileIdentifier: p.ProfileID}
}
