package domain

import "time"

// ProfileType distinguishes the two kinds of on-chain profile.
type ProfileType string

const (
	ProfileTypePractitioner ProfileType = "Practitioner"
	ProfileTypeOrganization ProfileType = "Organization"
)

// Valid reports whether the profile type is known.
func (p ProfileType) Valid() bool {
	return p == ProfileTypePractitioner || p == ProfileTypeOrganization
}

// ProfileData is the user-editable part of a profile.
type ProfileData struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=1024"`
	ImageURI    string `json:"image_uri" validate:"omitempty,uri"`
}

// Rank records a belt held by a practitioner.
type Rank struct {
	ID                  string `json:"id"`
	Belt                Belt   `json:"belt"`
	AchievedByProfileID string `json:"achieved_by_profile_id"`
	AwardedByProfileID  string `json:"awarded_by_profile_id"`
	AchievementDate     string `json:"achievement_date"`
}

// Promotion is a pending rank awaiting acceptance by the promoted practitioner.
type Promotion Rank

// PractitionerProfile is the backend view of a practitioner.
type PractitionerProfile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ImageURI      string `json:"image_uri"`
	CurrentRank   Rank   `json:"current_rank"`
	PreviousRanks []Rank `json:"previous_ranks"`
}

// OrganizationProfile is the backend view of an organization.
type OrganizationProfile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURI    string `json:"image_uri"`
}

// ProfileSummary is one row of the profile listing.
type ProfileSummary struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	ImageURI    string      `json:"image_uri"`
	Type        ProfileType `json:"type"`
}

// BeltFrequency counts practitioners currently holding a belt.
type BeltFrequency struct {
	Belt  Belt `json:"belt"`
	Count int  `json:"count"`
}

// ProfileMetadata holds off-chain contact details kept alongside a profile.
type ProfileMetadata struct {
	ProfileID string     `json:"profile_id" validate:"required"`
	Location  string     `json:"location,omitempty" validate:"max=256"`
	Phone     string     `json:"phone,omitempty" validate:"max=64"`
	Email     string     `json:"email,omitempty" validate:"omitempty,email"`
	Website   string     `json:"website,omitempty" validate:"omitempty,url"`
	ImageURL  string     `json:"image_url,omitempty" validate:"omitempty,url"`
	BirthDate string     `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Gender    string     `json:"gender,omitempty" validate:"max=32"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// LineageStep is one hop in a chain of promotions, from a practitioner to the
// profile that awarded their belt.
type LineageStep struct {
	ProfileID   string `json:"profile_id"`
	ProfileName string `json:"profile_name,omitempty"`
	Belt        Belt   `json:"belt"`
	AwardedBy   string `json:"awarded_by"`
	AchievedAt  string `json:"achieved_at,omitempty"`
}
