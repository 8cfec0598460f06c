package ledger

import (
	"context"

	"github.com/vanshika/beltledger/internal/domain"
)

// GetPractitioner fetches a practitioner profile by its dotted id.
func (c *Client) GetPractitioner(ctx context.Context, id string) (domain.PractitionerProfile, error) {
	var out domain.PractitionerProfile
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		Get("/practitioner/{id}")
	if err := c.check("practitioner", resp, err); err != nil {
		return domain.PractitionerProfile{}, err
	}
	return out, nil
}

// GetOrganization fetches an organization profile by its dotted id.
func (c *Client) GetOrganization(ctx context.Context, id string) (domain.OrganizationProfile, error) {
	var out domain.OrganizationProfile
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		Get("/organization/{id}")
	if err := c.check("organization", resp, err); err != nil {
		return domain.OrganizationProfile{}, err
	}
	return out, nil
}
