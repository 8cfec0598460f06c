package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/vanshika/beltledger/internal/domain"
)

// Listing sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListOptions filters and pages the listing endpoints. Zero values are omitted.
type ListOptions struct {
	Limit        int
	Offset       int
	Profiles     []string
	Belts        []domain.Belt
	AchievedBy   []string
	AwardedBy    []string
	ProfileTypes []domain.ProfileType
	From         string
	To           string
	OrderBy      string
	Order        string
}

// Values renders the options as a query string. Multi-valued filters repeat
// their key once per value.
func (o ListOptions) Values() url.Values {
	v := url.Values{}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		v.Set("offset", strconv.Itoa(o.Offset))
	}
	addAll(v, "profile", o.Profiles)
	for _, b := range o.Belts {
		v.Add("belt", string(b))
	}
	addAll(v, "achieved_by", o.AchievedBy)
	addAll(v, "awarded_by", o.AwardedBy)
	for _, t := range o.ProfileTypes {
		v.Add("profile_type", string(t))
	}
	if o.From != "" {
		v.Set("from", o.From)
	}
	if o.To != "" {
		v.Set("to", o.To)
	}
	if o.OrderBy != "" {
		v.Set("order_by", o.OrderBy)
	}
	if o.Order != "" {
		v.Set("order", o.Order)
	}
	return v
}

func addAll(v url.Values, key string, values []string) {
	for _, s := range values {
		if s = strings.TrimSpace(s); s != "" {
			v.Add(key, s)
		}
	}
}

// Belts lists ranks, newest first unless another order is requested.
func (c *Client) Belts(ctx context.Context, opts ListOptions) ([]domain.Rank, error) {
	if opts.OrderBy == "" {
		opts.OrderBy = "date"
	}
	if opts.Order == "" {
		opts.Order = OrderDesc
	}
	var out []domain.Rank
	if err := c.getJSON(ctx, "belts", "/belts", opts.Values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BeltsCount counts ranks matching the filters.
func (c *Client) BeltsCount(ctx context.Context, opts ListOptions) (int, error) {
	return c.count(ctx, "belts-count", "/belts/count", opts.Values())
}

// BeltsFrequency reports how many practitioners currently hold each belt.
func (c *Client) BeltsFrequency(ctx context.Context) ([]domain.BeltFrequency, error) {
	var out []domain.BeltFrequency
	if err := c.getJSON(ctx, "belts-frequency", "/belts/frequency", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Promotions lists pending promotions.
func (c *Client) Promotions(ctx context.Context, opts ListOptions) ([]domain.Promotion, error) {
	var out []domain.Promotion
	if err := c.getJSON(ctx, "promotions", "/promotions", opts.Values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PromotionsCount counts pending promotions matching the filters.
func (c *Client) PromotionsCount(ctx context.Context, opts ListOptions) (int, error) {
	return c.count(ctx, "promotions-count", "/promotions/count", opts.Values())
}

// Profiles lists practitioner and organization profiles.
func (c *Client) Profiles(ctx context.Context, opts ListOptions) ([]domain.ProfileSummary, error) {
	var out []domain.ProfileSummary
	if err := c.getJSON(ctx, "profiles", "/profiles", opts.Values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProfilesCount counts profiles matching the filters.
func (c *Client) ProfilesCount(ctx context.Context, opts ListOptions) (int, error) {
	return c.count(ctx, "profiles-count", "/profiles/count", opts.Values())
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, dst any) error {
	req := c.request(ctx).
		ForceContentType("application/json").
		SetResult(dst)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	resp, err := req.Get(path)
	return c.check(endpoint, resp, err)
}

// count accepts either a bare number or {"count": n}.
func (c *Client) count(ctx context.Context, endpoint, path string, query url.Values) (int, error) {
	req := c.request(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	resp, err := req.Get(path)
	if err := c.check(endpoint, resp, err); err != nil {
		return 0, err
	}
	return parseCount(resp.Body())
}

func parseCount(body []byte) (int, error) {
	var n int
	if err := json.Unmarshal(body, &n); err == nil {
		return n, nil
	}
	var obj struct {
		Count *int `json:"count"`
	}
	if err := json.Unmarshal(body, &obj); err == nil && obj.Count != nil {
		return *obj.Count, nil
	}
	return 0, fmt.Errorf("ledger: unexpected count payload %q", strings.TrimSpace(string(body)))
}
