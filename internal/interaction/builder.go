// Package interaction assembles typed ledger action requests paired with the
// caller's normalized addresses.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vanshika/beltledger/internal/address"
	"github.com/vanshika/beltledger/internal/domain"
)

var (
	// ErrInvalidAddress means the change address, or every used address,
	// failed to convert to the required hex form.
	ErrInvalidAddress = errors.New("address could not be processed")
	// ErrInvalidParams wraps validation failures of action parameters.
	ErrInvalidParams = errors.New("invalid interaction parameters")
)

// TimestampLayout is ISO 8601 without sub-second precision.
const TimestampLayout = "2006-01-02T15:04:05Z"

var profileIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{56}\.[0-9a-fA-F]*$`)

// AddressSource supplies the caller's raw addresses. A wallet session
// satisfies it, as does Prefill.
type AddressSource interface {
	UsedAddresses(ctx context.Context) ([]string, error)
	ChangeAddress(ctx context.Context) (string, error)
}

// Prefill is an AddressSource with addresses known up front, e.g. pasted by the user.
type Prefill struct {
	Used   []string
	Change string
}

func (p Prefill) UsedAddresses(context.Context) ([]string, error) { return p.Used, nil }
func (p Prefill) ChangeAddress(context.Context) (string, error)   { return p.Change, nil }

// Builder validates parameters and produces Interactions.
type Builder struct {
	logger   *slog.Logger
	validate *validator.Validate
	nowFn    func() time.Time
}

// NewBuilder constructs a Builder with its validator.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		logger:   logger.With("component", "interaction"),
		validate: NewValidator(),
		nowFn:    time.Now,
	}
}

// WithClock overrides the time source used for creation timestamps.
func (b *Builder) WithClock(fn func() time.Time) *Builder {
	if fn != nil {
		b.nowFn = fn
	}
	return b
}

// NewValidator returns a validator knowing the ledger specific tags:
// belt, profile_type, profile_id and timestamp.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("belt", func(fl validator.FieldLevel) bool {
		return domain.Belt(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("profile_type", func(fl validator.FieldLevel) bool {
		return domain.ProfileType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("profile_id", func(fl validator.FieldLevel) bool {
		return profileIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("timestamp", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.RFC3339, fl.Field().String())
		return err == nil
	})
	return v
}

// Option adjusts a single Build call.
type Option func(*buildOptions)

type buildOptions struct {
	recipient string
}

// WithRecipient sets the recipient address. Without it the change address is used.
func WithRecipient(addr string) Option {
	return func(o *buildOptions) { o.recipient = addr }
}

// Build validates params, gathers addresses from src and returns the Interaction.
func (b *Builder) Build(ctx context.Context, params Params, src AddressSource, opts ...Option) (Interaction, error) {
	if params == nil {
		return Interaction{}, fmt.Errorf("%w: no action given", ErrInvalidParams)
	}
	if err := b.validate.StructCtx(ctx, params); err != nil {
		return Interaction{}, fmt.Errorf("%w: %s: %w", ErrInvalidParams, params.Kind(), err)
	}

	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	addrs, err := b.Addresses(ctx, src)
	if err != nil {
		return Interaction{}, err
	}

	recipient := addrs.ChangeAddress
	if o.recipient != "" {
		res := address.Convert(o.recipient)
		if !res.Valid() {
			return Interaction{}, fmt.Errorf("%w: recipient resolves to %d hex characters", ErrInvalidAddress, res.Length)
		}
		recipient = res.Hex
	}

	out := Interaction{
		Action:        params.action(Timestamp(b.nowFn())),
		UserAddresses: addrs,
		Recipient:     recipient,
	}
	b.logger.Debug("interaction built",
		"kind", params.Kind(),
		"used_count", len(addrs.UsedAddresses),
	)
	return out, nil
}

// Addresses converts the source's addresses, keeps only those of the required
// length, and guarantees the change address is among the used addresses.
func (b *Builder) Addresses(ctx context.Context, src AddressSource) (UserAddresses, error) {
	if src == nil {
		return UserAddresses{}, fmt.Errorf("%w: no address source", ErrInvalidAddress)
	}
	rawUsed, err := src.UsedAddresses(ctx)
	if err != nil {
		return UserAddresses{}, fmt.Errorf("read used addresses: %w", err)
	}
	rawChange, err := src.ChangeAddress(ctx)
	if err != nil {
		return UserAddresses{}, fmt.Errorf("read change address: %w", err)
	}

	change := address.Convert(rawChange)
	if !change.Valid() {
		b.logger.Warn("change address rejected", "length", change.Length, "type", change.Type)
		return UserAddresses{}, fmt.Errorf("%w: change address resolves to %d hex characters, want %d",
			ErrInvalidAddress, change.Length, address.RequiredHexLength)
	}

	seen := make(map[string]struct{}, len(rawUsed)+1)
	used := make([]string, 0, len(rawUsed)+1)
	dropped := 0
	for _, raw := range rawUsed {
		res := address.Convert(raw)
		if !res.Valid() {
			dropped++
			continue
		}
		key := strings.ToLower(res.Hex)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		used = append(used, res.Hex)
	}
	if _, ok := seen[strings.ToLower(change.Hex)]; !ok {
		used = append(used, change.Hex)
	}
	if dropped > 0 {
		b.logger.Debug("used addresses dropped", "count", dropped)
	}

	return UserAddresses{UsedAddresses: used, ChangeAddress: change.Hex}, nil
}

// Timestamp formats t in UTC without fractional seconds.
func Timestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimestampLayout)
}
