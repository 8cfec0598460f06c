package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/vanshika/beltledger/internal/address"
	"github.com/vanshika/beltledger/internal/cache"
	"github.com/vanshika/beltledger/internal/config"
	"github.com/vanshika/beltledger/internal/domain"
	"github.com/vanshika/beltledger/internal/interaction"
	"github.com/vanshika/beltledger/internal/ledger"
	"github.com/vanshika/beltledger/internal/logging"
	"github.com/vanshika/beltledger/internal/resolver"
	"github.com/vanshika/beltledger/internal/txflow"
	"github.com/vanshika/beltledger/internal/wallet"
	"github.com/vanshika/beltledger/internal/witness"
)

// env bundles what every networked command needs.
type env struct {
	cfg    config.Config
	logger *slog.Logger
}

func loadEnv(c *cli.Context) (env, error) {
	cfg, err := config.Load()
	if err != nil {
		return env{}, err
	}
	if u := c.String("ledger-url"); u != "" {
		cfg.Ledger.BaseURL = strings.TrimRight(u, "/")
	}
	if u := c.String("bridge-url"); u != "" {
		cfg.Wallet.BridgeURL = u
	}
	logCfg := cfg.Logging
	if c.Bool("verbose") {
		logCfg.Level = "debug"
	} else {
		logCfg.Level = "warn"
	}
	return env{cfg: cfg, logger: logging.NewWithWriter(os.Stderr, logCfg)}, nil
}

func (e env) ledger() (*ledger.Client, error) {
	return ledger.New(e.cfg.Ledger, e.logger, nil)
}

// connect opens a session with the named bridge wallet, or any wallet when name is empty.
func (e env) connect(ctx context.Context, name string) (*wallet.Session, error) {
	if e.cfg.Wallet.BridgeURL == "" {
		return nil, fmt.Errorf("%w: no wallet bridge configured", wallet.ErrNoWallet)
	}
	providers, err := wallet.DiscoverBridgeWallets(ctx, e.cfg.Wallet.BridgeURL, e.logger)
	if err != nil {
		return nil, err
	}
	gw := wallet.NewGateway(e.logger, e.cfg.Wallet.ExpectedNetworkID, wallet.WithConnectAttempts(e.cfg.Wallet.ConnectAttempts))
	for _, p := range providers {
		gw.Register(p)
	}
	if name != "" {
		return gw.Connect(ctx, name)
	}
	return gw.ConnectAny(ctx)
}

// resolver returns an owned-profile resolver and the cache backing it.
func (e env) resolver(client *ledger.Client) (*resolver.Resolver, cache.Store[string, resolver.OwnedProfile], error) {
	store, err := cache.New[string, resolver.OwnedProfile](cache.Options{
		Backend:    e.cfg.Cache.Backend,
		MaxEntries: e.cfg.Cache.MaxEntries,
		TTL:        e.cfg.Cache.TTL,
	})
	if err != nil {
		return nil, nil, err
	}
	return resolver.New(client, e.cfg.Wallet.IssuingAuthorityID, e.logger, resolver.WithCache(store)), store, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// userError renders wallet failures with their user-facing message.
func userError(err error) error {
	code := wallet.Code(err)
	if code == "" || code == domain.CodeUnknown {
		return err
	}
	msg := code.Message()
	if hints := code.Suggestions(); len(hints) > 0 {
		msg += " (" + strings.Join(hints, "; ") + ")"
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func addressCommand() *cli.Command {
	return &cli.Command{
		Name:      "address",
		Usage:     "convert addresses to 114 character hex",
		ArgsUsage: "ADDRESS...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("at least one address is required")
			}
			type row struct {
				Input string `json:"input"`
				address.Result
				Valid bool `json:"valid"`
			}
			rows := make([]row, 0, c.NArg())
			for _, in := range c.Args().Slice() {
				res := address.Convert(in)
				rows = append(rows, row{Input: in, Result: res, Valid: res.Valid()})
			}
			return printJSON(c.App.Writer, rows)
		},
	}
}

func witnessCommand() *cli.Command {
	return &cli.Command{
		Name:      "witness",
		Usage:     "extract the witness set from a wallet signing response",
		ArgsUsage: "[HEX] (reads stdin when omitted)",
		Action: func(c *cli.Context) error {
			signed := c.Args().First()
			if signed == "" {
				raw, err := io.ReadAll(c.App.Reader)
				if err != nil {
					return err
				}
				signed = string(raw)
			}
			wit, err := witness.Normalize(signed)
			if err != nil {
				return err
			}
			raw, err := hex.DecodeString(wit)
			if err != nil {
				return err
			}
			ws, _ := witness.TryDecodeWitnessSet(raw)
			return printJSON(c.App.Writer, map[string]any{
				"witness": wit,
				"summary": witness.Summarize(ws),
			})
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "find the profile owned by a wallet",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "unit", Usage: "asset unit held by the wallet (repeatable); omit to ask the wallet bridge"},
			&cli.StringFlag{Name: "wallet", Usage: "bridge wallet name"},
		},
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			client, err := e.ledger()
			if err != nil {
				return err
			}

			var assets []wallet.Asset
			for _, u := range c.StringSlice("unit") {
				assets = append(assets, wallet.Asset{Unit: u, Quantity: "1"})
			}
			if len(assets) == 0 {
				session, err := e.connect(c.Context, c.String("wallet"))
				if err != nil {
					return userError(err)
				}
				if err := session.EnsureNetwork(c.Context); err != nil {
					return userError(err)
				}
				if assets, err = session.Assets(c.Context); err != nil {
					return userError(err)
				}
			}

			r, _, err := e.resolver(client)
			if err != nil {
				return err
			}
			owned, err := r.ResolveOwnedProfile(c.Context, assets)
			if err != nil {
				return err
			}
			if owned == nil {
				return printJSON(c.App.Writer, map[string]any{
					"profile":    nil,
					"candidates": resolver.Candidates(assets, e.cfg.Wallet.IssuingAuthorityID),
				})
			}
			return printJSON(c.App.Writer, map[string]any{"profile": owned})
		},
	}
}

func listFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "limit", Value: 20},
		&cli.IntFlag{Name: "offset"},
		&cli.StringSliceFlag{Name: "profile"},
		&cli.StringSliceFlag{Name: "belt"},
		&cli.StringSliceFlag{Name: "achieved-by"},
		&cli.StringSliceFlag{Name: "awarded-by"},
		&cli.StringSliceFlag{Name: "profile-type"},
		&cli.StringFlag{Name: "from"},
		&cli.StringFlag{Name: "to"},
		&cli.StringFlag{Name: "order-by"},
		&cli.StringFlag{Name: "order"},
		&cli.BoolFlag{Name: "count", Usage: "print the number of matches instead of the records"},
	}
}

func listOptions(c *cli.Context) ledger.ListOptions {
	opts := ledger.ListOptions{
		Limit:      c.Int("limit"),
		Offset:     c.Int("offset"),
		Profiles:   c.StringSlice("profile"),
		AchievedBy: c.StringSlice("achieved-by"),
		AwardedBy:  c.StringSlice("awarded-by"),
		From:       c.String("from"),
		To:         c.String("to"),
		OrderBy:    c.String("order-by"),
		Order:      c.String("order"),
	}
	for _, b := range c.StringSlice("belt") {
		opts.Belts = append(opts.Belts, domain.Belt(b))
	}
	for _, t := range c.StringSlice("profile-type") {
		opts.ProfileTypes = append(opts.ProfileTypes, domain.ProfileType(t))
	}
	return opts
}

func listCommand() *cli.Command {
	run := func(list func(*ledger.Client, context.Context, ledger.ListOptions) (any, error), count func(*ledger.Client, context.Context, ledger.ListOptions) (int, error)) cli.ActionFunc {
		return func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			client, err := e.ledger()
			if err != nil {
				return err
			}
			opts := listOptions(c)
			if c.Bool("count") {
				n, err := count(client, c.Context, opts)
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, map[string]int{"count": n})
			}
			out, err := list(client, c.Context, opts)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, out)
		}
	}

	return &cli.Command{
		Name:  "list",
		Usage: "query the ledger listings",
		Subcommands: []*cli.Command{
			{
				Name:  "belts",
				Flags: listFlags(),
				Action: run(
					func(cl *ledger.Client, ctx context.Context, o ledger.ListOptions) (any, error) { return cl.Belts(ctx, o) },
					(*ledger.Client).BeltsCount,
				),
			},
			{
				Name:  "promotions",
				Flags: listFlags(),
				Action: run(
					func(cl *ledger.Client, ctx context.Context, o ledger.ListOptions) (any, error) { return cl.Promotions(ctx, o) },
					(*ledger.Client).PromotionsCount,
				),
			},
			{
				Name:  "profiles",
				Flags: listFlags(),
				Action: run(
					func(cl *ledger.Client, ctx context.Context, o ledger.ListOptions) (any, error) { return cl.Profiles(ctx, o) },
					(*ledger.Client).ProfilesCount,
				),
			},
			{
				Name:  "frequency",
				Usage: "practitioners per belt",
				Action: func(c *cli.Context) error {
					e, err := loadEnv(c)
					if err != nil {
						return err
					}
					client, err := e.ledger()
					if err != nil {
						return err
					}
					freq, err := client.BeltsFrequency(c.Context)
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, freq)
				},
			},
		},
	}
}

func actionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "kind", Required: true, Usage: "create | init | promote | accept | update-image | delete"},
		&cli.StringFlag{Name: "name"},
		&cli.StringFlag{Name: "description"},
		&cli.StringFlag{Name: "image-uri"},
		&cli.StringFlag{Name: "profile-type", Value: string(domain.ProfileTypePractitioner)},
		&cli.StringFlag{Name: "belt"},
		&cli.StringFlag{Name: "profile-id"},
		&cli.StringFlag{Name: "promoted-by"},
		&cli.StringFlag{Name: "date", Usage: "achievement date, 2006-01-02T15:04:05Z"},
		&cli.StringFlag{Name: "promotion-id"},
		&cli.StringFlag{Name: "recipient"},
	}
}

// actionInput mirrors the action flags so params can be built without a cli.Context.
type actionInput struct {
	Kind        string
	Name        string
	Description string
	ImageURI    string
	ProfileType string
	Belt        string
	ProfileID   string
	PromotedBy  string
	Date        string
	PromotionID string
}

func actionInputFrom(c *cli.Context) actionInput {
	return actionInput{
		Kind:        c.String("kind"),
		Name:        c.String("name"),
		Description: c.String("description"),
		ImageURI:    c.String("image-uri"),
		ProfileType: c.String("profile-type"),
		Belt:        c.String("belt"),
		ProfileID:   c.String("profile-id"),
		PromotedBy:  c.String("promoted-by"),
		Date:        c.String("date"),
		PromotionID: c.String("promotion-id"),
	}
}

func (in actionInput) params() (interaction.Params, error) {
	data := domain.ProfileData{Name: in.Name, Description: in.Description, ImageURI: in.ImageURI}
	switch strings.ToLower(in.Kind) {
	case "create":
		return interaction.CreateProfileWithRank{ProfileData: data, ProfileType: domain.ProfileType(in.ProfileType), Belt: domain.Belt(in.Belt)}, nil
	case "init":
		return interaction.InitProfile{ProfileData: data, ProfileType: domain.ProfileType(in.ProfileType)}, nil
	case "promote":
		return interaction.PromoteProfile{
			PromotedProfileID:   resolver.NormalizeProfileID(in.ProfileID),
			PromotedByProfileID: resolver.NormalizeProfileID(in.PromotedBy),
			AchievementDate:     in.Date,
			Belt:                domain.Belt(in.Belt),
		}, nil
	case "accept":
		return interaction.AcceptPromotion{PromotionID: in.PromotionID}, nil
	case "update-image":
		return interaction.UpdateProfileImage{ProfileID: resolver.NormalizeProfileID(in.ProfileID), ImageURI: in.ImageURI}, nil
	case "delete":
		return interaction.DeleteProfile{ProfileID: resolver.NormalizeProfileID(in.ProfileID)}, nil
	default:
		return nil, fmt.Errorf("unknown action kind %q", in.Kind)
	}
}

func buildOptions(c *cli.Context) []interaction.Option {
	if r := c.String("recipient"); r != "" {
		return []interaction.Option{interaction.WithRecipient(r)}
	}
	return nil
}

func interactionCommand() *cli.Command {
	return &cli.Command{
		Name:  "interaction",
		Usage: "print the build request for an action without contacting a wallet",
		Flags: append(actionFlags(),
			&cli.StringFlag{Name: "change", Required: true, Usage: "change address"},
			&cli.StringSliceFlag{Name: "used", Usage: "used address (repeatable)"},
		),
		Action: func(c *cli.Context) error {
			params, err := actionInputFrom(c).params()
			if err != nil {
				return err
			}
			logger := logging.NewWithWriter(os.Stderr, config.LoggingConfig{Level: "warn"})
			src := interaction.Prefill{Used: c.StringSlice("used"), Change: c.String("change")}
			in, err := interaction.NewBuilder(logger).Build(c.Context, params, src, buildOptions(c)...)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, in)
		},
	}
}

func submitCommand() *cli.Command {
	return &cli.Command{
		Name:  "submit",
		Usage: "build, sign with a bridge wallet and submit an action",
		Flags: append(actionFlags(),
			&cli.StringFlag{Name: "wallet", Usage: "bridge wallet name (defaults to the first that connects)"},
		),
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			params, err := actionInputFrom(c).params()
			if err != nil {
				return err
			}
			client, err := e.ledger()
			if err != nil {
				return err
			}
			session, err := e.connect(c.Context, c.String("wallet"))
			if err != nil {
				return userError(err)
			}

			owner, owned, err := e.resolver(client)
			if err != nil {
				return err
			}

			flow := txflow.NewController(session, interaction.NewBuilder(e.logger), client, e.logger, nil)
			flow.OnInvalidate(func(kind interaction.Kind, scopes []txflow.Scope) {
				e.logger.Info("ledger data changed", "kind", kind, "scopes", scopes)
			})
			flow.OnInvalidate(txflow.PurgeCaches(map[txflow.Scope][]txflow.Purger{
				txflow.ScopeProfiles: {owned},
			}))
			if _, err := flow.Build(c.Context, params, buildOptions(c)...); err != nil {
				return userError(err)
			}
			if profile := ownedProfile(c.Context, owner, session); profile != nil {
				e.logger.Info("signing as", "profile_id", profile.ProfileID, "type", profile.Type)
			}
			if _, err := flow.SignAndSubmit(c.Context); err != nil {
				return userError(err)
			}
			return printJSON(c.App.Writer, map[string]any{
				"transaction": flow.Snapshot(),
				"profile":     ownedProfile(c.Context, owner, session),
			})
		},
	}
}

// ownedProfile is best effort: lookup failures only mean no profile is shown.
func ownedProfile(ctx context.Context, r *resolver.Resolver, session *wallet.Session) *resolver.OwnedProfile {
	assets, err := session.Assets(ctx)
	if err != nil {
		return nil
	}
	owned, err := r.ResolveOwnedProfile(ctx, assets)
	if err != nil {
		return nil
	}
	return owned
}
