package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/bolao/internal/adapters/auth"
	"github.com/okian/bolao/internal/adapters/fixtures"
	"github.com/okian/bolao/internal/adapters/repository"
	app "github.com/okian/bolao/internal/app"
	"github.com/okian/bolao/internal/config"
	"github.com/okian/bolao/internal/domain/ledger"
	"github.com/okian/bolao/internal/domain/model"
	"github.com/okian/bolao/internal/domain/types"
	"github.com/okian/bolao/pkg/logger"
)

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "bolaoctl",
		Usage:     "manage a bolão prediction game",
		Writer:    out,
		ErrWriter: out,
		Commands: []*cli.Command{
			seedCommand(),
			resultCommand(),
			leaderboardCommand(),
			tokenCommand(),
		},
	}
}

// errEphemeralStore is returned when a command would write to or read from a
// memory store that disappears when the command exits.
var errEphemeralStore = errors.New("the memory store does not outlive a command; set BOLAO_STORE_DRIVER to postgres or redis")

// loadPersistent loads the configuration and refuses the memory driver.
func loadPersistent(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if driver := cfg.Store().Driver; driver == "" || strings.EqualFold(driver, repository.DriverMemory) {
		return nil, errEphemeralStore
	}
	return cfg, nil
}

// withService runs fn against a started service over the configured store.
func withService(ctx context.Context, fn func(*config.Config, *app.Service) error) error {
	cfg, err := loadPersistent(ctx)
	if err != nil {
		return err
	}
	svc := app.New(
		app.WithLogger(logger.Named("bolaoctl")),
		app.WithStoreConfig(cfg.Store()),
		app.WithMaxGoals(cfg.MaxGoals),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()
	return fn(cfg, svc)
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load users, matches and predictions from a season file into the configured postgres or redis store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "season YAML file"},
			&cli.BoolFlag{Name: "reset", Usage: "remove every user, match and prediction first"},
		},
		Action: func(c *cli.Context) error {
			season, err := fixtures.Load(c.String("file"))
			if err != nil {
				return err
			}
			cfg, err := loadPersistent(c.Context)
			if err != nil {
				return err
			}
			store, err := repository.Open(c.Context, cfg.Store())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if c.Bool("reset") {
				if err := store.Truncate(c.Context); err != nil {
					return err
				}
			}

			if err := fixtures.Apply(c.Context, season, store, ledger.WithMaxGoals(cfg.MaxGoals)); err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.App.Writer, "seeded %d users, %d matches, %d predictions into %s\n",
				len(season.Users), len(season.Matches), len(season.Predictions), store.Driver())
			return err
		},
	}
}

func resultCommand() *cli.Command {
	return &cli.Command{
		Name:  "result",
		Usage: "record the official score of a match in the configured postgres or redis store",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "match", Aliases: []string{"m"}, Required: true},
			&cli.IntFlag{Name: "home", Required: true},
			&cli.IntFlag{Name: "away", Required: true},
		},
		Action: func(c *cli.Context) error {
			return withService(c.Context, func(_ *config.Config, svc *app.Service) error {
				id := model.MatchID(c.Int64("match"))
				if err := svc.RecordResult(c.Context, id, c.Int("home"), c.Int("away")); err != nil {
					return err
				}
				_, err := fmt.Fprintf(c.App.Writer, "match %d finalized %d-%d\n", id, c.Int("home"), c.Int("away"))
				return err
			})
		},
	}
}

func leaderboardCommand() *cli.Command {
	return &cli.Command{
		Name:    "leaderboard",
		Aliases: []string{"ranking"},
		Usage:   "print the ranking from the configured postgres or redis store, or offline from a season file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "compute from this season file in memory"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "show only the first N entries"},
			&cli.IntFlag{Name: "round", Aliases: []string{"r"}, Usage: "rank on this round's matches only"},
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"},
		},
		Action: func(c *cli.Context) error {
			var (
				entries []types.Entry
				err     error
			)
			if path := c.String("file"); path != "" {
				entries, err = offlineLeaderboard(c.Context, path, c.Int("round"), c.Int("limit"))
			} else {
				err = withService(c.Context, func(_ *config.Config, svc *app.Service) error {
					var lerr error
					entries, lerr = leaderboardOf(c.Context, svc, c.Int("round"), c.Int("limit"))
					return lerr
				})
			}
			if err != nil {
				return err
			}
			if c.Bool("json") {
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			return printEntries(c.App.Writer, entries)
		},
	}
}

// leaderboardOf returns the overall ranking, or one round's when round is set.
func leaderboardOf(ctx context.Context, svc *app.Service, round, limit int) ([]types.Entry, error) {
	if round != 0 {
		return svc.RoundLeaderboard(ctx, round, limit)
	}
	return svc.Leaderboard(ctx, limit)
}

// offlineLeaderboard ranks a season file without touching any configured store.
func offlineLeaderboard(ctx context.Context, path string, round, limit int) ([]types.Entry, error) {
	season, err := fixtures.Load(path)
	if err != nil {
		return nil, err
	}
	store := repository.NewMemoryStore()
	if err := fixtures.Apply(ctx, season, store); err != nil {
		return nil, err
	}
	svc := app.New(app.WithStore(store), app.WithLogger(logger.Named("bolaoctl")))
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	defer svc.Stop()
	return leaderboardOf(ctx, svc, round, limit)
}

func printEntries(w io.Writer, entries []types.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tUSER\tNAME\tPOINTS\tEXACT\tROUNDS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%d\t%d\n", e.Position, e.UserID, e.Name, e.Points, e.Exact, e.RoundsWon)
	}
	return tw.Flush()
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "mint a bearer token for a user (development only)",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "user", Aliases: []string{"u"}, Required: true},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.Context)
			if err != nil {
				return err
			}
			id := model.UserID(c.Int64("user"))
			if !id.Valid() {
				return fmt.Errorf("user %d: %w", id, model.ErrInvalidID)
			}
			tok, err := auth.Sign(cfg.JWTSecret, id, c.Duration("ttl"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, tok)
			return err
		},
	}
}
