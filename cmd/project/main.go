package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fortuna/ceres/internal/availability"
	"github.com/fortuna/ceres/internal/bootstrap"
	"github.com/fortuna/ceres/internal/config"
	"github.com/fortuna/ceres/internal/engine"
	"github.com/fortuna/ceres/internal/export"
	"github.com/fortuna/ceres/internal/identity"
	"github.com/fortuna/ceres/internal/logging"
	"github.com/fortuna/ceres/internal/reconciliation"
	"github.com/fortuna/ceres/internal/store"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const topN = 20

const usage = `usage: project [-config file] <command> [flags]

commands:
  weekly    -week N [-season Y] [-scoring ppr] [-positions QB,RB] [-o out.csv|out.xlsx]
  seasonal  [-season Y] [-scoring ppr] [-positions QB,RB] [-o out.csv|out.xlsx]
  player    -player-id ID [-type weekly|seasonal|both] [-week N] [-season Y] [-scoring ppr]
  check     fit the models as a smoke test
  mapping   -season Y [-o data/player_id_mapping.csv] [-name-only] [-dry-run]
`

func main() {
	_ = godotenv.Load()

	global := flag.NewFlagSet("project", flag.ExitOnError)
	configPath := global.String("config", "", "Optional YAML config file")
	logLevel := global.String("log-level", "", "Log level (overrides LOG_LEVEL)")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	global.Parse(os.Args[1:])

	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger, logCloser, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		logrus.Fatalf("set up logging: %v", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &cli{cfg: cfg, logger: logger, out: os.Stdout}
	if err := cli.run(ctx, global.Arg(0), global.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

type cli struct {
	cfg    config.Config
	logger *logrus.Logger
	out    io.Writer
}

func (c *cli) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "weekly":
		return c.weekly(ctx, args)
	case "seasonal":
		return c.seasonal(ctx, args)
	case "player":
		return c.player(ctx, args)
	case "check":
		return c.check(ctx, args)
	case "mapping":
		return c.mapping(ctx, args)
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func (c *cli) engine(ctx context.Context, scoringName string) (*engine.Engine, func(), error) {
	db, err := store.NewDatabase(c.cfg.DatabaseDSN, c.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	wired, err := bootstrap.NewEngine(ctx, c.cfg, bootstrap.NewRepositories(db), scoringName, c.logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return wired.Engine, func() { db.Close() }, nil
}

func (c *cli) weekly(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("weekly", flag.ContinueOnError)
	week := fs.Int("week", 0, "Target week number (required)")
	season := fs.Int("season", 0, "Target season (defaults to current)")
	scoringName := fs.String("scoring", "", "Scoring preset: standard, ppr, half_ppr")
	positions := fs.String("positions", "", "Comma-separated positions (default all)")
	output := fs.String("o", "", "Write the full table to .csv or .xlsx")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *week <= 0 {
		return engine.ErrWeekRequired
	}

	eng, closeFn, err := c.engine(ctx, *scoringName)
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Fprintf(c.out, "Generating weekly projections for week %d...\n", *week)
	table, err := eng.WeeklyProjections(ctx, engine.WeeklyRequest{
		Week:   *week,
		Season: *season,
		Filter: engine.Filter{Positions: splitList(*positions)},
	})
	if err != nil {
		return err
	}

	printTable(c.out, table)
	return c.save(table, *output)
}

func (c *cli) seasonal(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seasonal", flag.ContinueOnError)
	season := fs.Int("season", 0, "Target season (defaults to current)")
	scoringName := fs.String("scoring", "", "Scoring preset: standard, ppr, half_ppr")
	positions := fs.String("positions", "", "Comma-separated positions (default all)")
	output := fs.String("o", "", "Write the full table to .csv or .xlsx")
	if err := fs.Parse(args); err != nil {
		return err
	}

	eng, closeFn, err := c.engine(ctx, *scoringName)
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Fprintln(c.out, "Generating seasonal projections...")
	table, err := eng.SeasonalProjections(ctx, engine.SeasonalRequest{
		Season: *season,
		Filter: engine.Filter{Positions: splitList(*positions)},
	})
	if err != nil {
		return err
	}

	printTable(c.out, table)
	return c.save(table, *output)
}

func (c *cli) player(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("player", flag.ContinueOnError)
	playerID := fs.String("player-id", "", "Stats player id (required)")
	kind := fs.String("type", "both", "Projection type: weekly, seasonal, both")
	week := fs.Int("week", 0, "Week for the weekly projection")
	season := fs.Int("season", 0, "Target season")
	scoringName := fs.String("scoring", "", "Scoring preset: standard, ppr, half_ppr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *playerID == "" {
		return errors.New("-player-id is required")
	}

	var kinds []engine.Kind
	switch *kind {
	case "weekly":
		kinds = []engine.Kind{engine.KindWeekly}
	case "seasonal":
		kinds = []engine.Kind{engine.KindSeasonal}
	case "both":
		kinds = []engine.Kind{engine.KindWeekly, engine.KindSeasonal}
	default:
		return fmt.Errorf("invalid -type %q", *kind)
	}
	if kinds[0] == engine.KindWeekly && *week <= 0 {
		return engine.ErrWeekRequired
	}

	eng, closeFn, err := c.engine(ctx, *scoringName)
	if err != nil {
		return err
	}
	defer closeFn()

	for _, k := range kinds {
		row, err := eng.PlayerProjection(ctx, engine.PlayerRequest{
			PlayerID: *playerID,
			Kind:     k,
			Week:     *week,
			Season:   *season,
		})
		if err != nil {
			return fmt.Errorf("generating projection: %w", err)
		}
		printPlayer(c.out, k, row)
	}
	return nil
}

func (c *cli) check(ctx context.Context, _ []string) error {
	eng, closeFn, err := c.engine(ctx, "")
	if err != nil {
		return err
	}
	defer closeFn()
	fmt.Fprintln(c.out, "✓ Engine initialized successfully")

	if err := eng.Fit(ctx, nil); err != nil {
		return fmt.Errorf("system check failed: %w", err)
	}
	status := eng.Status()
	fmt.Fprintf(c.out, "✓ Models trained on seasons %v (%d players)\n", status.Seasons, status.Players)
	for _, pos := range engine.SortedPositions() {
		if b, ok := status.Baselines[pos]; ok {
			fmt.Fprintf(c.out, "  %-2s mean %5.2f  std %5.2f  games %d\n", pos, b.Mean, b.Std, b.Games)
		}
	}
	fmt.Fprintln(c.out, "✓ System check completed successfully!")
	return nil
}

func (c *cli) mapping(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mapping", flag.ContinueOnError)
	season := fs.Int("season", 0, "Roster season to reconcile (required)")
	output := fs.String("o", "", "CSV output path (defaults to the configured mapping file)")
	nameOnly := fs.Bool("name-only", false, "Ignore Sleeper ids carried on roster rows")
	dryRun := fs.Bool("dry-run", false, "Reconcile without writing the CSV or the database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *season <= 0 {
		return errors.New("-season is required")
	}
	path := *output
	if path == "" {
		path = c.cfg.MappingFile
	}

	db, err := store.NewDatabase(c.cfg.DatabaseDSN, c.logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	repos := bootstrap.NewRepositories(db)

	roster, err := repos.Rosters.LoadRosters(ctx, *season)
	if err != nil {
		return fmt.Errorf("load rosters: %w", err)
	}
	if len(roster) == 0 {
		return fmt.Errorf("no roster rows for season %d, run backfill first", *season)
	}

	records, origin := availability.NewSource(bootstrap.AvailabilityConfig(c.cfg), c.logger).Fetch(ctx)
	if len(records) == 0 {
		return errors.New("availability data unavailable")
	}
	fmt.Fprintf(c.out, "Reconciling %d roster players against %d %s availability records...\n", len(roster), len(records), origin)

	strategy := reconciliation.PreferRoster
	if *nameOnly {
		strategy = reconciliation.NameOnly
	}
	rows, metrics := reconciliation.NewEngine(strategy, c.logger).Reconcile(roster, records)
	printMetrics(c.out, metrics)

	if *dryRun {
		fmt.Fprintln(c.out, "Dry run, nothing written.")
		return nil
	}
	return c.saveMappings(ctx, repos, rows, path)
}

func (c *cli) saveMappings(ctx context.Context, repos bootstrap.Repositories, rows []store.PlayerIDMapping, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := identity.WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	n, err := repos.Mappings.Upsert(ctx, rows)
	if err != nil {
		return fmt.Errorf("store mappings: %w", err)
	}
	fmt.Fprintf(c.out, "\nMapping saved to %s (%d rows stored)\n", path, n)
	return nil
}

func printMetrics(w io.Writer, m reconciliation.Metrics) {
	fmt.Fprintf(w, "  players:      %d\n", m.Total)
	fmt.Fprintf(w, "  from roster:  %d\n", m.FromRoster)
	fmt.Fprintf(w, "  name matched: %d\n", m.NameMatched)
	fmt.Fprintf(w, "  ambiguous:    %d\n", m.Ambiguous)
	fmt.Fprintf(w, "  unmatched:    %d\n", m.Unmatched)
	fmt.Fprintf(w, "  conflicts:    %d\n", m.Conflicts)
}

func (c *cli) save(table engine.Table, path string) error {
	if path != "" {
		if err := export.WriteFile(path, table); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "\nProjections saved to %s\n", path)
	}
	fmt.Fprintf(c.out, "\nGenerated %d total projections.\n", table.Len())
	return nil
}

func printTable(w io.Writer, table engine.Table) {
	if table.Len() == 0 {
		fmt.Fprintln(w, "No projections generated.")
		return
	}

	if table.Kind == engine.KindWeekly {
		fmt.Fprintf(w, "\nTop %d Weekly Projections (Week %d):\n", topN, table.Week)
		fmt.Fprintln(w, strings.Repeat("=", 60))
	} else {
		fmt.Fprintf(w, "\nTop %d Seasonal Projections (%d):\n", topN, table.Season)
		fmt.Fprintln(w, strings.Repeat("=", 70))
	}

	for _, r := range table.Top(topN) {
		line := fmt.Sprintf("%-20s %-3s %-4s %6.1f pts (%5.1f-%5.1f)",
			r.PlayerName, r.Position, r.Team, r.Points, r.Lower, r.Upper)
		if table.Kind == engine.KindSeasonal {
			line += fmt.Sprintf(" [%4.1f games]", r.ExpectedGames)
		}
		if r.ZeroedBy != "" {
			line += " " + r.ZeroedBy
		}
		fmt.Fprintln(w, line)
	}
}

func printPlayer(w io.Writer, kind engine.Kind, r engine.Row) {
	if kind == engine.KindWeekly {
		fmt.Fprintf(w, "\nWeekly Projection (Week %d):\n", r.Week)
	} else {
		fmt.Fprintln(w, "\nSeasonal Projection:")
	}
	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintf(w, "Player: %s (%s, %s)\n", r.PlayerName, r.Position, r.Team)
	fmt.Fprintf(w, "Projected Points: %v\n", r.Points)
	fmt.Fprintf(w, "Confidence Interval: %.1f - %.1f\n", r.Lower, r.Upper)
	if kind == engine.KindSeasonal {
		fmt.Fprintf(w, "Expected Games: %.1f\n", r.ExpectedGames)
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
