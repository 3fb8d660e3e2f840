// Command confq is a console harness for the conference data-access layer.
// It opens a SQLite database, migrates and seeds the schema, then runs a
// dynamic query against the conference table:
//
//	confq -where "Status == 2 && Fee < {0}" -order "StartsAt desc" 100
//
// Positional arguments bind to {0}, {1}, ... placeholders in the query text.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openconf/confq/internal/config"
	"github.com/openconf/confq/internal/models"
	"github.com/openconf/confq/internal/query"
	"github.com/openconf/confq/internal/repo"
)

func main() {
	var (
		configFile string
		where      string
		order      string
		sel        string
		limit      int
		page       int
		pageSize   int
		seed       bool
	)
	flag.StringVar(&configFile, "config", "", "path to YAML config file")
	flag.StringVar(&where, "where", "", "dynamic predicate, e.g. 'ConferenceId < 100'")
	flag.StringVar(&order, "order", "", "ordering list, e.g. 'Status, ConferenceId desc'")
	flag.StringVar(&sel, "select", "", "projection, e.g. 'new(Name, Fee as Price)'")
	flag.IntVar(&limit, "limit", 0, "take at most N rows")
	flag.IntVar(&page, "page", 0, "1-based page index")
	flag.IntVar(&pageSize, "size", 0, "page size")
	flag.BoolVar(&seed, "seed", true, "seed sample data")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: confq [flags] [value ...]\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Default()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	log := newLogger(cfg.Logging)

	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := db.AutoMigrate(&models.Conference{}, &models.Session{}, &models.Registration{}); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	ctx := context.Background()
	conferences := repo.New[models.Conference](db, log)

	if seed {
		if err := seedConferences(ctx, conferences); err != nil {
			log.Fatal().Err(err).Msg("seed")
		}
	}

	spec := repo.Spec{
		Query:       where,
		QueryValues: parseValues(flag.Args()),
		OrderText:   order,
		Limit:       limit,
		Page:        page,
		PageSize:    pageSize,
	}
	rows, err := conferences.FindAll(ctx, spec)
	if err != nil {
		log.Fatal().Err(err).Msg("query")
	}

	if sel == "" {
		for _, c := range rows {
			fmt.Printf("%-4d %-28s status=%d fee=%s starts=%s\n",
				c.ConferenceID, c.Name, c.Status, c.Fee, c.StartsAt.Format("2006-01-02"))
		}
		log.Info().Int("rows", len(rows)).Msg("done")
		return
	}

	proj, err := query.ParseExpr[models.Conference](sel)
	if err != nil {
		log.Fatal().Err(err).Msg("projection")
	}
	for _, c := range rows {
		out, err := proj.Eval(c)
		if err != nil {
			log.Fatal().Err(err).Msg("projection")
		}
		fmt.Println(out)
	}
	log.Info().Int("rows", len(rows)).Msg("done")
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

// parseValues maps command-line strings onto typed placeholder values:
// integers, decimals with a point, then plain strings.
func parseValues(args []string) []any {
	values := make([]any, len(args))
	for i, a := range args {
		if n, err := strconv.ParseInt(a, 10, 64); err == nil {
			values[i] = n
			continue
		}
		if d, err := decimal.NewFromString(a); err == nil {
			values[i] = d
			continue
		}
		values[i] = a
	}
	return values
}

func seedConferences(ctx context.Context, r *repo.Repository[models.Conference]) error {
	n, err := r.Count(ctx, nil)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	lyon := "Lyon"
	berlin := "Berlin"
	samples := []models.Conference{
		{Name: "GopherFest", City: &lyon, Status: models.StatusPublished,
			StartsAt: date(2026, 3, 12), EndsAt: date(2026, 3, 14),
			Capacity: 400, Fee: decimal.NewFromInt(199)},
		{Name: "DataDays", City: &berlin, Status: models.StatusPublished,
			StartsAt: date(2026, 5, 2), EndsAt: date(2026, 5, 3),
			Capacity: 250, Fee: decimal.NewFromInt(89)},
		{Name: "CloudSummit", Status: models.StatusDraft,
			StartsAt: date(2026, 9, 20), EndsAt: date(2026, 9, 22),
			Capacity: 1200, Fee: decimal.NewFromInt(450)},
		{Name: "RetroComputing", Status: models.StatusClosed,
			StartsAt: date(2025, 11, 1), EndsAt: date(2025, 11, 2),
			Capacity: 80, Fee: decimal.Zero},
	}
	for i := range samples {
		if err := r.Create(ctx, &samples[i]); err != nil {
			return err
		}
	}
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}
