package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/fittrack/internal/config"
	"github.com/2beens/fittrack/internal/datekey"
	"github.com/2beens/fittrack/internal/db"
	"github.com/2beens/fittrack/internal/progress"
	"github.com/2beens/fittrack/pkg"
)

// Context is handed to every command
type Context struct {
	Ctx        context.Context
	Out        io.Writer
	Env        string
	ConfigPath string
	Timezone   string
	// now is replaced in tests
	now func() time.Time
}

func (c *Context) location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Context) clock() func() time.Time {
	if c.now != nil {
		return c.now
	}
	return time.Now
}

func (c *Context) printJSON(v any) error {
	enc := json.NewEncoder(c.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type MigrateCmd struct {
	Status bool `help:"Only print the current schema version."`
}

func (cmd *MigrateCmd) Run(c *Context) error {
	cfg, err := config.Load(c.Env, c.ConfigPath)
	if err != nil {
		return err
	}

	connString := db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("FITTRACK_POSTGRES_PASS"),
	}.ConnString()

	if !cmd.Status {
		if err := db.Migrate(c.Ctx, connString); err != nil {
			return err
		}
	}

	version, err := db.Version(c.Ctx, connString)
	if err != nil {
		return err
	}
	log.Debugf("schema of %s is at version %d", cfg.PostgresDBName, version)
	_, err = fmt.Fprintf(c.Out, "schema version: %d\n", version)
	return err
}

type RangeCmd struct {
	Name string `arg:"" help:"Range name: today, 7d, week, month or year."`
	At   string `help:"Resolve as if today were this day (YYYYMMDD)."`
	Full bool   `help:"Resolve month as the full calendar month instead of month to date."`
}

func (cmd *RangeCmd) Run(c *Context) error {
	loc, err := c.location()
	if err != nil {
		return err
	}

	resolver := progress.NewResolver(c.clock(), loc)
	if cmd.At != "" {
		at, err := datekey.ParseDay(cmd.At, loc)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		resolver = resolver.At(at)
	}

	month := progress.MonthToDate
	if cmd.Full {
		month = progress.FullMonth
	}
	rng, err := resolver.Resolve(cmd.Name, month)
	if err != nil {
		return err
	}
	return c.printJSON(rng)
}

type ClassifyCmd struct {
	Metric string    `arg:"" help:"Metric: peso, cintura, cadera, pecho or brazo."`
	Values []float64 `arg:"" help:"Series values, oldest first."`
	Goal   float64   `help:"Weight goal in kg, only used with peso."`
}

type classifyOutput struct {
	Trend   progress.Trend          `json:"trend"`
	Summary *progress.WeightSummary `json:"summary,omitempty"`
}

func (cmd *ClassifyCmd) Run(c *Context) error {
	metric, err := progress.ParseMetric(cmd.Metric)
	if err != nil {
		return err
	}

	out := classifyOutput{Trend: progress.Classify(metric, cmd.Values)}
	if metric == progress.MetricWeight {
		var goal *float64
		if cmd.Goal > 0 {
			goal = &cmd.Goal
		}
		summary := progress.SummarizeWeight(cmd.Values, goal)
		out.Summary = &summary
	}
	return c.printJSON(out)
}

type HashPasswordCmd struct {
	Password string `arg:"" help:"Plain text password."`
}

func (cmd *HashPasswordCmd) Run(c *Context) error {
	hash, err := pkg.HashPassword(cmd.Password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.Out, hash)
	return err
}
