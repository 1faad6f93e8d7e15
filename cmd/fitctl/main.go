package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"
)

var CLI struct {
	Env      string `help:"Environment of the config section." default:"development" enum:"dev,development,prod,production"`
	Config   string `help:"TOML config file path." type:"path" default:"./config.toml"`
	Timezone string `help:"Time zone of the day keys." default:"Europe/Madrid"`
	LogLevel string `help:"Log level." default:"info"`

	Migrate      MigrateCmd      `cmd:"" help:"Apply the database migrations."`
	Range        RangeCmd        `cmd:"" help:"Resolve a named date range."`
	Classify     ClassifyCmd     `cmd:"" help:"Classify the trend of a measurement series."`
	HashPassword HashPasswordCmd `cmd:"" name:"hash-password" help:"Print the bcrypt hash of a password."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("fitctl"),
		kong.Description("fittrack admin tool"),
		kong.UsageOnError(),
	)

	level, err := log.ParseLevel(CLI.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	appCtx := &Context{
		Ctx:        ctx,
		Out:        os.Stdout,
		Env:        CLI.Env,
		ConfigPath: CLI.Config,
		Timezone:   CLI.Timezone,
	}

	if err := kctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
