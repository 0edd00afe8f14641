// Command run executes a single batch run and exits, for platforms that
// schedule containers instead of calling the HTTP routes.
//
//	run digest
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gethired/job-board/internal/app"
	"github.com/gethired/job-board/internal/config"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to load config")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to initialise app")
	}
	defer a.Close()

	runs := a.Runs(cfg)
	names := make([]string, 0, len(runs))
	for _, r := range runs {
		names = append(names, r.Name)
	}
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: run <%s>\n", strings.Join(names, "|"))
		os.Exit(2)
	}
	for _, r := range runs {
		if r.Name != os.Args[1] {
			continue
		}
		out, err := r.Fn(ctx)
		if err != nil {
			logger.Error().Err(err).Str("run", r.Name).Msg("run failed")
			a.Close()
			os.Exit(1)
		}
		logger.Info().Str("run_id", out.RunID).Msg(out.Message())
		return
	}
	fmt.Fprintf(os.Stderr, "unknown run %q, expected one of %s\n", os.Args[1], strings.Join(names, ", "))
	os.Exit(2)
}
