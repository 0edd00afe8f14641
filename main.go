package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gethired/job-board/internal/app"
	"github.com/gethired/job-board/internal/config"
	"github.com/gethired/job-board/internal/cron"
	"github.com/gethired/job-board/internal/handler"
	"github.com/gethired/job-board/internal/middleware"
	"github.com/gethired/job-board/internal/server"
	"github.com/gethired/job-board/internal/task"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
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

	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	tasks := task.NewRunner(logger)

	svr := server.NewServer(
		cfg,
		a.Conn,
		mux.NewRouter(),
		sessionStore,
		logger,
	)

	svr.RegisterRoute("/healthz", handler.HealthHandler(svr), []string{"GET"})

	// internal batch runs, also triggered by the in process scheduler
	svr.RegisterRoute(
		"/relevant-jobs/{userId}",
		middleware.InternalSecretMiddleware(cfg.InternalSecret, handler.RelevantJobsForUserHandler(svr, a.Users, a.Relevance, tasks)),
		[]string{"GET"},
	)
	runs := a.Runs(cfg)
	for _, run := range runs {
		svr.RegisterRoute("/"+run.Name, middleware.InternalSecretMiddleware(cfg.InternalSecret, handler.BatchRunHandler(svr, run.Name, run.Fn)), []string{"GET"})
	}

	// payments
	svr.RegisterRoute("/payments/webhook", handler.PaymentWebhookHandler(svr, a.Verifier, a.Reconciler), []string{"POST"})
	if a.Checkout != nil {
		svr.RegisterRoute(
			"/payments/checkout",
			middleware.UserAuthenticatedMiddleware(sessionStore, cfg.JwtSigningKey, handler.CheckoutHandler(svr, a.Checkout, a.Payments)),
			[]string{"POST"},
		)
	}

	// signed in user actions
	svr.RegisterRoute(
		"/onboarding/complete",
		middleware.UserAuthenticatedMiddleware(sessionStore, cfg.JwtSigningKey, handler.OnboardingCompleteHandler(svr, a.Users, a.Onboarding, tasks)),
		[]string{"POST"},
	)
	svr.RegisterRoute(
		"/bookmarks",
		middleware.UserAuthenticatedMiddleware(sessionStore, cfg.JwtSigningKey, handler.SaveBookmarkHandler(svr, a.Bookmarks)),
		[]string{"POST"},
	)
	svr.RegisterRoute(
		"/favorites",
		middleware.UserAuthenticatedMiddleware(sessionStore, cfg.JwtSigningKey, handler.SaveFavoriteHandler(svr, a.Favorites)),
		[]string{"POST"},
	)

	var scheduler *cron.Scheduler
	if cfg.SchedulerEnabled {
		scheduler = cron.New(ctx, logger)
		for _, run := range runs {
			if err := scheduler.Add(cron.Job{Name: run.Name, Spec: run.Spec, Run: run.Fn}); err != nil {
				logger.Fatal().Err(err).Msg("unable to schedule run")
			}
		}
		scheduler.Start()
	}

	errc := make(chan error, 1)
	go func() {
		errc <- svr.Run()
	}()
	select {
	case err := <-errc:
		if err != nil {
			logger.Error().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svr.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("unable to shut down http server")
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("background tasks did not finish")
	}
}
