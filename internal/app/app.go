// Package app builds the object graph shared by the HTTP server and the
// one shot run command.
package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/gethired/job-board/internal/application"
	"github.com/gethired/job-board/internal/batch"
	"github.com/gethired/job-board/internal/bookmark"
	"github.com/gethired/job-board/internal/config"
	"github.com/gethired/job-board/internal/database"
	"github.com/gethired/job-board/internal/digest"
	"github.com/gethired/job-board/internal/email"
	"github.com/gethired/job-board/internal/favorite"
	"github.com/gethired/job-board/internal/lock"
	"github.com/gethired/job-board/internal/meta"
	"github.com/gethired/job-board/internal/onboarding"
	"github.com/gethired/job-board/internal/payment"
	"github.com/gethired/job-board/internal/relevance"
	"github.com/gethired/job-board/internal/report"
	"github.com/gethired/job-board/internal/search"
	"github.com/gethired/job-board/internal/template"
	"github.com/gethired/job-board/internal/user"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	lockPrefix      = "gethired:lock:"
	requeryTTL      = 30 * time.Minute
	upstreamTimeout = 30 * time.Second
)

type App struct {
	Conn  *sql.DB
	Redis *redis.Client

	Users     *user.Repository
	Bookmarks *bookmark.Repository
	Favorites *favorite.Repository
	Payments  *payment.Repository

	Relevance  *relevance.Service
	Digest     *digest.Service
	Verifier   payment.Verifier
	Reconciler *payment.Reconciler
	Checkout   *payment.Checkout // nil without a Stripe key
	Onboarding *onboarding.Chain
}

// Run names a batch and the function that executes it once.
type Run struct {
	Name string
	Spec string
	Fn   func(ctx context.Context) (report.Outcome, error)
}

func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	conn, err := database.GetDbConn(cfg.DatabaseUser, cfg.DatabasePassword, cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseName, cfg.DatabaseSSLMode)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to postgres")
	}
	a := &App{Conn: conn}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.RedisURL != "" {
		a.Redis, err = lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		locker = lock.NewRedisLocker(a.Redis, lockPrefix)
	}

	emailClient, err := email.NewClient(cfg.EmailAPIKey, cfg.NoReplyEmail, cfg.AdminEmail, cfg.SiteName, cfg.EmailRatePerSecond)
	if err != nil {
		a.Close()
		return nil, errors.Wrap(err, "unable to create email client")
	}
	views := template.NewTemplate()
	site := template.Site{Name: cfg.SiteName, URL: cfg.SiteURL()}
	var notifier report.Notifier
	if cfg.TelegramAPIToken != "" {
		notifier = report.NewTelegram(cfg.TelegramAPIToken, cfg.TelegramChannelID)
	}
	reporter := report.NewReporter(emailClient, views, emailClient.NoReplySender(), emailClient.AdminAddress(), site, notifier, log)

	cache, err := bigcache.NewBigCache(bigcache.DefaultConfig(requeryTTL))
	if err != nil {
		log.Warn().Err(err).Msg("requery cache disabled")
		cache = nil
	}
	hc := &http.Client{Timeout: upstreamTimeout}
	searchClient, err := search.NewClient(cfg.SearchAPIURL, cfg.InternalSecret, hc, cache, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Users = user.NewRepository(conn)
	a.Bookmarks = bookmark.NewRepository(conn)
	a.Favorites = favorite.NewRepository(conn)
	a.Payments = payment.NewRepository(conn)
	rankings := relevance.NewRepository(conn)
	opts := batch.Options{ChunkSize: cfg.BatchChunkSize, Delay: cfg.BatchChunkDelay}

	worker := relevance.NewWorker(searchClient, rankings, a.Users, log)
	// recompute hits the search service only, no pause between chunks
	a.Relevance = relevance.NewService(worker, a.Users, reporter, locker, batch.Options{ChunkSize: cfg.BatchChunkSize}, log)
	a.Digest = digest.NewService(digest.Deps{
		Applications: application.NewRepository(conn),
		Favorites:    a.Favorites,
		Bookmarks:    a.Bookmarks,
		Search:       searchClient,
		Subscribers:  a.Users,
		Rankings:     rankings,
		RunLog:       meta.NewRepository(conn),
		Mailer:       emailClient,
		Views:        views,
		Reporter:     reporter,
		Locker:       locker,
	}, emailClient.NoReplySender(), site, opts, log)

	var retriever payment.Retriever
	if cfg.StripeKey != "" {
		retriever = payment.NewStripeRetriever(cfg.StripeKey)
		a.Checkout = payment.NewCheckout(cfg.StripeKey, cfg.SiteName, cfg.SiteURL(), cfg.CreditPacks)
	}
	switch cfg.PaymentProvider {
	case config.PaymentProviderStripe:
		a.Verifier = payment.NewStripeVerifier(cfg.PaymentWebhookSecret)
	default:
		a.Verifier, err = payment.NewStandardVerifier(cfg.PaymentWebhookSecret)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	a.Reconciler = payment.NewReconciler(a.Payments, a.Users, retriever, emailClient, views, emailClient.NoReplySender(), site, log)

	a.Onboarding = onboarding.NewChain(
		onboarding.NewResumeClient(cfg.ResumeParseURL, cfg.InternalSecret, hc),
		onboarding.NewEmbeddingClient(cfg.EmbeddingUpdateURL, cfg.InternalSecret, hc),
		a.Relevance,
		log,
	)
	return a, nil
}

// Runs lists every batch with its schedule, keyed the same way as its route.
func (a *App) Runs(cfg config.Config) []Run {
	return []Run{
		{Name: relevance.RunName, Spec: cfg.CronRelevance, Fn: a.Relevance.RecomputeAll},
		{Name: digest.RunApplicationsReminder, Spec: cfg.CronApplications, Fn: a.Digest.ApplicationsReminder},
		{Name: digest.RunFavoritesReminder, Spec: cfg.CronFavorites, Fn: a.Digest.FavoritesReminder},
		{Name: digest.RunJobAlert, Spec: cfg.CronJobAlert, Fn: a.Digest.JobAlert},
		{Name: digest.RunWeeklyDigest, Spec: cfg.CronDigest, Fn: a.Digest.WeeklyDigest},
	}
}

func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	database.CloseDbConn(a.Conn)
}
