package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	PaymentProviderStandard = "standard"
	PaymentProviderStripe   = "stripe"
)

type Config struct {
	Port                 string
	DatabaseUser         string
	DatabasePassword     string
	DatabaseHost         string
	DatabasePort         string
	DatabaseName         string
	DatabaseSSLMode      string
	Env                  string // either prod or dev, will disable https and few other bits
	InternalSecret       string // shared secret expected in X-Internal-Secret on cron endpoints
	AdminEmail           string // receives batch run reports
	NoReplyEmail         string // used for transactional emails
	EmailAPIKey          string
	EmailRatePerSecond   int
	SiteName             string
	SiteHost             string
	URLProtocol          string
	SearchAPIURL         string
	ResumeParseURL       string
	EmbeddingUpdateURL   string
	SessionKey           []byte
	JwtSigningKey        []byte
	PaymentProvider      string // standard or stripe
	PaymentWebhookSecret string
	StripeKey            string // stripe secret API Key
	SentryDSN            string
	RedisURL             string
	TelegramAPIToken     string // optional, mirrors run reports to the ops channel
	TelegramChannelID    int64
	BatchChunkSize       int
	BatchChunkDelay      time.Duration
	SchedulerEnabled     bool
	CronRelevance        string
	CronApplications     string
	CronFavorites        string
	CronJobAlert         string
	CronDigest           string
	CreditPacks          map[int]int64 // credits -> price in cents
}

func LoadConfig() (Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		return Config{}, fmt.Errorf("PORT cannot be empty")
	}
	env := strings.ToLower(os.Getenv("ENV"))
	if env == "" {
		return Config{}, fmt.Errorf("ENV cannot be empty")
	}
	databaseUser := os.Getenv("DATABASE_USER")
	if databaseUser == "" {
		return Config{}, fmt.Errorf("DATABASE_USER cannot be empty")
	}
	databasePassword := os.Getenv("DATABASE_PASSWORD")
	if databasePassword == "" {
		return Config{}, fmt.Errorf("DATABASE_PASSWORD cannot be empty")
	}
	databaseHost := os.Getenv("DATABASE_HOST")
	if databaseHost == "" {
		return Config{}, fmt.Errorf("DATABASE_HOST cannot be empty")
	}
	databasePort := os.Getenv("DATABASE_PORT")
	if databasePort == "" {
		return Config{}, fmt.Errorf("DATABASE_PORT cannot be empty")
	}
	databaseName := os.Getenv("DATABASE_NAME")
	if databaseName == "" {
		return Config{}, fmt.Errorf("DATABASE_NAME cannot be empty")
	}
	databaseSSLMode := os.Getenv("DATABASE_SSL_MODE")
	if databaseSSLMode == "" {
		return Config{}, fmt.Errorf("DATABASE_SSL_MODE cannot be empty")
	}
	internalSecret := os.Getenv("INTERNAL_SECRET")
	if internalSecret == "" {
		return Config{}, fmt.Errorf("INTERNAL_SECRET cannot be empty")
	}
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		return Config{}, fmt.Errorf("ADMIN_EMAIL cannot be empty")
	}
	noReplyEmail := os.Getenv("NO_REPLY_EMAIL")
	if noReplyEmail == "" {
		return Config{}, fmt.Errorf("NO_REPLY_EMAIL cannot be empty")
	}
	emailAPIKey := os.Getenv("EMAIL_API_KEY")
	if emailAPIKey == "" {
		return Config{}, fmt.Errorf("EMAIL_API_KEY cannot be empty")
	}
	siteName := os.Getenv("SITE_NAME")
	if siteName == "" {
		return Config{}, fmt.Errorf("SITE_NAME cannot be empty")
	}
	siteHost := os.Getenv("SITE_HOST")
	if siteHost == "" {
		return Config{}, fmt.Errorf("SITE_HOST cannot be empty")
	}
	searchAPIURL := os.Getenv("SEARCH_API_URL")
	if searchAPIURL == "" {
		return Config{}, fmt.Errorf("SEARCH_API_URL cannot be empty")
	}
	resumeParseURL := os.Getenv("RESUME_PARSE_URL")
	if resumeParseURL == "" {
		return Config{}, fmt.Errorf("RESUME_PARSE_URL cannot be empty")
	}
	embeddingUpdateURL := os.Getenv("EMBEDDING_UPDATE_URL")
	if embeddingUpdateURL == "" {
		return Config{}, fmt.Errorf("EMBEDDING_UPDATE_URL cannot be empty")
	}
	sessionKeyString := os.Getenv("SESSION_KEY")
	if sessionKeyString == "" {
		return Config{}, fmt.Errorf("SESSION_KEY cannot be empty")
	}
	sessionKeyBytes, err := base64.StdEncoding.DecodeString(sessionKeyString)
	if err != nil {
		return Config{}, errors.Wrapf(err, "unable to decode session key to bytes")
	}
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		return Config{}, fmt.Errorf("JWT_SIGNING_KEY cannot be empty")
	}
	jwtSigningKeyBytes, err := base64.StdEncoding.DecodeString(jwtSigningKey)
	if err != nil {
		return Config{}, errors.Wrapf(err, "unable to decode jwt signing key to bytes")
	}
	paymentProvider := strings.ToLower(os.Getenv("PAYMENT_PROVIDER"))
	if paymentProvider == "" {
		return Config{}, fmt.Errorf("PAYMENT_PROVIDER cannot be empty")
	}
	if paymentProvider != PaymentProviderStandard && paymentProvider != PaymentProviderStripe {
		return Config{}, fmt.Errorf("PAYMENT_PROVIDER must be one of %s, %s", PaymentProviderStandard, PaymentProviderStripe)
	}
	paymentWebhookSecret := os.Getenv("PAYMENT_WEBHOOK_SECRET")
	if paymentWebhookSecret == "" {
		return Config{}, fmt.Errorf("PAYMENT_WEBHOOK_SECRET cannot be empty")
	}
	stripeKey := os.Getenv("STRIPE_KEY")
	if paymentProvider == PaymentProviderStripe && stripeKey == "" {
		return Config{}, fmt.Errorf("STRIPE_KEY cannot be empty when PAYMENT_PROVIDER is stripe")
	}
	var telegramChannelID int64
	telegramAPIToken := os.Getenv("TELEGRAM_API_TOKEN")
	if telegramAPIToken != "" {
		telegramChannelIDStr := os.Getenv("TELEGRAM_CHANNEL_ID")
		if telegramChannelIDStr == "" {
			return Config{}, fmt.Errorf("TELEGRAM_CHANNEL_ID cannot be empty when TELEGRAM_API_TOKEN is set")
		}
		telegramChannelID, err = strconv.ParseInt(telegramChannelIDStr, 10, 64)
		if err != nil {
			return Config{}, errors.Wrap(err, "could not convert TELEGRAM_CHANNEL_ID to int")
		}
	}
	chunkSize, err := intOrDefault("BATCH_CHUNK_SIZE", 5)
	if err != nil {
		return Config{}, err
	}
	if chunkSize < 1 {
		return Config{}, fmt.Errorf("BATCH_CHUNK_SIZE must be positive")
	}
	chunkDelayMs, err := intOrDefault("BATCH_CHUNK_DELAY_MS", 200)
	if err != nil {
		return Config{}, err
	}
	emailRate, err := intOrDefault("EMAIL_RATE_PER_SECOND", 10)
	if err != nil {
		return Config{}, err
	}
	schedulerEnabled := false
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		schedulerEnabled, err = strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "could not parse SCHEDULER_ENABLED")
		}
	}
	urlProtocol := "http://"
	if !strings.EqualFold(env, "dev") {
		urlProtocol = "https://"
	}

	return Config{
		Port:                 port,
		DatabaseUser:         databaseUser,
		DatabasePassword:     databasePassword,
		DatabaseHost:         databaseHost,
		DatabasePort:         databasePort,
		DatabaseName:         databaseName,
		DatabaseSSLMode:      databaseSSLMode,
		Env:                  env,
		InternalSecret:       internalSecret,
		AdminEmail:           adminEmail,
		NoReplyEmail:         noReplyEmail,
		EmailAPIKey:          emailAPIKey,
		EmailRatePerSecond:   emailRate,
		SiteName:             siteName,
		SiteHost:             siteHost,
		URLProtocol:          urlProtocol,
		SearchAPIURL:         searchAPIURL,
		ResumeParseURL:       resumeParseURL,
		EmbeddingUpdateURL:   embeddingUpdateURL,
		SessionKey:           sessionKeyBytes,
		JwtSigningKey:        jwtSigningKeyBytes,
		PaymentProvider:      paymentProvider,
		PaymentWebhookSecret: paymentWebhookSecret,
		StripeKey:            stripeKey,
		SentryDSN:            os.Getenv("SENTRY_DSN"),
		RedisURL:             os.Getenv("REDIS_URL"),
		TelegramAPIToken:     telegramAPIToken,
		TelegramChannelID:    telegramChannelID,
		BatchChunkSize:       chunkSize,
		BatchChunkDelay:      time.Duration(chunkDelayMs) * time.Millisecond,
		SchedulerEnabled:     schedulerEnabled,
		CronRelevance:        stringOrDefault("CRON_RELEVANCE", "@daily"),
		CronApplications:     stringOrDefault("CRON_APPLICATIONS_REMINDER", "@weekly"),
		CronFavorites:        stringOrDefault("CRON_FAVORITES_REMINDER", "@weekly"),
		CronJobAlert:         stringOrDefault("CRON_JOB_ALERT", "@every 24h"),
		CronDigest:           stringOrDefault("CRON_DIGEST", "@weekly"),
		CreditPacks: map[int]int64{
			10:  499,
			50:  1999,
			150: 4999,
		},
	}, nil
}

// SiteURL is the public base url used in email links.
func (c Config) SiteURL() string {
	return c.URLProtocol + c.SiteHost
}

func intOrDefault(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "could not convert %s to int", name)
	}
	return n, nil
}

func stringOrDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
