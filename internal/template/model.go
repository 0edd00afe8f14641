package template

import (
	"time"

	"github.com/gethired/job-board/internal/job"
)

const (
	ViewApplicationsReminder = "applications_reminder.html"
	ViewFavoritesReminder    = "favorites_reminder.html"
	ViewJobAlert             = "job_alert.html"
	ViewWeeklyDigest         = "weekly_digest.html"
	ViewPaymentStatus        = "payment_status.html"
	ViewAdminReport          = "admin_report.html"
	ViewAdminNoTargets       = "admin_no_targets.html"
)

type Site struct {
	Name string
	URL  string
}

type JobListEmail struct {
	Site         Site
	FirstName    string
	SearchName   string
	Jobs         []job.Summary
	CallToAction string
	SettingsURL  string
}

type PaymentEmail struct {
	Site      Site
	FirstName string
	Status    string
	Credits   int
	Balance   int
	Amount    int64
	Currency  string
	Reason    string
}

type Stat struct {
	Label string
	Value int
}

type Failure struct {
	Identifier string
	Error      string
}

type ReportEmail struct {
	Site        Site
	Title       string
	RunID       string
	RanAt       time.Time
	Stats       []Stat
	Failures    []Failure
	MeanLatency time.Duration
	MaxLatency  time.Duration
}

type NoTargetsEmail struct {
	Site  Site
	Title string
	RunID string
	What  string
	RanAt time.Time
}
