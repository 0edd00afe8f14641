package application

import (
	"time"

	"github.com/gethired/job-board/internal/job"
)

type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusReviewed  Status = "reviewed"
	StatusSelected  Status = "selected"
	StatusStandBy   Status = "stand_by"
	StatusRejected  Status = "rejected"
)

// Pending is a submitted application joined to its applicant and job.
type Pending struct {
	UserID    string
	UserEmail string
	UserName  string
	AppliedAt time.Time
	Job       job.Job
}

// Pair identifies a job a user applied to.
type Pair struct {
	UserID string
	JobID  int
}
