package favorite

import (
	"time"

	"github.com/gethired/job-board/internal/job"
)

// Favorite is a saved job joined to its owner and the job itself.
type Favorite struct {
	UserID    string
	UserEmail string
	UserName  string
	SavedAt   time.Time
	Job       job.Job
}
