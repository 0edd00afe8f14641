package job

import (
	"time"
)

// Job is the denormalised public job record as returned by the search api
// and stored in the jobs table.
type Job struct {
	ID          int       `json:"id"`
	Name        string    `json:"job_name"`
	Company     string    `json:"company_name"`
	Location    string    `json:"location"`
	Salary      string    `json:"salary"`
	Type        string    `json:"job_type"`
	Description string    `json:"description"`
	URL         string    `json:"job_url"`
	Platform    string    `json:"platform"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summary is the subset of a job shown inside reminder and digest emails.
type Summary struct {
	ID        int
	Name      string
	Company   string
	Location  string
	Salary    string
	URL       string
	CreatedAt time.Time
	Snippet   string
}

func (j Job) Summary() Summary {
	return Summary{
		ID:        j.ID,
		Name:      j.Name,
		Company:   j.Company,
		Location:  j.Location,
		Salary:    j.Salary,
		URL:       j.URL,
		CreatedAt: j.CreatedAt,
		Snippet:   j.Description,
	}
}
