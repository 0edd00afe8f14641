package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gethired/job-board/internal/batch"
	"github.com/gethired/job-board/internal/lock"
	"github.com/gethired/job-board/internal/report"
	"github.com/gethired/job-board/internal/server"
	"github.com/gethired/job-board/internal/user"
	"github.com/gorilla/mux"
)

type RunFunc func(ctx context.Context) (report.Outcome, error)

type Tasks interface {
	Go(name string, fn func(ctx context.Context) error) bool
}

type Contacts interface {
	GetContact(ctx context.Context, id string) (user.Contact, error)
}

type Recomputer interface {
	Recompute(ctx context.Context, userID, email string) batch.Result
}

// BatchRunHandler runs a batch synchronously and answers with its summary.
// The run is detached from the request so a caller hanging up does not stop
// it half way.
func BatchRunHandler(svr server.Server, name string, run RunFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := run(context.WithoutCancel(r.Context()))
		if err == lock.ErrLocked {
			svr.Fail(w, http.StatusConflict, name+" is already running")
			return
		}
		if err != nil {
			svr.Log(err, name)
			svr.Fail(w, http.StatusInternalServerError, "unable to complete "+name)
			return
		}
		svr.Success(w, http.StatusOK, out.Message())
	}
}

// RelevantJobsForUserHandler acknowledges straight away and recomputes the
// user's feed in the background.
func RelevantJobsForUserHandler(svr server.Server, contacts Contacts, relevance Recomputer, tasks Tasks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userId"]
		if userID == "" {
			svr.Fail(w, http.StatusBadRequest, "missing user id")
			return
		}
		accepted := tasks.Go("relevant-jobs-user", func(ctx context.Context) error {
			contact, err := contacts.GetContact(ctx, userID)
			if err != nil {
				return err
			}
			res := relevance.Recompute(ctx, contact.ID, contact.Email)
			if !res.Success {
				return fmt.Errorf("%s: %s", res.Identifier, res.Error)
			}
			return nil
		})
		if !accepted {
			svr.Fail(w, http.StatusServiceUnavailable, "shutting down")
			return
		}
		svr.Success(w, http.StatusAccepted, "relevant jobs recompute started")
	}
}

func HealthHandler(svr server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svr.Conn.PingContext(r.Context()); err != nil {
			svr.Fail(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		svr.Success(w, http.StatusOK, "ok")
	}
}
