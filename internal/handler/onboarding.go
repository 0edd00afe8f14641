package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gethired/job-board/internal/middleware"
	"github.com/gethired/job-board/internal/onboarding"
	"github.com/gethired/job-board/internal/server"
	"github.com/gethired/job-board/internal/user"
)

type OnboardingUsers interface {
	MarkOnboardingCompleted(ctx context.Context, id string) error
}

type Chain interface {
	Run(ctx context.Context, sub onboarding.Submission) error
}

// OnboardingCompleteHandler answers once the flag is stored. Parsing,
// embedding and relevance run afterwards and only ever show up in logs.
func OnboardingCompleteHandler(svr server.Server, users OnboardingUsers, chain Chain, tasks Tasks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := middleware.GetUserFromJWT(r, svr.SessionStore, svr.GetJWTSigningKey())
		if err != nil {
			svr.Fail(w, http.StatusUnauthorized, "sign in required")
			return
		}
		req := struct {
			ResumeID string             `json:"resumeId"`
			Profile  onboarding.Profile `json:"profile"`
		}{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			svr.Fail(w, http.StatusBadRequest, "invalid request")
			return
		}
		if err := users.MarkOnboardingCompleted(r.Context(), profile.UserID); err != nil {
			if err == user.ErrNotFound {
				svr.Fail(w, http.StatusNotFound, err.Error())
				return
			}
			svr.Log(err, "unable to mark onboarding completed")
			svr.Fail(w, http.StatusInternalServerError, "unable to complete onboarding")
			return
		}
		sub := onboarding.Submission{
			UserID:   profile.UserID,
			Email:    profile.Email,
			ResumeID: req.ResumeID,
			Profile:  req.Profile,
		}
		accepted := tasks.Go("onboarding-chain", func(ctx context.Context) error {
			return chain.Run(ctx, sub)
		})
		if !accepted {
			svr.Log(fmt.Errorf("onboarding chain for user %s rejected", profile.UserID), "server is shutting down")
		}
		svr.Success(w, http.StatusOK, "onboarding completed")
	}
}
