package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gethired/job-board/internal/bookmark"
	"github.com/gethired/job-board/internal/middleware"
	"github.com/gethired/job-board/internal/server"
)

type Bookmarks interface {
	SaveBookmark(ctx context.Context, userID, searchURL, name string, alertOn bool) (bookmark.Bookmark, error)
}

type Favorites interface {
	SaveJob(ctx context.Context, userID string, jobID int) error
}

func SaveBookmarkHandler(svr server.Server, bookmarks Bookmarks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := middleware.GetUserFromJWT(r, svr.SessionStore, svr.GetJWTSigningKey())
		if err != nil {
			svr.Fail(w, http.StatusUnauthorized, "sign in required")
			return
		}
		req := struct {
			URL     string `json:"url"`
			Name    string `json:"name"`
			AlertOn bool   `json:"alertOn"`
		}{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			svr.Fail(w, http.StatusBadRequest, "invalid request")
			return
		}
		if _, err := url.ParseRequestURI(req.URL); err != nil {
			svr.Fail(w, http.StatusBadRequest, "invalid search url")
			return
		}
		b, err := bookmarks.SaveBookmark(r.Context(), profile.UserID, req.URL, req.Name, req.AlertOn)
		if err != nil {
			svr.Log(err, "SaveBookmark")
			svr.Fail(w, http.StatusInternalServerError, "unable to save bookmark")
			return
		}
		msg := "bookmark saved"
		if b.IsAlertOn && b.RelevanceSorted() {
			msg = "bookmark saved, alerts are not sent for relevance sorted searches"
		}
		svr.Success(w, http.StatusCreated, msg)
	}
}

func SaveFavoriteHandler(svr server.Server, favorites Favorites) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := middleware.GetUserFromJWT(r, svr.SessionStore, svr.GetJWTSigningKey())
		if err != nil {
			svr.Fail(w, http.StatusUnauthorized, "sign in required")
			return
		}
		req := struct {
			JobID int `json:"jobId"`
		}{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID <= 0 {
			svr.Fail(w, http.StatusBadRequest, "invalid request")
			return
		}
		if err := favorites.SaveJob(r.Context(), profile.UserID, req.JobID); err != nil {
			svr.Log(err, "SaveJob")
			svr.Fail(w, http.StatusInternalServerError, "unable to save favorite")
			return
		}
		svr.Success(w, http.StatusCreated, "favorite saved")
	}
}
