package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gethired/job-board/internal/bookmark"
	"github.com/gethired/job-board/internal/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookmarks struct {
	saved []bookmark.Bookmark
}

func (b *bookmarks) SaveBookmark(ctx context.Context, userID, searchURL, name string, alertOn bool) (bookmark.Bookmark, error) {
	bm := bookmark.Bookmark{ID: "b1", UserID: userID, URL: searchURL, Name: name, IsAlertOn: alertOn}
	b.saved = append(b.saved, bm)
	return bm, nil
}

type favorites struct {
	jobs map[string][]int
}

func (f *favorites) SaveJob(ctx context.Context, userID string, jobID int) error {
	if f.jobs == nil {
		f.jobs = map[string][]int{}
	}
	f.jobs[userID] = append(f.jobs[userID], jobID)
	return nil
}

func TestSaveBookmarkHandler(t *testing.T) {
	svr := newServer(t)
	store := &bookmarks{}
	h := handler.SaveBookmarkHandler(svr, store)

	rec := httptest.NewRecorder()
	h(rec, signedIn(t, svr, http.MethodPost, "/bookmarks", `{"url":"/jobs?q=golang","name":"Go","alertOn":true}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "bookmark saved", decode(t, rec).Message)

	rec = httptest.NewRecorder()
	h(rec, signedIn(t, svr, http.MethodPost, "/bookmarks", `{"url":"/jobs?q=golang&sortBy=relevance","alertOn":true}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, decode(t, rec).Message, "not sent for relevance sorted")

	rec = httptest.NewRecorder()
	h(rec, signedIn(t, svr, http.MethodPost, "/bookmarks", `{"url":"not a url"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/bookmarks", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Len(t, store.saved, 2)
	assert.Equal(t, "u1", store.saved[0].UserID)
}

func TestSaveFavoriteHandler(t *testing.T) {
	svr := newServer(t)
	store := &favorites{}
	h := handler.SaveFavoriteHandler(svr, store)

	rec := httptest.NewRecorder()
	h(rec, signedIn(t, svr, http.MethodPost, "/favorites", `{"jobId":42}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decode(t, rec).Success)

	rec = httptest.NewRecorder()
	h(rec, signedIn(t, svr, http.MethodPost, "/favorites", `{"jobId":0}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, map[string][]int{"u1": {42}}, store.jobs)
}
