// Package onboarding runs the follow up work of a completed profile.
package onboarding

import (
	"context"
	"time"

	"github.com/gethired/job-board/internal/batch"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Resumes interface {
	Parse(ctx context.Context, userID, resumeID string) error
}

type Embeddings interface {
	Update(ctx context.Context, p Profile) error
}

type Relevance interface {
	Recompute(ctx context.Context, userID, email string) batch.Result
}

// Submission is a completed onboarding form. ResumeID is empty when no new
// resume was uploaded.
type Submission struct {
	UserID   string
	Email    string
	ResumeID string
	Profile  Profile
}

type Chain struct {
	resumes    Resumes
	embeddings Embeddings
	relevance  Relevance
	log        zerolog.Logger
}

func NewChain(resumes Resumes, embeddings Embeddings, relevance Relevance, log zerolog.Logger) *Chain {
	return &Chain{
		resumes:    resumes,
		embeddings: embeddings,
		relevance:  relevance,
		log:        log.With().Str("component", "onboarding").Logger(),
	}
}

// Run executes resume parse, embedding update and relevance recompute in
// order. The first failing step stops the chain, earlier steps stay applied.
func (c *Chain) Run(ctx context.Context, sub Submission) error {
	logger := c.log.With().Str("user_id", sub.UserID).Logger()
	started := time.Now()
	sub.Profile.UserID = sub.UserID

	if sub.ResumeID != "" {
		if err := c.resumes.Parse(ctx, sub.UserID, sub.ResumeID); err != nil {
			return c.halt(logger, "resume parse", err)
		}
		logger.Info().Str("resume_id", sub.ResumeID).Msg("resume parsed")
	}
	if err := c.embeddings.Update(ctx, sub.Profile); err != nil {
		return c.halt(logger, "embedding update", err)
	}
	logger.Info().Msg("embedding updated")

	res := c.relevance.Recompute(ctx, sub.UserID, sub.Email)
	if !res.Success {
		return c.halt(logger, "relevance recompute", errors.New(res.Error))
	}
	logger.Info().Str("result", res.Message).Dur("took", time.Since(started)).Msg("onboarding chain finished")
	return nil
}

func (c *Chain) halt(logger zerolog.Logger, step string, err error) error {
	logger.Error().Err(err).Str("step", step).Msg("onboarding chain halted")
	return errors.Wrap(err, step)
}
