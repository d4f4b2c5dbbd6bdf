// Package services – ReviewReplyService
//
// This file implements the orchestrator of the review-reply pipeline: it
// selects the reviews that still need a reply, drives the generator, joins
// the resulting drafts back to their reviews, and publishes each reply with
// per-review failure isolation.
//
// Drafts are joined to reviews BY REVIEW ID, not by position: the generator
// may skip a failed batch, and positional pairing would silently shift every
// later reply onto the wrong review.
package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-review-responder/internal/domain"
)

// ReviewFetcher lists a location's reviews within a lookback window.
//
// Implementations must be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ReviewFetcher interface {
	ListRecentReviews(ctx context.Context, loc domain.LocationRef, days int) ([]domain.Review, error)
}

// ReplyGenerator drafts replies for a set of reviews, best-effort: a failing
// batch yields no drafts but never an error.
type ReplyGenerator interface {
	Generate(ctx context.Context, reviews []domain.Review) []domain.ReplyDraft
}

// ReplyPublisher posts one reply to one review.
type ReplyPublisher interface {
	PublishReply(ctx context.Context, loc domain.LocationRef, reviewID, replyText string) error
}

// ReviewReplyService runs the fetch → generate → publish pipeline for one
// location per invocation.
type ReviewReplyService struct {
	Fetcher   ReviewFetcher
	Generator ReplyGenerator
	Publisher ReplyPublisher

	// PublishConcurrency bounds parallel reply posts (1 = sequential).
	PublishConcurrency int
}

// NewReviewReplyService wires the pipeline with a small default publish
// parallelism.
func NewReviewReplyService(f ReviewFetcher, g ReplyGenerator, p ReplyPublisher) *ReviewReplyService {
	return &ReviewReplyService{Fetcher: f, Generator: g, Publisher: p, PublishConcurrency: 4}
}

// Run fetches the location's recent reviews and processes them. It returns
// the number of reviews for which a publish attempt was made.
func (s *ReviewReplyService) Run(ctx context.Context, loc domain.LocationRef, days int) (int, error) {
	reviews, err := s.Fetcher.ListRecentReviews(ctx, loc, days)
	if err != nil {
		return 0, err
	}
	return s.Process(ctx, reviews, loc)
}

// Process drafts and publishes replies for every eligible review in reviews.
//
// Behavior:
//  1. Eligible = unreplied reviews with non-blank comment text.
//  2. An empty eligible set is a logged no-op, not an error.
//  3. Drafts come back best-effort; a draft whose id matches no eligible
//     review is dropped with a warning.
//  4. Publishes run under a bounded concurrency limit; one failed post is
//     logged and never aborts the remaining posts.
//
// The returned count is the number of publish attempts, successful or not.
func (s *ReviewReplyService) Process(ctx context.Context, reviews []domain.Review, loc domain.LocationRef) (int, error) {
	tr := otel.Tracer("services/ReviewReplyService")
	ctx, span := tr.Start(ctx, "Process",
		trace.WithAttributes(
			attribute.String("gmb.account", loc.AccountID),
			attribute.String("gmb.location", loc.LocationID),
			attribute.Int("reviews.total", len(reviews)),
		),
	)
	defer span.End()

	if loc.IsZero() {
		return 0, ErrMissingLocation
	}

	eligible := make([]domain.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.NeedsReply() {
			eligible = append(eligible, r)
		}
	}
	reviewsEligible.Add(float64(len(eligible)))
	if len(eligible) == 0 {
		log.Info().
			Str("account", loc.AccountID).
			Str("location", loc.LocationID).
			Msg("no unreplied reviews")
		return 0, nil
	}
	log.Info().
		Int("eligible", len(eligible)).
		Str("location", loc.LocationID).
		Msg("processing unreplied reviews")

	drafts := s.Generator.Generate(ctx, eligible)
	repliesDrafted.Add(float64(len(drafts)))

	// Join by review id; the eligible set is the source of truth.
	byID := make(map[string]domain.Review, len(eligible))
	for _, r := range eligible {
		byID[r.ReviewID] = r
	}
	matched := drafts[:0]
	for _, d := range drafts {
		if _, ok := byID[d.ReviewID]; !ok {
			log.Warn().Str("review_id", d.ReviewID).Msg("draft references no eligible review, dropped")
			continue
		}
		matched = append(matched, d)
	}

	limit := s.PublishConcurrency
	if limit <= 0 {
		limit = 1
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for _, d := range matched {
		eg.Go(func() error {
			if err := s.Publisher.PublishReply(ctx, loc, d.ReviewID, d.ReplyText); err != nil {
				// Isolation is the contract: one bad post must not
				// stop the rest of the run.
				publishFailures.Inc()
				log.Error().Err(err).Str("review_id", d.ReviewID).Msg("reply publish failed")
				return nil
			}
			repliesPublished.Inc()
			return nil
		})
	}
	_ = eg.Wait()

	span.SetAttributes(
		attribute.Int("reviews.eligible", len(eligible)),
		attribute.Int("replies.attempted", len(matched)),
	)
	log.Info().
		Int("eligible", len(eligible)).
		Int("attempted", len(matched)).
		Str("location", loc.LocationID).
		Msg("review reply run complete")
	return len(matched), nil
}
