package gmb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-review-responder/internal/domain"
)

// ReviewTimeLayout is the platform's fixed timestamp format: UTC with
// fractional seconds and a literal trailing Z. Offsets or other shapes are
// rejected outright.
const ReviewTimeLayout = "2006-01-02T15:04:05.999999999Z"

// reviewsPage is the wire shape of one reviews list response.
type reviewsPage struct {
	Reviews       []wireReview `json:"reviews"`
	NextPageToken string       `json:"nextPageToken"`
}

// wireReview carries CreateTime as a string so the timestamp can be parsed
// strictly against ReviewTimeLayout instead of encoding/json's RFC 3339.
type wireReview struct {
	ReviewID   string              `json:"reviewId"`
	Reviewer   domain.Reviewer     `json:"reviewer"`
	StarRating domain.StarRating   `json:"starRating"`
	Comment    string              `json:"comment"`
	CreateTime string              `json:"createTime"`
	Reply      *domain.ReviewReply `json:"reviewReply"`
}

// ListRecentReviews pages through the location's review feed and returns the
// reviews created within the last `days` days, newest first (the platform's
// feed order is preserved).
//
// Behavior:
//   - Identifiers are normalized to their path-prefixed form before use.
//   - The cutoff is now-days at UTC day resolution; a review qualifies when
//     CreateTime >= cutoff.
//   - Pagination stops when the platform omits nextPageToken, or when a page
//     contributes zero in-window reviews: the feed is reverse-chronological,
//     so everything beyond that page is older than the cutoff.
//   - Pages after the first are paced at one request per pageInterval.
//
// Errors: 404 wraps ErrLocationNotFound, any other transport/HTTP failure
// wraps ErrFetch, and a timestamp that does not match ReviewTimeLayout wraps
// ErrParse and fails the whole fetch. None of these are retried.
func (c *Client) ListRecentReviews(ctx context.Context, loc domain.LocationRef, days int) ([]domain.Review, error) {
	tr := otel.Tracer("gmb/Client")
	ctx, span := tr.Start(ctx, "ListRecentReviews",
		trace.WithAttributes(
			attribute.String("gmb.account", loc.AccountID),
			attribute.String("gmb.location", loc.LocationID),
			attribute.Int("gmb.window_days", days),
		),
	)
	defer span.End()

	if loc.IsZero() {
		return nil, fmt.Errorf("%w: account and location are required", ErrFetch)
	}
	if days < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, days)
	}
	loc = loc.Normalize()
	cutoff := c.now().UTC().AddDate(0, 0, -days)

	// One page per interval; the first Wait draws the initial burst token
	// so only subsequent pages are delayed.
	interval := c.pageInterval
	if interval <= 0 {
		interval = time.Nanosecond
	}
	pacer := rate.NewLimiter(rate.Every(interval), 1)

	var (
		out       []domain.Review
		pageToken string
	)
	for page := 1; ; page++ {
		if err := pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetch, err)
		}

		body, err := c.fetchPage(ctx, loc, pageToken)
		if err != nil {
			return nil, err
		}

		kept := 0
		for _, wr := range body.Reviews {
			created, err := parseReviewTime(wr.CreateTime)
			if err != nil {
				return nil, fmt.Errorf("%w: review %q has createTime %q: %v",
					ErrParse, wr.ReviewID, wr.CreateTime, err)
			}
			if created.Before(cutoff) {
				continue
			}
			out = append(out, domain.Review{
				ReviewID:   wr.ReviewID,
				Reviewer:   wr.Reviewer,
				StarRating: wr.StarRating,
				Comment:    wr.Comment,
				CreateTime: created,
				Reply:      wr.Reply,
			})
			kept++
		}

		log.Debug().
			Int("page", page).
			Int("in_window", kept).
			Int("page_size", len(body.Reviews)).
			Str("location", loc.LocationID).
			Msg("fetched review page")

		pageToken = body.NextPageToken
		if pageToken == "" || kept == 0 {
			break
		}
	}

	span.SetAttributes(attribute.Int("gmb.reviews", len(out)))
	log.Info().
		Int("reviews", len(out)).
		Str("account", loc.AccountID).
		Str("location", loc.LocationID).
		Msg("review fetch complete")
	return out, nil
}

// parseReviewTime parses s strictly against ReviewTimeLayout. The layout's
// .999999999 verb would also accept a fraction-less timestamp, but the
// platform always sends fractional seconds, so their absence is malformed.
func parseReviewTime(s string) (time.Time, error) {
	if !strings.Contains(s, ".") {
		return time.Time{}, fmt.Errorf("missing fractional seconds in %q", s)
	}
	return time.Parse(ReviewTimeLayout, s)
}

// fetchPage requests a single reviews page, optionally continuing from token.
func (c *Client) fetchPage(ctx context.Context, loc domain.LocationRef, token string) (*reviewsPage, error) {
	u := fmt.Sprintf("%s/%s/%s/reviews", c.baseURL, loc.AccountID, loc.LocationID)
	if token != "" {
		u += "?pageToken=" + url.QueryEscape(token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s/%s: %s", ErrLocationNotFound, loc.AccountID, loc.LocationID, detail)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	var body reviewsPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &body, nil
}
