// Review-reply HTTP handler.
//
// This file exposes the pipeline trigger:
//   - GET /reply-reviews?account_id=&location_id=&days=
//
// The handler is transport-thin: it validates query parameters, invokes the
// review-reply service, and translates the outcome into HTTP responses.
// Pipeline errors surface as 500 with a stage-specific code (the run is
// all-or-nothing up to the fetch stage; generation and publish failures are
// absorbed inside the service and only reduce the reported count).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-review-responder/internal/domain"
	"github.com/tbourn/go-review-responder/internal/gmb"
	"github.com/tbourn/go-review-responder/internal/services"
)

// ReviewReplyService defines the pipeline operation consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ReviewReplyService interface {
	// Run fetches recent reviews for loc and replies to the unreplied
	// ones, returning the number of reviews a publish was attempted for.
	Run(ctx context.Context, loc domain.LocationRef, days int) (int, error)
}

// Handlers groups the HTTP endpoints of the service.
type Handlers struct {
	replySvc ReviewReplyService
}

// New constructs a Handlers instance bound to the given service.
func New(replySvc ReviewReplyService) *Handlers {
	return &Handlers{replySvc: replySvc}
}

// ReplyReviewsResponse is the success body of the pipeline trigger.
type ReplyReviewsResponse struct {
	Status string `json:"status" example:"Processed 3 unreplied reviews"`
}

// ReplyReviews godoc
// @ID          replyReviews
// @Summary     Reply to recent unreplied reviews
// @Description Fetches the location's reviews from the lookback window, drafts replies for the unreplied ones, and publishes them.
// @Tags        Reviews
// @Produce     json
//
// @Param       account_id   query  string  true  "Platform account id (bare or accounts/-prefixed)"  example(1089431017)
// @Param       location_id  query  string  true  "Platform location id (bare or locations/-prefixed)" example(349034834)
// @Param       days         query  int     false "Lookback window in days (positive integer)"         default(1) minimum(1)
//
// @Success     200  {object}  handlers.ReplyReviewsResponse
// @Failure     400  {object}  handlers.ErrorResponse "Missing or invalid parameters"
// @Failure     500  {object}  handlers.ErrorResponse "Pipeline failure"
// @Router      /reply-reviews [get]
func (h *Handlers) ReplyReviews(c *gin.Context) {
	accountID := strings.TrimSpace(c.Query("account_id"))
	locationID := strings.TrimSpace(c.Query("location_id"))
	if accountID == "" || locationID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "account_id and location_id are required")
		return
	}

	// days defaults to 1 but is never silently corrected: anything that is
	// not a positive integer is the caller's error.
	daysStr := strings.TrimSpace(c.DefaultQuery("days", "1"))
	days, err := strconv.Atoi(daysStr)
	if err != nil || days < 1 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "days must be a positive integer")
		return
	}

	loc := domain.LocationRef{AccountID: accountID, LocationID: locationID}
	n, err := h.replySvc.Run(c.Request.Context(), loc, days)
	if err != nil {
		status, code := classifyRunError(err)
		fail(c, status, code, err.Error())
		return
	}

	ok(c, http.StatusOK, ReplyReviewsResponse{
		Status: fmt.Sprintf("Processed %d unreplied reviews", n),
	})
}

// classifyRunError maps pipeline errors to an HTTP status and error code.
// Fetch-stage failures are server-side by contract (the caller's input was
// already validated), so everything lands on 500 with a stage code.
func classifyRunError(err error) (int, string) {
	switch {
	case errors.Is(err, gmb.ErrInvalidWindow), errors.Is(err, services.ErrMissingLocation):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, gmb.ErrAuth):
		return http.StatusInternalServerError, ErrCodeAuthFailed
	case errors.Is(err, gmb.ErrLocationNotFound):
		return http.StatusInternalServerError, ErrCodeLocationNotFound
	case errors.Is(err, gmb.ErrParse):
		return http.StatusInternalServerError, ErrCodeUpstreamInvalid
	case errors.Is(err, gmb.ErrFetch):
		return http.StatusInternalServerError, ErrCodeFetchFailed
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}
