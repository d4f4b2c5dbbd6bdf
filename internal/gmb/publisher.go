package gmb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-review-responder/internal/domain"
)

// replyBody is the wire payload of the reply endpoint.
type replyBody struct {
	Comment string `json:"comment"`
}

// PublishReply attaches replyText to a single review via the platform's
// per-review reply endpoint. One review, one call; the platform offers no
// batch variant. Any non-2xx response or transport failure wraps ErrPublish.
func (c *Client) PublishReply(ctx context.Context, loc domain.LocationRef, reviewID, replyText string) error {
	loc = loc.Normalize()
	u := fmt.Sprintf("%s/%s/%s/reviews/%s/reply", c.baseURL, loc.AccountID, loc.LocationID, reviewID)

	payload, err := json.Marshal(replyBody{Comment: replyText})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: review %s: %v", ErrPublish, reviewID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: review %s: status %d: %s", ErrPublish, reviewID, resp.StatusCode, detail)
	}

	log.Info().Str("review_id", reviewID).Msg("reply published")
	return nil
}
