// Package domain defines the value types exchanged between the review
// platform, the reply generator, and the orchestration service. Nothing in
// this package is persisted; a Review is immutable for the duration of a run
// and a ReplyDraft never outlives the run that produced it.
package domain

import (
	"strings"
	"time"
)

// StarRating is the platform's rating enum, transported as a string
// ("ONE".."FIVE"). An empty value means the platform omitted the rating.
type StarRating string

// Known star rating values as emitted by the review platform.
const (
	StarRatingOne   StarRating = "ONE"
	StarRatingTwo   StarRating = "TWO"
	StarRatingThree StarRating = "THREE"
	StarRatingFour  StarRating = "FOUR"
	StarRatingFive  StarRating = "FIVE"
)

// Reviewer is the author of a review as reported by the platform.
type Reviewer struct {
	// DisplayName is the public name chosen by the reviewer; may be empty
	// or arbitrary text (handles, emoji, etc.).
	DisplayName string `json:"displayName"`
}

// ReviewReply is an existing business-authored reply attached to a review.
// Its presence on a Review marks the review as already handled.
type ReviewReply struct {
	Comment    string     `json:"comment"`
	UpdateTime *time.Time `json:"updateTime,omitempty"`
}

// Review is a single customer review fetched from the platform.
//
// Fields:
//   - ReviewID: platform-assigned identifier, unique within a location.
//   - Reviewer: author metadata (display name only).
//   - StarRating: rating enum string; empty when not provided.
//   - Comment: free-text review body; may be empty (rating-only reviews).
//   - CreateTime: review creation time in UTC.
//   - Reply: existing business reply; nil when the review is unreplied.
type Review struct {
	ReviewID   string       `json:"reviewId"`
	Reviewer   Reviewer     `json:"reviewer"`
	StarRating StarRating   `json:"starRating,omitempty"`
	Comment    string       `json:"comment"`
	CreateTime time.Time    `json:"createTime"`
	Reply      *ReviewReply `json:"reviewReply,omitempty"`
}

// NeedsReply reports whether the review is eligible for reply generation:
// it has no existing reply and its comment is not blank. Rating-only and
// whitespace-only reviews are never selected.
func (r Review) NeedsReply() bool {
	return r.Reply == nil && strings.TrimSpace(r.Comment) != ""
}

// ReplyDraft is a generated reply candidate, not yet published. ReviewID must
// reference a review from the batch that produced the draft.
type ReplyDraft struct {
	ReviewID  string `json:"review_id"`
	ReplyText string `json:"reply_text"`
}

// LocationRef identifies one business location on the review platform.
type LocationRef struct {
	AccountID  string
	LocationID string
}

// Normalize returns a copy with both identifiers in the path-prefixed form
// the platform's v4 URLs require ("accounts/<id>", "locations/<id>").
// Already-prefixed identifiers are left untouched.
func (l LocationRef) Normalize() LocationRef {
	if !strings.HasPrefix(l.AccountID, "accounts/") {
		l.AccountID = "accounts/" + l.AccountID
	}
	if !strings.HasPrefix(l.LocationID, "locations/") {
		l.LocationID = "locations/" + l.LocationID
	}
	return l
}

// IsZero reports whether either identifier is missing.
func (l LocationRef) IsZero() bool {
	return strings.TrimSpace(l.AccountID) == "" || strings.TrimSpace(l.LocationID) == ""
}
