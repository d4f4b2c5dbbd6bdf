package genai

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-review-responder/internal/domain"
)

// DefaultPersonaPrompt is the built-in persona/instruction preamble. The copy
// itself is business configuration and is normally replaced via config; only
// the output contract at the end is load-bearing: the model must answer with
// a JSON array of {review_id, reply_text} objects.
const DefaultPersonaPrompt = `You are a friendly, professional manager responding to customer reviews on behalf of the business, with warmth and authenticity, like a real person would. For each review, write a unique reply that:

- Addresses the reviewer by first name only when the display name is a clear, appropriate personal name; otherwise use "Hi Guest".
- Acknowledges the specific feedback (dishes, staff, ambiance) to show care and attention.
- For positive reviews, expresses genuine gratitude with varied phrasing.
- For negative reviews, offers a sincere apology and invites the reviewer back, using warm, generic reassurance without promising refunds, free items, or procedural remedies.
- Uses diverse sentence structures and a casual yet professional tone.
- Keeps replies concise (50-100 words) and tailored to the review's details.
- Returns plain text inside reply_text, no markdown.

### Instructions:
- Reflect the review's tone (upbeat for positive, empathetic for negative).
- Avoid repeating stock phrases across replies.
- Output a JSON array of objects with keys: review_id, reply_text. Even if there is only one reply, return a JSON array.

### Reviews to Process:`

// titleCaser uppercases the first letter of each word without lowering the
// rest, so "delase" becomes "Delase" while "VirtuousMo" survives intact.
var titleCaser = cases.Title(language.English, cases.NoLower)

// displayName returns the reviewer name to embed in the prompt: "Guest" when
// the platform gave none, otherwise the name with word-initial casing fixed.
func displayName(r domain.Review) string {
	name := strings.TrimSpace(r.Reviewer.DisplayName)
	if name == "" {
		return "Guest"
	}
	return titleCaser.String(name)
}

// promptReviewID returns the id used to key a review inside a prompt. When
// the platform omitted the id, a positional fallback ("review_<n>", 1-based
// across the whole run) keeps the output contract joinable.
func promptReviewID(r domain.Review, position int) string {
	if r.ReviewID != "" {
		return r.ReviewID
	}
	return fmt.Sprintf("review_%d", position)
}

// buildPrompt assembles the single prompt for one batch: the persona preamble
// followed by one enumerated line per review. offset is the index of the
// batch's first review within the full eligible set.
func buildPrompt(preamble string, batch []domain.Review, offset int) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n")
	for i, r := range batch {
		rating := string(r.StarRating)
		if rating == "" {
			rating = "UNKNOWN"
		}
		fmt.Fprintf(&b, "%d. Review ID: %s, Reviewer Name: %s, Star Rating: %s, Text: %s\n",
			i+1, promptReviewID(r, offset+i+1), displayName(r), rating, r.Comment)
	}
	return b.String()
}
