package gmb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-review-responder/internal/domain"
)

// fixedNow anchors every fetch test so cutoffs are deterministic.
var fixedNow = time.Date(2025, 8, 30, 12, 0, 0, 0, time.UTC)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, StaticTokenSource{AccessToken: "test-token"},
		WithPageInterval(0),
		WithClock(func() time.Time { return fixedNow }),
	)
}

// page builds a reviews page body with the given review times (hours before
// fixedNow) and continuation token.
func page(next string, hoursAgo ...int) map[string]any {
	reviews := make([]map[string]any, 0, len(hoursAgo))
	for i, h := range hoursAgo {
		reviews = append(reviews, map[string]any{
			"reviewId":   fmt.Sprintf("r%d", i),
			"reviewer":   map[string]any{"displayName": "Jane Doe"},
			"starRating": "FIVE",
			"comment":    "Great food!",
			"createTime": fixedNow.Add(-time.Duration(h) * time.Hour).Format("2006-01-02T15:04:05.000000") + "Z",
		})
	}
	body := map[string]any{"reviews": reviews}
	if next != "" {
		body["nextPageToken"] = next
	}
	return body
}

func TestListRecentReviews_FiltersByCutoff(t *testing.T) {
	// Window of 1 day: 2h and 23h qualify, 25h and 48h do not.
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q; want bearer token", got)
		}
		json.NewEncoder(w).Encode(page("", 2, 23, 25, 48))
	}))

	got, err := c.ListRecentReviews(context.Background(), domain.LocationRef{AccountID: "1", LocationID: "2"}, 1)
	if err != nil {
		t.Fatalf("ListRecentReviews: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("reviews = %d; want 2 (cutoff filter)", len(got))
	}
	cutoff := fixedNow.AddDate(0, 0, -1)
	for _, r := range got {
		if r.CreateTime.Before(cutoff) {
			t.Errorf("review %s older than cutoff: %v", r.ReviewID, r.CreateTime)
		}
	}
}

func TestListRecentReviews_PaginatesUntilTokenExhausted(t *testing.T) {
	pages := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		switch r.URL.Query().Get("pageToken") {
		case "":
			json.NewEncoder(w).Encode(page("p2", 1, 2))
		case "p2":
			json.NewEncoder(w).Encode(page("", 3, 4))
		default:
			t.Errorf("unexpected pageToken %q", r.URL.Query().Get("pageToken"))
		}
	}))

	got, err := c.ListRecentReviews(context.Background(), domain.LocationRef{AccountID: "1", LocationID: "2"}, 7)
	if err != nil {
		t.Fatalf("ListRecentReviews: %v", err)
	}
	if pages != 2 {
		t.Fatalf("pages fetched = %d; want 2", pages)
	}
	if len(got) != 4 {
		t.Fatalf("reviews = %d; want 4", len(got))
	}
}

func TestListRecentReviews_EarlyExitOnStalePage(t *testing.T) {
	// The second page is entirely outside the window; the loop must stop
	// there even though a continuation token is still offered.
	pages := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		switch r.URL.Query().Get("pageToken") {
		case "":
			json.NewEncoder(w).Encode(page("p2", 1, 2))
		case "p2":
			json.NewEncoder(w).Encode(page("p3", 30, 40))
		case "p3":
			t.Error("page p3 requested after a fully stale page")
		}
	}))

	got, err := c.ListRecentReviews(context.Background(), domain.LocationRef{AccountID: "1", LocationID: "2"}, 1)
	if err != nil {
		t.Fatalf("ListRecentReviews: %v", err)
	}
	if pages != 2 {
		t.Fatalf("pages fetched = %d; want 2 (early exit)", pages)
	}
	if len(got) != 2 {
		t.Fatalf("reviews = %d; want 2", len(got))
	}
}

func TestListRecentReviews_NotFound(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such location"}`, http.StatusNotFound)
	}))

	_, err := c.ListRecentReviews(context.Background(), domain.LocationRef{AccountID: "1", LocationID: "2"}, 1)
	if !errors.Is(err, ErrLocationNotFound) {
		t.Fatalf("err = %v; want ErrLocationNotFound", err)
	}
}

func TestListRecentReviews_ServerErrorWrapsErrFetch(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.ListRecentReviews(context.Background(), domain.LocationRef{AccountID: "1", LocationID: "2"}, 1)
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("err = %v; want ErrFetch", err)
	}
	if errors.Is(err, ErrLocationNotFound) {
		t.Fatalf("5xx misclassified as not-found: %v", err)
	}
}

func TestListRecentReviews_MalformedTimestampFailsWholeFetch(t *testing.T) {
	cases := map[string]string{
		"wrong shape":       "2025/08/30 11:00:00",
		"no fraction":       "2025-08-30T11:00:00Z",
		"empty fraction":    "2025-08-30T11:00:00.Z",
		"missing zulu":      "2025-08-30T11:00:00.000000",
		"space-separated":   "2025-08-30 11:00:00.000000Z",
		"fraction too wide": "2025-08-30T11:00:00.0000000000Z",
	}
	for name, bad := range cases {
		c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"reviews": []map[string]any{
					{"reviewId": "good", "comment": "ok", "createTime": fixedNow.Format("2006-01-02T15:04:05.000000") + "Z"},
					{"reviewId": "bad", "comment": "ok", "createTime": bad},
				},
			})
		}))

		_, err := c.ListRecentReviews(context.Background(), domain.LocationRef{AccountID: "1", LocationID: "2"}, 1)
		if !errors.Is(err, ErrParse) {
			t.Errorf("%s: err = %v; want ErrParse (strict timestamps)", name, err)
		}
	}
}

func TestParseReviewTime_FractionDigitRange(t *testing.T) {
	// 1 through 9 fraction digits are all valid platform output.
	for digits := 1; digits <= 9; digits++ {
		s := "2025-08-30T11:00:00." + strings.Repeat("0", digits) + "Z"
		if _, err := parseReviewTime(s); err != nil {
			t.Errorf("%d fraction digits: %v", digits, err)
		}
	}
	if _, err := parseReviewTime("2025-08-30T11:00:00Z"); err == nil {
		t.Error("fraction-less timestamp accepted; want error")
	}
}

func TestListRecentReviews_RejectsOffsetTimestamps(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"reviews": []map[string]any{
				{"reviewId": "r1", "comment": "ok", "createTime": "2025-08-30T11:00:00.000000+02:00"},
			},
		})
	}))

	_, err := c.ListRecentReviews(context.Background(), domain.LocationRef{AccountID: "1", LocationID: "2"}, 1)
	if !errors.Is(err, ErrParse) {
		t.Fatalf("err = %v; want ErrParse for zoned timestamp", err)
	}
}

func TestListRecentReviews_InvalidWindow(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an invalid window")
	}))

	for _, days := range []int{0, -1} {
		if _, err := c.ListRecentReviews(context.Background(), domain.LocationRef{AccountID: "1", LocationID: "2"}, days); !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("days=%d: err = %v; want ErrInvalidWindow", days, err)
		}
	}
}

func TestListRecentReviews_NormalizesLocationPath(t *testing.T) {
	var path string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewEncoder(w).Encode(page(""))
	}))

	if _, err := c.ListRecentReviews(context.Background(), domain.LocationRef{AccountID: "123", LocationID: "456"}, 1); err != nil {
		t.Fatalf("ListRecentReviews: %v", err)
	}
	if want := "/accounts/123/locations/456/reviews"; path != want {
		t.Fatalf("path = %q; want %q", path, want)
	}
}

func TestListRecentReviews_TokenFailureAbortsFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should carry a missing token")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticTokenSource{}, WithPageInterval(0))
	_, err := c.ListRecentReviews(context.Background(), domain.LocationRef{AccountID: "1", LocationID: "2"}, 1)
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("err = %v; want ErrAuth", err)
	}
}
