package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-review-responder/internal/domain"
)

const (
	// DefaultBatchSize balances model context/output limits against the
	// number of completion requests per run.
	DefaultBatchSize = 10

	// DefaultConcurrency bounds how many batches are in flight at once,
	// to stay inside the generation service's rate limits.
	DefaultConcurrency = 2
)

// ErrValidation indicates a batch's output violated the draft contract
// (element not an object, missing review_id/reply_text, unknown or duplicate
// review id). The whole batch is discarded; other batches are unaffected.
var ErrValidation = errors.New("invalid generation output")

var genBatches = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "replygen_batches_total",
		Help: "Reply generation batches by outcome.",
	},
	[]string{"outcome"}, // "ok" | "failed"
)

func init() {
	prometheus.MustRegister(genBatches)
}

// CompletionClient is the slice of the completion API the generator needs.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator turns batches of reviews into validated reply drafts.
//
// Generation is best-effort by contract: a batch that fails (service error,
// unparsable output, contract violation) is logged, counted, and skipped;
// the remaining batches still run and their drafts are returned in batch
// order with within-batch order preserved.
type Generator struct {
	Client CompletionClient

	// Persona is the instruction preamble prepended to every batch prompt.
	// Opaque business copy; DefaultPersonaPrompt when empty.
	Persona string

	// BatchSize caps reviews per completion request (DefaultBatchSize
	// when <= 0).
	BatchSize int

	// Concurrency bounds in-flight batches (DefaultConcurrency when <= 0).
	Concurrency int
}

// NewGenerator builds a Generator with the package defaults.
func NewGenerator(client CompletionClient) *Generator {
	return &Generator{Client: client, Persona: DefaultPersonaPrompt}
}

// Generate drafts replies for reviews. It never returns an error: failures
// are absorbed per batch and the drafts of the surviving batches are
// returned. Every returned draft references a distinct review of the input.
func (g *Generator) Generate(ctx context.Context, reviews []domain.Review) []domain.ReplyDraft {
	tr := otel.Tracer("genai/Generator")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(attribute.Int("gen.reviews", len(reviews))),
	)
	defer span.End()

	if len(reviews) == 0 {
		return nil
	}

	batchSize := g.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	concurrency := g.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	persona := g.Persona
	if persona == "" {
		persona = DefaultPersonaPrompt
	}

	// Slice the eligible set into consecutive batches; results land in a
	// per-batch slot so concurrent completion keeps deterministic order.
	var offsets []int
	for off := 0; off < len(reviews); off += batchSize {
		offsets = append(offsets, off)
	}
	results := make([][]domain.ReplyDraft, len(offsets))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for i, off := range offsets {
		end := off + batchSize
		if end > len(reviews) {
			end = len(reviews)
		}
		batch := reviews[off:end]
		eg.Go(func() error {
			drafts, err := g.generateBatch(ctx, persona, batch, off)
			if err != nil {
				// Batch failures never cross the batch boundary.
				genBatches.WithLabelValues("failed").Inc()
				log.Warn().
					Err(err).
					Int("batch", i+1).
					Int("batch_size", len(batch)).
					Msg("reply batch skipped")
				return nil
			}
			genBatches.WithLabelValues("ok").Inc()
			results[i] = drafts
			return nil
		})
	}
	_ = eg.Wait() // workers always return nil

	var all []domain.ReplyDraft
	for _, drafts := range results {
		all = append(all, drafts...)
	}

	span.SetAttributes(attribute.Int("gen.drafts", len(all)))
	log.Info().
		Int("reviews", len(reviews)).
		Int("drafts", len(all)).
		Int("batches", len(offsets)).
		Msg("reply generation complete")
	return all
}

// generateBatch runs one completion call and validates its output against
// the batch that produced it.
func (g *Generator) generateBatch(ctx context.Context, persona string, batch []domain.Review, offset int) ([]domain.ReplyDraft, error) {
	raw, err := g.Client.Complete(ctx, buildPrompt(persona, batch, offset))
	if err != nil {
		return nil, err
	}
	return parseDrafts(raw, batch, offset)
}

// parseDrafts strictly decodes a model response into drafts.
//
// Contract (violations discard the whole batch):
//   - after code-fence stripping, the payload is a JSON array
//   - every element is an object carrying both review_id and reply_text
//   - every review_id matches exactly one review of the batch (platform id
//     or its positional fallback), with no duplicates
func parseDrafts(raw string, batch []domain.Review, offset int) ([]domain.ReplyDraft, error) {
	raw = stripCodeFence(raw)

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, fmt.Errorf("response is not a JSON array: %w", err)
	}

	known := make(map[string]struct{}, len(batch))
	for i, r := range batch {
		known[promptReviewID(r, offset+i+1)] = struct{}{}
	}

	seen := make(map[string]struct{}, len(elems))
	drafts := make([]domain.ReplyDraft, 0, len(elems))
	for i, elem := range elems {
		var obj struct {
			ReviewID  *string `json:"review_id"`
			ReplyText *string `json:"reply_text"`
		}
		if err := json.Unmarshal(elem, &obj); err != nil {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrValidation, i)
		}
		if obj.ReviewID == nil || obj.ReplyText == nil {
			return nil, fmt.Errorf("%w: element %d is missing review_id or reply_text", ErrValidation, i)
		}
		if _, ok := known[*obj.ReviewID]; !ok {
			return nil, fmt.Errorf("%w: element %d references unknown review %q", ErrValidation, i, *obj.ReviewID)
		}
		if _, dup := seen[*obj.ReviewID]; dup {
			return nil, fmt.Errorf("%w: duplicate draft for review %q", ErrValidation, *obj.ReviewID)
		}
		seen[*obj.ReviewID] = struct{}{}
		drafts = append(drafts, domain.ReplyDraft{ReviewID: *obj.ReviewID, ReplyText: *obj.ReplyText})
	}
	return drafts, nil
}

// stripCodeFence removes a markdown code fence the model may wrap around its
// JSON ("```json ... ```" or plain "```").
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
