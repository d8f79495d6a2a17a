package deck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go-handshake/internal/models"
	"go-handshake/internal/observability"
)

const (
	DefaultCandidateLimit = 6
	// RefillThreshold is the deck size at or below which more candidates are fetched.
	RefillThreshold = 2

	initialRemainingSwipes = 20
)

var ErrRefillInFlight = errors.New("deck: refill already in flight")

// Supply is the candidate and swipe-action backend.
type Supply interface {
	Candidates(ctx context.Context, limit int) (*models.Candidates, error)
	SubmitAction(ctx context.Context, req models.ActionRequest) (*models.ActionResult, error)
	ResetPreferences(ctx context.Context) error
}

// Recommender keeps the deck stocked and turns swipe decisions into actions.
type Recommender struct {
	supply Supply
	deck   *Deck
	limit  int

	mu          sync.Mutex
	exposureID  int64
	hasExposure bool
	remaining   int
	refilling   bool
	refillDone  chan struct{}
	surveyDue   bool
	onSurvey    func()
}

func NewRecommender(supply Supply, deck *Deck, limit int) *Recommender {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	return &Recommender{
		supply:    supply,
		deck:      deck,
		limit:     limit,
		remaining: initialRemainingSwipes,
	}
}

// OnSurveyDue registers a callback for when the follow-up survey should be shown.
func (r *Recommender) OnSurveyDue(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSurvey = fn
}

// Refill fetches candidates and merges them into the deck. Overlapping calls return
// ErrRefillInFlight. On failure the deck is left untouched.
func (r *Recommender) Refill(ctx context.Context) (int, error) {
	r.mu.Lock()
	if r.refilling {
		r.mu.Unlock()
		return 0, ErrRefillInFlight
	}
	r.refilling = true
	done := make(chan struct{})
	r.refillDone = done
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.refilling = false
		r.refillDone = nil
		r.mu.Unlock()
		close(done)
	}()

	res, err := r.supply.Candidates(ctx, r.limit)
	if err != nil {
		slog.Error("[DECK] Candidate fetch failed", "error", err)
		return 0, fmt.Errorf("deck: fetch candidates: %w", err)
	}
	if res == nil {
		return 0, nil
	}

	r.mu.Lock()
	r.remaining = res.RemainingSwipes
	if len(res.Cards) > 0 {
		r.exposureID = res.ExposureID
		r.hasExposure = true
	}
	r.mu.Unlock()

	added := r.deck.Merge(res.Cards)
	slog.Info("[DECK] Refilled", "added", added, "deck", r.deck.Len(), "remainingSwipes", res.RemainingSwipes)
	return added, nil
}

// OnSwipe adapts HandleSwipe to a Controller callback bound to ctx.
func (r *Recommender) OnSwipe(ctx context.Context) SwipeFunc {
	return func(dir Direction, card models.Card) {
		r.HandleSwipe(ctx, dir, card)
	}
}

// HandleSwipe submits the decision for a card that has already left the deck, raises
// the survey prompt when due and refills a low deck.
func (r *Recommender) HandleSwipe(ctx context.Context, dir Direction, card models.Card) {
	r.mu.Lock()
	if !r.hasExposure {
		r.mu.Unlock()
		slog.Warn("[DECK] Swipe without exposure ignored", "userId", card.UserID)
		return
	}
	req := models.ActionRequest{
		ExposureID: r.exposureID,
		UserID:     card.UserID,
		ActionType: dir.Action(),
	}
	nextRemaining := r.remaining - 1
	r.mu.Unlock()

	left := r.deck.Len()

	res, err := r.supply.SubmitAction(ctx, req)
	if err != nil {
		observability.IncSwipe(string(req.ActionType), "error")
		slog.Error("[DECK] Action submit failed", "userId", card.UserID, "action", req.ActionType, "error", err)
	} else {
		observability.IncSwipe(string(req.ActionType), "ok")
		r.mu.Lock()
		r.remaining = nextRemaining
		var notify func()
		if left == 0 && res != nil && res.ExtraSurveyStatus == models.SurveyStatusBefore {
			r.surveyDue = true
			notify = r.onSurvey
		}
		r.mu.Unlock()
		if notify != nil {
			notify()
		}
	}

	if left <= RefillThreshold && nextRemaining > 0 {
		if _, err := r.Refill(ctx); err != nil && !errors.Is(err, ErrRefillInFlight) {
			slog.Warn("[DECK] Refill after swipe failed", "error", err)
		}
	}
}

// Reset clears the server-side preferences, empties the deck and loads fresh candidates.
func (r *Recommender) Reset(ctx context.Context) error {
	if err := r.supply.ResetPreferences(ctx); err != nil {
		slog.Error("[DECK] Reset failed", "error", err)
		return fmt.Errorf("deck: reset preferences: %w", err)
	}
	return r.reload(ctx)
}

// reload empties the deck and refills it. A refill already running was started before the
// deck went stale, so it is waited out and its cards are dropped.
func (r *Recommender) reload(ctx context.Context) error {
	for {
		r.mu.Lock()
		done := r.refillDone
		r.mu.Unlock()
		if done != nil {
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		r.deck.Clear()
		_, err := r.Refill(ctx)
		if !errors.Is(err, ErrRefillInFlight) {
			return err
		}
	}
}

func (r *Recommender) RemainingSwipes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

func (r *Recommender) SurveyDue() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.surveyDue
}

// DismissSurvey clears the prompt. Pass refill to load a fresh deck afterwards.
func (r *Recommender) DismissSurvey(ctx context.Context, refill bool) error {
	r.mu.Lock()
	r.surveyDue = false
	r.mu.Unlock()
	if !refill {
		return nil
	}
	return r.reload(ctx)
}
