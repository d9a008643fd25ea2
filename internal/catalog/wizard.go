package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"roastery/internal/media"
)

// Step numbers the wizard's five screens.
type Step int

const (
	StepBasicInfo   Step = iota + 1 // name, origin, roast level
	StepPricing                     // price, weight
	StepStock                       // stock quantity, availability
	StepDescription                 // description, categories
	StepMedia                       // staged media; terminal, submit lives here
)

const lastStep = StepMedia

var (
	ErrNotAtFinalStep = errors.New("submit is only available at the final step")
	ErrSubmitInFlight = errors.New("a submission is already in flight")
	ErrStepOutOfRange = errors.New("step out of range")
	ErrGuardNotMet    = errors.New("step validation failed")
	ErrMediaRequired  = errors.New("at least one staged media item is required")
	ErrForwardBlocked = errors.New("cannot skip past an unvalidated step")
)

// MediaPipeline is the slice of the upload orchestrator the wizard drives
// at submit time.
type MediaPipeline interface {
	UploadAll(ctx context.Context) ([]media.UploadResult, error)
	StagedCount() int
	Clear(ctx context.Context)
}

// ListingWriter submits the finished draft to the backend.
type ListingWriter interface {
	CreateCoffee(ctx context.Context, listing Listing) (Listing, error)
	UpdateCoffee(ctx context.Context, listing Listing) (Listing, error)
}

// DraftPatch merges form fields into the in-progress draft.
type DraftPatch struct {
	Name          *string
	Description   *string
	Origin        *string
	RoastLevel    *RoastLevel
	Price         *float64
	Currency      *string
	Weight        *float64
	WeightUnit    *WeightUnit
	IsAvailable   *bool
	StockQuantity *int
	Seller        *Seller
}

// Wizard is the linear five-step machine that assembles a ListingDraft
// and submits it. Forward progress requires the current step's guard;
// submit requires every guard, in order, plus no submission in flight.
type Wizard struct {
	pipeline MediaPipeline
	writer   ListingWriter
	Picker   *Picker

	mu       sync.Mutex
	step     Step
	draft    Listing
	inFlight bool
}

func NewWizard(pipeline MediaPipeline, writer ListingWriter, picker *Picker, seller Seller) *Wizard {
	return &Wizard{
		pipeline: pipeline,
		writer:   writer,
		Picker:   picker,
		step:     StepBasicInfo,
		draft:    newDraft(seller),
	}
}

func newDraft(seller Seller) Listing {
	return Listing{
		RoastLevel:  RoastMedium,
		Currency:    "BRL",
		WeightUnit:  WeightGrams,
		IsAvailable: true,
		Seller:      seller,
	}
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Draft() Listing {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotDraft()
}

// snapshotDraft returns the draft with current category selection merged.
// Caller holds the lock.
func (w *Wizard) snapshotDraft() Listing {
	draft := w.draft
	if w.Picker != nil {
		draft.Categories = w.Picker.Selected()
	}
	return draft
}

// Merge applies form input to the draft. Any step's fields may be edited
// at any time; guards are enforced on navigation, not on edits.
func (w *Wizard) Merge(patch DraftPatch) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if patch.Name != nil {
		w.draft.Name = *patch.Name
	}
	if patch.Description != nil {
		w.draft.Description = *patch.Description
	}
	if patch.Origin != nil {
		w.draft.Origin = *patch.Origin
	}
	if patch.RoastLevel != nil && ValidRoastLevel(*patch.RoastLevel) {
		w.draft.RoastLevel = *patch.RoastLevel
	}
	if patch.Price != nil {
		w.draft.Price = *patch.Price
	}
	if patch.Currency != nil {
		w.draft.Currency = *patch.Currency
	}
	if patch.Weight != nil {
		w.draft.Weight = *patch.Weight
	}
	if patch.WeightUnit != nil {
		w.draft.WeightUnit = *patch.WeightUnit
	}
	if patch.IsAvailable != nil {
		w.draft.IsAvailable = *patch.IsAvailable
	}
	if patch.StockQuantity != nil {
		w.draft.StockQuantity = *patch.StockQuantity
	}
	if patch.Seller != nil {
		w.draft.Seller = *patch.Seller
	}
}

// SetExisting loads a listing into the draft for the edit flow.
func (w *Wizard) SetExisting(listing Listing) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft = listing
	w.step = StepBasicInfo
}

// CanAdvance reports whether the given step's guard passes against the
// current draft.
func (w *Wizard) CanAdvance(step Step) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.guard(step) == nil
}

// guard validates one step's slice of the draft. Caller holds the lock.
func (w *Wizard) guard(step Step) error {
	switch step {
	case StepBasicInfo:
		if w.draft.Name == "" || w.draft.Origin == "" {
			return fmt.Errorf("%w: name and origin are required", ErrGuardNotMet)
		}
	case StepPricing:
		if w.draft.Price <= 0 || w.draft.Weight <= 0 {
			return fmt.Errorf("%w: price and weight must be positive", ErrGuardNotMet)
		}
	case StepStock:
		if w.draft.StockQuantity < 0 {
			return fmt.Errorf("%w: stock quantity cannot be negative", ErrGuardNotMet)
		}
	case StepDescription:
		if w.draft.Description == "" {
			return fmt.Errorf("%w: description is required", ErrGuardNotMet)
		}
	case StepMedia:
		if w.pipeline.StagedCount() == 0 {
			return ErrMediaRequired
		}
	default:
		return ErrStepOutOfRange
	}
	return nil
}

// Next advances one step if the current step's guard passes.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step >= lastStep {
		return ErrStepOutOfRange
	}
	if err := w.guard(w.step); err != nil {
		return err
	}
	w.step++
	return nil
}

// Prev steps back; backward navigation has no guard.
func (w *Wizard) Prev() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step <= StepBasicInfo {
		return ErrStepOutOfRange
	}
	w.step--
	return nil
}

// Goto jumps to a step. Backward jumps are always allowed; forward jumps
// require every intervening step's guard, so submit stays unreachable
// without validating the whole flow in order.
func (w *Wizard) Goto(target Step) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if target < StepBasicInfo || target > lastStep {
		return ErrStepOutOfRange
	}
	if target <= w.step {
		w.step = target
		return nil
	}
	for step := w.step; step < target; step++ {
		if err := w.guard(step); err != nil {
			return fmt.Errorf("%w: step %d", ErrForwardBlocked, step)
		}
	}
	w.step = target
	return nil
}

// Submit uploads staged media, merges the results into the draft and sends
// it to the backend. Only valid at the final step; a second call while one
// is in flight is rejected. On failure the wizard stays at the final step
// so the user can retry; on success staged media is cleared and the draft
// reset.
func (w *Wizard) Submit(ctx context.Context) (Listing, error) {
	w.mu.Lock()
	if w.step != lastStep {
		w.mu.Unlock()
		return Listing{}, ErrNotAtFinalStep
	}
	if w.inFlight {
		w.mu.Unlock()
		return Listing{}, ErrSubmitInFlight
	}
	for step := StepBasicInfo; step <= lastStep; step++ {
		if err := w.guard(step); err != nil {
			w.mu.Unlock()
			return Listing{}, err
		}
	}
	w.inFlight = true
	draft := w.snapshotDraft()
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.inFlight = false
		w.mu.Unlock()
	}()

	results, err := w.pipeline.UploadAll(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("media upload: %w", err)
	}

	draft.Medias = make([]Media, 0, len(results))
	for _, r := range results {
		draft.Medias = append(draft.Medias, Media{
			ID:        r.ID,
			MediaURL:  r.PublicURL,
			MediaType: r.Kind,
		})
	}

	var submitted Listing
	if draft.ID == "" {
		submitted, err = w.writer.CreateCoffee(ctx, draft)
	} else {
		submitted, err = w.writer.UpdateCoffee(ctx, draft)
	}
	if err != nil {
		return Listing{}, fmt.Errorf("submit listing: %w", err)
	}

	w.pipeline.Clear(ctx)

	w.mu.Lock()
	seller := w.draft.Seller
	w.draft = newDraft(seller)
	w.step = StepBasicInfo
	w.mu.Unlock()
	if w.Picker != nil {
		for _, c := range w.Picker.Selected() {
			w.Picker.Remove(c.ID)
		}
	}

	return submitted, nil
}
