package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roastery/internal/media"
)

// fakePipeline implements MediaPipeline for testing
type fakePipeline struct {
	uploadAllFunc func(ctx context.Context) ([]media.UploadResult, error)
	stagedCount   int
	clearCalls    int
}

func (p *fakePipeline) UploadAll(ctx context.Context) ([]media.UploadResult, error) {
	if p.uploadAllFunc != nil {
		return p.uploadAllFunc(ctx)
	}
	return []media.UploadResult{
		{ID: "m1", Kind: media.Photo, PublicURL: "https://cdn.example.com/coffees/m1.jpg", StorageKey: "coffees/m1.jpg"},
	}, nil
}

func (p *fakePipeline) StagedCount() int { return p.stagedCount }

func (p *fakePipeline) Clear(ctx context.Context) { p.clearCalls++ }

// fakeWriter implements ListingWriter for testing
type fakeWriter struct {
	createFunc func(ctx context.Context, listing Listing) (Listing, error)
	updateFunc func(ctx context.Context, listing Listing) (Listing, error)

	created []Listing
	updated []Listing
}

func (w *fakeWriter) CreateCoffee(ctx context.Context, listing Listing) (Listing, error) {
	w.created = append(w.created, listing)
	if w.createFunc != nil {
		return w.createFunc(ctx, listing)
	}
	listing.ID = "coffee-1"
	return listing, nil
}

func (w *fakeWriter) UpdateCoffee(ctx context.Context, listing Listing) (Listing, error) {
	w.updated = append(w.updated, listing)
	if w.updateFunc != nil {
		return w.updateFunc(ctx, listing)
	}
	return listing, nil
}

type fakeSearcher struct {
	results []Category
	err     error
	terms   []string
}

func (s *fakeSearcher) ListCategoriesByName(ctx context.Context, name string) ([]Category, error) {
	s.terms = append(s.terms, name)
	return s.results, s.err
}

func testSeller() Seller {
	return Seller{ID: "seller-1", Name: "Ana", PhotoURL: "https://example.com/ana.jpg"}
}

func newTestWizard(pipeline *fakePipeline, writer *fakeWriter) *Wizard {
	picker := NewPicker(&fakeSearcher{}, nil)
	return NewWizard(pipeline, writer, picker, testSeller())
}

// fillDraft merges enough fields to satisfy every form guard.
func fillDraft(w *Wizard) {
	name := "Yirgacheffe"
	origin := "Ethiopia"
	description := "Floral, citrus, light body."
	price := 42.5
	weight := 250.0
	stock := 12
	w.Merge(DraftPatch{
		Name:          &name,
		Origin:        &origin,
		Description:   &description,
		Price:         &price,
		Weight:        &weight,
		StockQuantity: &stock,
	})
}

func advanceToFinal(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.Goto(StepMedia))
}

func TestWizard_StartsWithDefaults(t *testing.T) {
	w := newTestWizard(&fakePipeline{}, &fakeWriter{})

	assert.Equal(t, StepBasicInfo, w.Step())
	draft := w.Draft()
	assert.Equal(t, RoastMedium, draft.RoastLevel)
	assert.Equal(t, "BRL", draft.Currency)
	assert.Equal(t, WeightGrams, draft.WeightUnit)
	assert.True(t, draft.IsAvailable)
	assert.Equal(t, testSeller(), draft.Seller)
}

func TestWizard_NextBlockedByGuard(t *testing.T) {
	w := newTestWizard(&fakePipeline{}, &fakeWriter{})

	err := w.Next()
	require.ErrorIs(t, err, ErrGuardNotMet)
	assert.Equal(t, StepBasicInfo, w.Step())

	name := "Yirgacheffe"
	origin := "Ethiopia"
	w.Merge(DraftPatch{Name: &name, Origin: &origin})

	require.NoError(t, w.Next())
	assert.Equal(t, StepPricing, w.Step())
}

func TestWizard_GuardsPerStep(t *testing.T) {
	tests := []struct {
		name  string
		step  Step
		setup func(w *Wizard, p *fakePipeline)
		pass  bool
	}{
		{
			name: "basic info incomplete",
			step: StepBasicInfo,
			setup: func(w *Wizard, p *fakePipeline) {
				name := "Only a name"
				w.Merge(DraftPatch{Name: &name})
			},
			pass: false,
		},
		{
			name: "pricing rejects zero price",
			step: StepPricing,
			setup: func(w *Wizard, p *fakePipeline) {
				weight := 250.0
				w.Merge(DraftPatch{Weight: &weight})
			},
			pass: false,
		},
		{
			name: "stock rejects negative quantity",
			step: StepStock,
			setup: func(w *Wizard, p *fakePipeline) {
				stock := -1
				w.Merge(DraftPatch{StockQuantity: &stock})
			},
			pass: false,
		},
		{
			name: "zero stock is valid",
			step: StepStock,
			setup: func(w *Wizard, p *fakePipeline) {
				stock := 0
				w.Merge(DraftPatch{StockQuantity: &stock})
			},
			pass: true,
		},
		{
			name:  "description required",
			step:  StepDescription,
			setup: func(w *Wizard, p *fakePipeline) {},
			pass:  false,
		},
		{
			name:  "media step requires staged items",
			step:  StepMedia,
			setup: func(w *Wizard, p *fakePipeline) { p.stagedCount = 0 },
			pass:  false,
		},
		{
			name:  "media step passes with staged items",
			step:  StepMedia,
			setup: func(w *Wizard, p *fakePipeline) { p.stagedCount = 2 },
			pass:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &fakePipeline{}
			w := newTestWizard(pipeline, &fakeWriter{})
			tt.setup(w, pipeline)
			assert.Equal(t, tt.pass, w.CanAdvance(tt.step))
		})
	}
}

func TestWizard_GotoForwardBlocked(t *testing.T) {
	pipeline := &fakePipeline{stagedCount: 1}
	w := newTestWizard(pipeline, &fakeWriter{})

	err := w.Goto(StepMedia)
	require.ErrorIs(t, err, ErrForwardBlocked)
	assert.Equal(t, StepBasicInfo, w.Step())

	fillDraft(w)
	require.NoError(t, w.Goto(StepMedia))
	assert.Equal(t, StepMedia, w.Step())

	// Backward jumps never need a guard.
	require.NoError(t, w.Goto(StepBasicInfo))
	assert.Equal(t, StepBasicInfo, w.Step())
}

func TestWizard_GotoOutOfRange(t *testing.T) {
	w := newTestWizard(&fakePipeline{}, &fakeWriter{})

	require.ErrorIs(t, w.Goto(0), ErrStepOutOfRange)
	require.ErrorIs(t, w.Goto(StepMedia+1), ErrStepOutOfRange)
}

func TestWizard_PrevAtFirstStep(t *testing.T) {
	w := newTestWizard(&fakePipeline{}, &fakeWriter{})
	require.ErrorIs(t, w.Prev(), ErrStepOutOfRange)
}

func TestWizard_Merge_InvalidRoastIgnored(t *testing.T) {
	w := newTestWizard(&fakePipeline{}, &fakeWriter{})

	bad := RoastLevel("burnt")
	w.Merge(DraftPatch{RoastLevel: &bad})
	assert.Equal(t, RoastMedium, w.Draft().RoastLevel)

	dark := RoastDark
	w.Merge(DraftPatch{RoastLevel: &dark})
	assert.Equal(t, RoastDark, w.Draft().RoastLevel)
}

func TestWizard_SubmitOnlyAtFinalStep(t *testing.T) {
	w := newTestWizard(&fakePipeline{stagedCount: 1}, &fakeWriter{})

	_, err := w.Submit(context.Background())
	require.ErrorIs(t, err, ErrNotAtFinalStep)
}

func TestWizard_SubmitRequiresMedia(t *testing.T) {
	pipeline := &fakePipeline{stagedCount: 1}
	w := newTestWizard(pipeline, &fakeWriter{})
	fillDraft(w)
	advanceToFinal(t, w)

	pipeline.stagedCount = 0
	_, err := w.Submit(context.Background())
	require.ErrorIs(t, err, ErrMediaRequired)
}

func TestWizard_Submit_Create(t *testing.T) {
	pipeline := &fakePipeline{stagedCount: 1}
	writer := &fakeWriter{}
	w := newTestWizard(pipeline, writer)
	fillDraft(w)
	w.Picker.Select(Category{ID: "c1", Name: "Single Origin"})
	advanceToFinal(t, w)

	submitted, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "coffee-1", submitted.ID)

	require.Len(t, writer.created, 1)
	sent := writer.created[0]
	assert.Equal(t, "Yirgacheffe", sent.Name)
	assert.Equal(t, testSeller(), sent.Seller)
	require.Len(t, sent.Medias, 1)
	assert.Equal(t, "https://cdn.example.com/coffees/m1.jpg", sent.Medias[0].MediaURL)
	assert.Equal(t, media.Photo, sent.Medias[0].MediaType)
	require.Len(t, sent.Categories, 1)
	assert.Equal(t, "c1", sent.Categories[0].ID)

	// Success resets the flow.
	assert.Equal(t, 1, pipeline.clearCalls)
	assert.Equal(t, StepBasicInfo, w.Step())
	assert.Empty(t, w.Draft().Name)
	assert.Empty(t, w.Picker.Selected())
	assert.Equal(t, testSeller(), w.Draft().Seller)
}

func TestWizard_Submit_UpdateWhenDraftHasID(t *testing.T) {
	pipeline := &fakePipeline{stagedCount: 1}
	writer := &fakeWriter{}
	w := newTestWizard(pipeline, writer)

	existing := Listing{
		ID:            "coffee-7",
		Name:          "Bourbon",
		Origin:        "Brazil",
		Description:   "Chocolate and nuts.",
		RoastLevel:    RoastDark,
		Price:         38,
		Currency:      "BRL",
		Weight:        500,
		WeightUnit:    WeightGrams,
		IsAvailable:   true,
		StockQuantity: 3,
		Seller:        testSeller(),
	}
	w.SetExisting(existing)
	advanceToFinal(t, w)

	_, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Empty(t, writer.created)
	require.Len(t, writer.updated, 1)
	assert.Equal(t, "coffee-7", writer.updated[0].ID)
}

func TestWizard_Submit_UploadFailureKeepsState(t *testing.T) {
	pipeline := &fakePipeline{
		stagedCount: 1,
		uploadAllFunc: func(ctx context.Context) ([]media.UploadResult, error) {
			return nil, errors.New("storage unavailable")
		},
	}
	writer := &fakeWriter{}
	w := newTestWizard(pipeline, writer)
	fillDraft(w)
	advanceToFinal(t, w)

	_, err := w.Submit(context.Background())
	require.Error(t, err)
	assert.Empty(t, writer.created)
	assert.Equal(t, 0, pipeline.clearCalls)
	assert.Equal(t, StepMedia, w.Step())
	assert.Equal(t, "Yirgacheffe", w.Draft().Name)

	// The retry path goes straight through the same submit.
	pipeline.uploadAllFunc = nil
	_, err = w.Submit(context.Background())
	require.NoError(t, err)
}

func TestWizard_Submit_BackendFailureKeepsMedia(t *testing.T) {
	pipeline := &fakePipeline{stagedCount: 1}
	writer := &fakeWriter{
		createFunc: func(ctx context.Context, listing Listing) (Listing, error) {
			return Listing{}, errors.New("backend down")
		},
	}
	w := newTestWizard(pipeline, writer)
	fillDraft(w)
	advanceToFinal(t, w)

	_, err := w.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, pipeline.clearCalls)
	assert.Equal(t, StepMedia, w.Step())
}

func TestWizard_Submit_DoubleSubmitRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	pipeline := &fakePipeline{
		stagedCount: 1,
		uploadAllFunc: func(ctx context.Context) ([]media.UploadResult, error) {
			close(entered)
			<-release
			return []media.UploadResult{{ID: "m1", Kind: media.Photo, PublicURL: "u"}}, nil
		},
	}
	w := newTestWizard(pipeline, &fakeWriter{})
	fillDraft(w)
	advanceToFinal(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		done <- err
	}()

	<-entered
	_, err := w.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmitInFlight)

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("first submit never finished")
	}
}
