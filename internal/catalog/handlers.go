package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"roastery/internal/events"
	"roastery/internal/media"
	"roastery/internal/response"
)

// Backend is everything the catalog surface needs from the external
// GraphQL services. Satisfied by *backend.Client.
type Backend interface {
	ListingWriter
	CategorySearcher
	ListCoffees(ctx context.Context) (Page, error)
	ListCoffeesByUser(ctx context.Context, userID string, limit int, nextToken string) (Page, error)
	ListCoffeesByRating(ctx context.Context, limit int, minRating float64, nextToken string) (Page, error)
	ListAllCategories(ctx context.Context) ([]Category, error)
}

// sessionPipeline adapts one staging session to the wizard's view of the
// upload orchestrator.
type sessionPipeline struct {
	session *media.Session
}

func (p sessionPipeline) UploadAll(ctx context.Context) ([]media.UploadResult, error) {
	return p.session.Uploader.UploadAll(ctx)
}

func (p sessionPipeline) StagedCount() int { return p.session.Store.Len() }

func (p sessionPipeline) Clear(ctx context.Context) { p.session.Store.Clear(ctx) }

// Handler exposes listings browsing and the creation wizard over HTTP.
// Wizards are per session, like staging stores.
type Handler struct {
	backend  Backend
	manager  *media.Manager
	producer *events.Producer
	log      zerolog.Logger

	mu      sync.Mutex
	wizards map[string]*Wizard
}

func NewHandler(backend Backend, manager *media.Manager, producer *events.Producer, log zerolog.Logger) *Handler {
	return &Handler{
		backend:  backend,
		manager:  manager,
		producer: producer,
		log:      log,
		wizards:  make(map[string]*Wizard),
	}
}

func (h *Handler) wizard(r *http.Request) *Wizard {
	key := media.SessionKey(r)

	h.mu.Lock()
	defer h.mu.Unlock()

	if w, ok := h.wizards[key]; ok {
		return w
	}
	pipeline := sessionPipeline{session: h.manager.Session(key)}
	picker := NewPicker(h.backend, nil)
	w := NewWizard(pipeline, h.backend, picker, Seller{})
	h.wizards[key] = w
	return w
}

// HandleListings handles GET /v1/listings. Query params narrow the page
// client-side (search, roastLevel, origin); seller and minRating select
// the upstream operation; nextToken pages through.
func (h *Handler) HandleListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	nextToken := q.Get("nextToken")

	var page Page
	var err error
	switch {
	case q.Get("seller") != "":
		page, err = h.backend.ListCoffeesByUser(r.Context(), q.Get("seller"), limit, nextToken)
	case q.Get("minRating") != "":
		minRating, parseErr := strconv.ParseFloat(q.Get("minRating"), 64)
		if parseErr != nil {
			response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "invalid minRating", "")
			return
		}
		page, err = h.backend.ListCoffeesByRating(r.Context(), limit, minRating, nextToken)
	default:
		page, err = h.backend.ListCoffees(r.Context())
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list coffees")
		response.Error(w, http.StatusBadGateway, response.CodeUpstreamFailed, "failed to fetch listings", "")
		return
	}

	filter := Filter{
		Search:     q.Get("search"),
		RoastLevel: RoastLevel(q.Get("roastLevel")),
		Origin:     q.Get("origin"),
	}
	page.Items = filter.Apply(page.Items)
	response.JSON(w, http.StatusOK, page)
}

// HandleCategories handles GET /v1/categories?name=. Without a name the
// whole catalog is returned; debouncing of keystrokes is the client's
// concern on this surface.
func (h *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	var categories []Category
	var err error
	if name == "" {
		categories, err = h.backend.ListAllCategories(r.Context())
	} else {
		categories, err = h.backend.ListCategoriesByName(r.Context(), name)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list categories")
		response.Error(w, http.StatusBadGateway, response.CodeUpstreamFailed, "failed to fetch categories", "")
		return
	}
	if categories == nil {
		categories = []Category{}
	}
	response.JSON(w, http.StatusOK, map[string]any{"categories": categories})
}

type wizardState struct {
	Step       Step       `json:"step"`
	CanAdvance bool       `json:"canAdvance"`
	Draft      Listing    `json:"draft"`
	Categories []Category `json:"categories"`
}

func (h *Handler) state(wizard *Wizard) wizardState {
	step := wizard.Step()
	return wizardState{
		Step:       step,
		CanAdvance: wizard.CanAdvance(step),
		Draft:      wizard.Draft(),
		Categories: wizard.Picker.Selected(),
	}
}

// HandleWizardState handles GET /v1/listings/wizard.
func (h *Handler) HandleWizardState(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.state(h.wizard(r)))
}

// HandleWizardDraft handles PUT /v1/listings/wizard/draft: merges the
// provided fields into the draft.
func (h *Handler) HandleWizardDraft(w http.ResponseWriter, r *http.Request) {
	var patch DraftPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "invalid request body", "")
		return
	}
	wizard := h.wizard(r)
	wizard.Merge(patch)
	response.JSON(w, http.StatusOK, h.state(wizard))
}

// HandleWizardNext handles POST /v1/listings/wizard/next.
func (h *Handler) HandleWizardNext(w http.ResponseWriter, r *http.Request) {
	wizard := h.wizard(r)
	if err := wizard.Next(); err != nil {
		h.writeWizardError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, h.state(wizard))
}

// HandleWizardPrev handles POST /v1/listings/wizard/prev.
func (h *Handler) HandleWizardPrev(w http.ResponseWriter, r *http.Request) {
	wizard := h.wizard(r)
	if err := wizard.Prev(); err != nil {
		h.writeWizardError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, h.state(wizard))
}

// HandleWizardGoto handles POST /v1/listings/wizard/goto with {"step": n}.
func (h *Handler) HandleWizardGoto(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Step Step `json:"step"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "invalid request body", "")
		return
	}
	wizard := h.wizard(r)
	if err := wizard.Goto(req.Step); err != nil {
		h.writeWizardError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, h.state(wizard))
}

// HandleWizardSelectCategory handles POST /v1/listings/wizard/categories.
func (h *Handler) HandleWizardSelectCategory(w http.ResponseWriter, r *http.Request) {
	var category Category
	if err := json.NewDecoder(r.Body).Decode(&category); err != nil || category.ID == "" {
		response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "a category with an id is required", "")
		return
	}
	wizard := h.wizard(r)
	added := wizard.Picker.Select(category)
	response.JSON(w, http.StatusOK, map[string]any{
		"added":    added,
		"selected": wizard.Picker.Selected(),
	})
}

// HandleWizardRemoveCategory handles DELETE /v1/listings/wizard/categories/{id}.
func (h *Handler) HandleWizardRemoveCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "missing category id", "")
		return
	}
	wizard := h.wizard(r)
	wizard.Picker.Remove(id)
	response.JSON(w, http.StatusOK, map[string]any{"selected": wizard.Picker.Selected()})
}

// HandleWizardSubmit handles POST /v1/listings/wizard/submit.
func (h *Handler) HandleWizardSubmit(w http.ResponseWriter, r *http.Request) {
	wizard := h.wizard(r)
	mediaCount := wizard.pipeline.StagedCount()

	listing, err := wizard.Submit(r.Context())
	if err != nil {
		h.writeWizardError(w, err)
		return
	}

	h.producer.Listing(r.Context(), listing.ID, listing.Seller.ID, mediaCount)
	response.JSON(w, http.StatusCreated, listing)
}

func (h *Handler) writeWizardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSubmitInFlight):
		response.Error(w, http.StatusConflict, response.CodeConflict, err.Error(), "")
	case errors.Is(err, ErrNotAtFinalStep), errors.Is(err, ErrStepOutOfRange), errors.Is(err, ErrForwardBlocked):
		response.Error(w, http.StatusConflict, response.CodeConflict, err.Error(), "")
	case errors.Is(err, ErrGuardNotMet), errors.Is(err, ErrMediaRequired):
		response.Error(w, http.StatusUnprocessableEntity, response.CodeBadRequest, err.Error(), "")
	default:
		h.log.Error().Err(err).Msg("wizard submit failed")
		response.Error(w, http.StatusBadGateway, response.CodeUpstreamFailed, err.Error(),
			"the wizard stays at the final step; fix failed items and submit again")
	}
}
