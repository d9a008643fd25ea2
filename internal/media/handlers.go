package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"roastery/internal/response"
)

// maxStageRequestBytes bounds one staging request; the largest single file
// the policies admit is a 100MB video.
const maxStageRequestBytes = 256 << 20

// Handler exposes the staging store and upload orchestrator over HTTP.
// Session affinity comes from the bearer token the auth middleware already
// validated.
type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// StagedView is the wire shape of one staged item. Raw bytes and preview
// payloads stay server-side; the client sees status and metadata.
type StagedView struct {
	ID              string  `json:"id"`
	FileName        string  `json:"fileName,omitempty"`
	Kind            Kind    `json:"mediaType"`
	Status          Status  `json:"status"`
	Progress        int     `json:"uploadProgress"`
	ErrorMessage    string  `json:"error,omitempty"`
	StorageKey      string  `json:"s3Key,omitempty"`
	PublicURL       string  `json:"mediaUrl,omitempty"`
	PreviewURL      string  `json:"preview,omitempty"`
	HasThumbnail    bool    `json:"hasThumbnail"`
	DurationSeconds float64 `json:"duration,omitempty"`
}

func toView(s Staged) StagedView {
	return StagedView{
		ID:              s.ID,
		FileName:        s.FileName,
		Kind:            s.Kind,
		Status:          s.Status,
		Progress:        s.Progress,
		ErrorMessage:    s.ErrorMessage,
		StorageKey:      s.StorageKey,
		PublicURL:       s.PublicURL,
		PreviewURL:      s.PreviewURL,
		HasThumbnail:    len(s.Thumbnail) > 0,
		DurationSeconds: s.DurationSeconds,
	}
}

func (h *Handler) session(r *http.Request) *Session {
	return h.manager.Session(SessionKey(r))
}

// SessionKey derives the staging-session identity from the request's
// credentials, matching what the auth middleware accepted.
func SessionKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return "anonymous"
}

// HandleStage handles POST /v1/media: a multipart form with one or more
// "file" parts. Valid files are staged; invalid ones are reported without
// blocking the rest.
func (h *Handler) HandleStage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxStageRequestBytes)
	reader, err := r.MultipartReader()
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "expected multipart form data", "")
		return
	}

	var files []FileInput
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "malformed multipart body", "")
			return
		}
		if part.FormName() != "file" {
			continue
		}
		data, err := io.ReadAll(part)
		if err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "failed to read file part", "")
			return
		}
		files = append(files, FileInput{
			Name:        part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	if len(files) == 0 {
		response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "no file parts in request", `send files as "file" form parts`)
		return
	}

	added, stageErrs := h.session(r).Store.Add(r.Context(), files)

	views := make([]StagedView, 0, len(added))
	for _, s := range added {
		views = append(views, toView(s))
	}
	rejected := make([]string, 0, len(stageErrs))
	for _, err := range stageErrs {
		rejected = append(rejected, err.Error())
	}

	status := http.StatusCreated
	if len(added) == 0 {
		status = http.StatusUnprocessableEntity
	}
	response.JSON(w, status, map[string]any{
		"staged":   views,
		"rejected": rejected,
	})
}

// HandleList handles GET /v1/media.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	items := h.session(r).Store.List()
	views := make([]StagedView, 0, len(items))
	for _, s := range items {
		views = append(views, toView(s))
	}
	response.JSON(w, http.StatusOK, map[string]any{"media": views})
}

// HandleRemove handles DELETE /v1/media/{id}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "missing media id", "")
		return
	}

	if err := h.session(r).Store.Remove(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Error(w, http.StatusNotFound, response.CodeNotFound, "staged media not found", "")
			return
		}
		response.Error(w, http.StatusInternalServerError, response.CodeInternal, "failed to remove media", "")
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "removed", "id": id})
}

// HandleUploadAll handles POST /v1/media/upload.
func (h *Handler) HandleUploadAll(w http.ResponseWriter, r *http.Request) {
	session := h.session(r)
	results, err := session.Uploader.UploadAll(r.Context())
	if err != nil {
		// One aggregate failure; the per-item error states are queryable
		// and retryable individually.
		response.Error(w, http.StatusBadGateway, response.CodeStorageDenied,
			fmt.Sprintf("batch upload failed: %v", err),
			"retry failed items via POST /v1/media/{id}/retry")
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"results": results})
}

// HandleRetry handles POST /v1/media/{id}/retry.
func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "missing media id", "")
		return
	}

	session := h.session(r)
	if ok := session.Uploader.Retry(r.Context(), id); !ok {
		response.Error(w, http.StatusBadGateway, response.CodeStorageDenied, "retry failed", "")
		return
	}

	item, err := session.Store.Get(id)
	if err != nil {
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "staged media not found", "")
		return
	}
	response.JSON(w, http.StatusOK, toView(item))
}

// HandleSeed handles PUT /v1/media: replaces the staging set with media
// already uploaded, for the edit-listing flow.
func (h *Handler) HandleSeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Media []struct {
			ID        string `json:"id"`
			MediaURL  string `json:"mediaUrl"`
			MediaType Kind   `json:"mediaType"`
		} `json:"media"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "invalid request body", "")
		return
	}

	existing := make([]ExistingMedia, 0, len(req.Media))
	for _, m := range req.Media {
		if m.MediaURL == "" {
			response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "mediaUrl is required", "")
			return
		}
		kind := m.MediaType
		if kind != Video {
			kind = Photo
		}
		existing = append(existing, ExistingMedia{ID: m.ID, URL: m.MediaURL, Kind: kind})
	}

	h.session(r).Store.SeedExisting(existing)
	response.JSON(w, http.StatusOK, map[string]int{"seeded": len(existing)})
}
