package backend

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"roastery/internal/response"
)

// UserHandler proxies profile reads and updates to the external user
// service.
type UserHandler struct {
	client *Client
	log    zerolog.Logger
}

func NewUserHandler(client *Client, log zerolog.Logger) *UserHandler {
	return &UserHandler{client: client, log: log}
}

// HandleGet handles GET /v1/users/{id}.
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "missing user id", "")
		return
	}

	user, err := h.client.GetUser(r.Context(), id)
	if err != nil {
		h.writeUpstreamError(w, err, "failed to fetch user")
		return
	}
	response.JSON(w, http.StatusOK, user)
}

// HandleUpdate handles PUT /v1/users/{id}.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "missing user id", "")
		return
	}

	var user User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "invalid request body", "")
		return
	}
	user.ID = id

	updated, err := h.client.UpdateUser(r.Context(), user)
	if err != nil {
		h.writeUpstreamError(w, err, "failed to update user")
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *UserHandler) writeUpstreamError(w http.ResponseWriter, err error, message string) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "user not found", "")
		return
	}
	h.log.Error().Err(err).Msg(message)
	response.Error(w, http.StatusBadGateway, response.CodeUpstreamFailed, message, "")
}
