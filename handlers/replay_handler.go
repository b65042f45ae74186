package handlers

import (
	"net/http"

	"github.com/Dosada05/bgmi-arena/services"
)

type ReplayHandler struct {
	replayService services.ReplayService
}

func NewReplayHandler(rs services.ReplayService) *ReplayHandler {
	return &ReplayHandler{replayService: rs}
}

// ListReplays godoc
// @Summary Повторы матчей
// @Tags replays
// @Produce json
// @Param match_id query string false "Match ID"
// @Success 200 {object} map[string]interface{} "replays"
// @Failure 400 {object} map[string]string
// @Router /replays [get]
func (h *ReplayHandler) ListReplays(w http.ResponseWriter, r *http.Request) {
	matchID, err := readOptionalUUIDQuery(r, "match_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	replays, err := h.replayService.ListReplays(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"replays": replays}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateReplay godoc
// @Summary Добавить повтор матча
// @Tags replays
// @Accept json
// @Produce json
// @Param body body services.CreateReplayInput true "Метаданные повтора"
// @Success 201 {object} map[string]interface{} "replay"
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /replays [post]
func (h *ReplayHandler) CreateReplay(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.CreateReplayInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	replay, err := h.replayService.CreateReplay(r.Context(), user, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"replay": replay}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
