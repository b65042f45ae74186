package handlers

import (
	"net/http"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/Dosada05/bgmi-arena/services"
)

type MatchHandler struct {
	matchService services.MatchService
	chatService  services.ChatService
}

func NewMatchHandler(ms services.MatchService, cs services.ChatService) *MatchHandler {
	return &MatchHandler{
		matchService: ms,
		chatService:  cs,
	}
}

// ListMatches godoc
// @Summary Список матчей
// @Tags matches
// @Produce json
// @Param tournament_id query string false "Tournament ID"
// @Param status query string false "scheduled, live или completed"
// @Success 200 {object} map[string]interface{} "matches"
// @Failure 400 {object} map[string]string
// @Router /matches [get]
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := readOptionalUUIDQuery(r, "tournament_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	filter := services.ListMatchesFilter{TournamentID: tournamentID}
	if status := r.URL.Query().Get("status"); status != "" {
		s := models.MatchStatus(status)
		filter.Status = &s
	}

	matches, err := h.matchService.ListMatches(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetMatch godoc
// @Summary Матч
// @Tags matches
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} map[string]interface{} "match"
// @Failure 404 {object} map[string]string
// @Router /matches/{matchID} [get]
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateMatch godoc
// @Summary Создать матч
// @Tags matches
// @Accept json
// @Produce json
// @Param body body services.CreateMatchInput true "Данные матча"
// @Success 201 {object} map[string]interface{} "match"
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /matches [post]
func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.CreateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.CreateMatch(r.Context(), user, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateMatch godoc
// @Summary Обновить матч
// @Tags matches
// @Description Статус меняется только по цепочке scheduled -> live -> completed. Завершение матча расставляет места и начисляет очки.
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param body body services.UpdateMatchInput true "Изменяемые поля"
// @Success 200 {object} map[string]interface{} "match"
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Недопустимый переход статуса"
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /matches/{matchID} [patch]
func (h *MatchHandler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.UpdateMatch(r.Context(), user, matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteMatch godoc
// @Summary Удалить матч
// @Tags matches
// @Param matchID path string true "Match ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /matches/{matchID} [delete]
func (h *MatchHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.DeleteMatch(r.Context(), user, matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListResults godoc
// @Summary Таблица матча
// @Tags match-results
// @Description Живые команды по убийствам, затем выбывшие по месту.
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} map[string]interface{} "results"
// @Failure 404 {object} map[string]string
// @Router /matches/{matchID}/results [get]
func (h *MatchHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	results, err := h.matchService.ListMatchResults(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"results": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateResult godoc
// @Summary Добавить команду в матч
// @Tags match-results
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param body body services.CreateMatchResultInput true "team_id и kills"
// @Success 201 {object} map[string]interface{} "result"
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Матч уже начался, команда уже в матче или не зарегистрирована"
// @Security BearerAuth
// @Router /matches/{matchID}/results [post]
func (h *MatchHandler) CreateResult(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.CreateMatchResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.CreateMatchResult(r.Context(), user, matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateResult godoc
// @Summary Обновить результат команды
// @Tags match-results
// @Description status "eliminated" выбивает команду; повторное выбывание отклоняется.
// @Accept json
// @Produce json
// @Param resultID path string true "Match result ID"
// @Param body body services.UpdateMatchResultInput true "kills, status, position, eliminated_at"
// @Success 200 {object} map[string]interface{} "result"
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /match-results/{resultID} [patch]
func (h *MatchHandler) UpdateResult(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	resultID, err := getUUIDFromURL(r, "resultID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateMatchResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.UpdateMatchResult(r.Context(), user, resultID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListChat godoc
// @Summary Чат матча
// @Tags chat
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} map[string]interface{} "messages"
// @Failure 404 {object} map[string]string
// @Router /matches/{matchID}/chat [get]
func (h *MatchHandler) ListChat(w http.ResponseWriter, r *http.Request) {
	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	messages, err := h.chatService.ListMessages(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"messages": messages}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PostChat godoc
// @Summary Написать в чат матча
// @Tags chat
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param body body services.PostChatMessageInput true "Сообщение"
// @Success 201 {object} map[string]interface{} "message"
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /matches/{matchID}/chat [post]
func (h *MatchHandler) PostChat(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.PostChatMessageInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	message, err := h.chatService.PostMessage(r.Context(), user, matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"message": message}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
