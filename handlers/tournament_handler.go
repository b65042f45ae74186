package handlers

import (
	"net/http"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/Dosada05/bgmi-arena/services"
	"github.com/google/uuid"
)

type TournamentHandler struct {
	tournamentService   services.TournamentService
	registrationService services.RegistrationService
	matchService        services.MatchService
	rankingService      services.RankingService
}

func NewTournamentHandler(
	ts services.TournamentService,
	rs services.RegistrationService,
	ms services.MatchService,
	ranking services.RankingService,
) *TournamentHandler {
	return &TournamentHandler{
		tournamentService:   ts,
		registrationService: rs,
		matchService:        ms,
		rankingService:      ranking,
	}
}

// ListHandler godoc
// @Summary Список турниров
// @Tags tournaments
// @Produce json
// @Param status query string false "open, live или completed"
// @Param limit query int false "Максимум записей (1-100)"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]interface{} "tournaments"
// @Failure 400 {object} map[string]string
// @Router /tournaments [get]
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := readPagination(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	filter := services.ListTournamentsFilter{Limit: limit, Offset: offset}
	if status := r.URL.Query().Get("status"); status != "" {
		s := models.TournamentStatus(status)
		filter.Status = &s
	}

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler godoc
// @Summary Турнир с регистрациями и матчами
// @Tags tournaments
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{} "tournament"
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID} [get]
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateHandler godoc
// @Summary Создать турнир
// @Tags tournaments
// @Accept json
// @Produce json
// @Param body body services.CreateTournamentInput true "Данные турнира"
// @Success 201 {object} map[string]interface{} "tournament"
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tournaments [post]
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), user, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler godoc
// @Summary Обновить турнир
// @Description Завершение турнира (live -> completed) распределяет призовой фонд.
// @Tags tournaments
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param body body services.UpdateTournamentInput true "Изменяемые поля"
// @Success 200 {object} map[string]interface{} "tournament"
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tournaments/{tournamentID} [patch]
func (h *TournamentHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.UpdateTournament(r.Context(), user, id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler godoc
// @Summary Удалить турнир
// @Tags tournaments
// @Param tournamentID path string true "Tournament ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID} [delete]
func (h *TournamentHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.DeleteTournament(r.Context(), user, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadBannerHandler godoc
// @Summary Загрузить баннер турнира
// @Tags tournaments
// @Accept multipart/form-data
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param file formData file true "Изображение (jpeg, png, webp, gif)"
// @Success 200 {object} map[string]interface{} "tournament"
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 503 {object} map[string]string "Загрузка файлов не настроена"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/banner [post]
func (h *TournamentHandler) UploadBannerHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	file, contentType, err := readUploadedFile(w, r, "file")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	tournament, err := h.tournamentService.UploadBanner(r.Context(), user, id, file, contentType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListRegistrationsHandler godoc
// @Summary Зарегистрированные команды турнира
// @Tags registrations
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{} "registrations"
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/registrations [get]
func (h *TournamentHandler) ListRegistrationsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	registrations, err := h.registrationService.ListRegistrations(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RegisterTeamHandler godoc
// @Summary Зарегистрировать команду в турнире
// @Tags registrations
// @Description Капитан регистрирует свою команду. Регистрация возможна, пока турнир открыт и есть свободные слоты.
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param body body object true "team_id"
// @Success 201 {object} map[string]interface{} "registration"
// @Failure 403 {object} map[string]string "Только капитан"
// @Failure 404 {object} map[string]string "Турнир или команда не найдены"
// @Failure 409 {object} map[string]string "Регистрация закрыта / нет слотов / уже зарегистрирована"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/register [post]
func (h *TournamentHandler) RegisterTeamHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		TeamID uuid.UUID `json:"team_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.TeamID == uuid.Nil {
		failedValidationResponse(w, r, map[string]string{"team_id": "is required"})
		return
	}

	registration, err := h.registrationService.RegisterTeam(r.Context(), tournamentID, input.TeamID, user.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// WithdrawTeamHandler godoc
// @Summary Снять команду с турнира
// @Tags registrations
// @Param tournamentID path string true "Tournament ID"
// @Param teamID path string true "Team ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Турнир уже не открыт"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/registrations/{teamID} [delete]
func (h *TournamentHandler) WithdrawTeamHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.registrationService.WithdrawTeam(r.Context(), tournamentID, teamID, user); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMatchesHandler godoc
// @Summary Матчи турнира
// @Tags matches
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{} "matches"
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/matches [get]
func (h *TournamentHandler) ListMatchesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListMatches(r.Context(), services.ListMatchesFilter{TournamentID: &id})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StandingsHandler godoc
// @Summary Таблица турнира
// @Tags tournaments
// @Description Сумма очков и убийств команд по завершенным матчам.
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{} "standings"
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/standings [get]
func (h *TournamentHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.rankingService.TournamentStandings(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
