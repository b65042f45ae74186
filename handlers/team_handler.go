package handlers

import (
	"net/http"

	"github.com/Dosada05/bgmi-arena/services"
)

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(ts services.TeamService) *TeamHandler {
	return &TeamHandler{
		teamService: ts,
	}
}

// ListTeams godoc
// @Summary Список команд
// @Tags teams
// @Produce json
// @Param limit query int false "Максимум записей (1-100)"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]interface{} "teams"
// @Router /teams [get]
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := readPagination(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	teams, err := h.teamService.ListTeams(r.Context(), limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateTeam godoc
// @Summary Создать команду
// @Tags teams
// @Description Автор становится капитаном команды.
// @Accept json
// @Produce json
// @Param body body services.CreateTeamInput true "Название и тег"
// @Success 201 {object} map[string]interface{} "team"
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /teams [post]
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.CreateTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.CreateTeam(r.Context(), user, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetTeamByID godoc
// @Summary Команда с составом
// @Tags teams
// @Produce json
// @Param teamID path string true "Team ID"
// @Success 200 {object} map[string]interface{} "team"
// @Failure 404 {object} map[string]string
// @Router /teams/{teamID} [get]
func (h *TeamHandler) GetTeamByID(w http.ResponseWriter, r *http.Request) {
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.GetTeam(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteTeam godoc
// @Summary Удалить команду
// @Tags teams
// @Param teamID path string true "Team ID"
// @Success 204
// @Failure 403 {object} map[string]string "Только капитан"
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Команда играет в live-турнире или уже сыграла матчи"
// @Security BearerAuth
// @Router /teams/{teamID} [delete]
func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.teamService.DeleteTeam(r.Context(), user, teamID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTeamMembers godoc
// @Summary Состав команды
// @Tags teams
// @Produce json
// @Param teamID path string true "Team ID"
// @Success 200 {object} map[string]interface{} "members"
// @Failure 404 {object} map[string]string
// @Router /teams/{teamID}/members [get]
func (h *TeamHandler) ListTeamMembers(w http.ResponseWriter, r *http.Request) {
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	members, err := h.teamService.ListMembers(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"members": members}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RemoveMember godoc
// @Summary Исключить игрока или выйти из команды
// @Tags teams
// @Param teamID path string true "Team ID"
// @Param userID path string true "User ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /teams/{teamID}/members/{userID} [delete]
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := getUUIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.teamService.RemoveMember(r.Context(), user, teamID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadTeamLogo godoc
// @Summary Загрузить логотип команды
// @Tags teams
// @Accept multipart/form-data
// @Produce json
// @Param teamID path string true "Team ID"
// @Param file formData file true "Изображение (jpeg, png, webp, gif)"
// @Success 200 {object} map[string]interface{} "team"
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Security BearerAuth
// @Router /teams/{teamID}/logo [post]
func (h *TeamHandler) UploadTeamLogo(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	teamID, err := getUUIDFromURL(r, "teamID")
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

	team, err := h.teamService.UploadLogo(r.Context(), user, teamID, file, contentType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
