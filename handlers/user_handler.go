package handlers

import (
	"net/http"

	"github.com/Dosada05/bgmi-arena/services"
)

type UserHandler struct {
	teamService       services.TeamService
	invitationService services.InvitationService
}

func NewUserHandler(ts services.TeamService, is services.InvitationService) *UserHandler {
	return &UserHandler{
		teamService:       ts,
		invitationService: is,
	}
}

// GetMe godoc
// @Summary Текущий пользователь
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{} "user"
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /auth/user [get]
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetMyTeam godoc
// @Summary Команда текущего пользователя
// @Tags users
// @Description Возвращает team: null, если пользователь не состоит в команде.
// @Produce json
// @Success 200 {object} map[string]interface{} "team"
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /user/team [get]
func (h *UserHandler) GetMyTeam(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	team, err := h.teamService.GetUserTeam(r.Context(), user.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMyInvitations godoc
// @Summary Входящие приглашения в команды
// @Tags invitations
// @Produce json
// @Success 200 {object} map[string]interface{} "invitations"
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /user/invitations [get]
func (h *UserHandler) ListMyInvitations(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	invitations, err := h.invitationService.ListForUser(r.Context(), user.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"invitations": invitations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
