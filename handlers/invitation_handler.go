package handlers

import (
	"net/http"

	"github.com/Dosada05/bgmi-arena/services"
)

type InvitationHandler struct {
	invitationService services.InvitationService
}

func NewInvitationHandler(is services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: is}
}

// CreateInvitation godoc
// @Summary Пригласить игрока в команду
// @Tags invitations
// @Accept json
// @Produce json
// @Param body body services.CreateInvitationInput true "team_id и user_id"
// @Success 201 {object} map[string]interface{} "invitation"
// @Failure 403 {object} map[string]string "Только капитан"
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Уже приглашен / уже в команде / состав полон"
// @Security BearerAuth
// @Router /team-invitations [post]
func (h *InvitationHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.CreateInvitationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	invitation, err := h.invitationService.CreateInvitation(r.Context(), user, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"invitation": invitation}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RespondToInvitation godoc
// @Summary Принять или отклонить приглашение
// @Tags invitations
// @Accept json
// @Produce json
// @Param invitationID path string true "Invitation ID"
// @Param body body services.RespondInvitationInput true "accepted или declined"
// @Success 200 {object} map[string]interface{} "invitation"
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Приглашение уже обработано / состав полон"
// @Security BearerAuth
// @Router /team-invitations/{invitationID} [patch]
func (h *InvitationHandler) RespondToInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	invitationID, err := getUUIDFromURL(r, "invitationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.RespondInvitationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	invitation, err := h.invitationService.RespondToInvitation(r.Context(), user, invitationID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"invitation": invitation}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
