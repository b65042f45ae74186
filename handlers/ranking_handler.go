package handlers

import (
	"net/http"

	"github.com/Dosada05/bgmi-arena/services"
)

type RankingHandler struct {
	rankingService services.RankingService
}

func NewRankingHandler(s services.RankingService) *RankingHandler {
	return &RankingHandler{rankingService: s}
}

// TopPlayers godoc
// @Summary Рейтинг игроков
// @Tags rankings
// @Description Топ-50 по очкам, затем по выигранным турнирам.
// @Produce json
// @Success 200 {object} map[string]interface{} "players"
// @Router /rankings/players [get]
func (h *RankingHandler) TopPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.rankingService.TopPlayers(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"players": players}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// TopTeams godoc
// @Summary Рейтинг команд
// @Tags rankings
// @Description Топ-50 по победам, затем по заработку.
// @Produce json
// @Success 200 {object} map[string]interface{} "teams"
// @Router /rankings/teams [get]
func (h *RankingHandler) TopTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.rankingService.TopTeams(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Stats godoc
// @Summary Статистика платформы
// @Tags rankings
// @Produce json
// @Success 200 {object} models.TournamentStats
// @Router /stats [get]
func (h *RankingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.rankingService.GetStats(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, stats, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
