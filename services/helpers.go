package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/Dosada05/bgmi-arena/storage"
	"github.com/shopspring/decimal"
)

// --- Переходы статусов ---

var (
	tournamentTransitions = map[models.TournamentStatus][]models.TournamentStatus{
		models.TournamentStatusOpen:      {models.TournamentStatusLive},
		models.TournamentStatusLive:      {models.TournamentStatusCompleted},
		models.TournamentStatusCompleted: {},
	}
	matchTransitions = map[models.MatchStatus][]models.MatchStatus{
		models.MatchStatusScheduled: {models.MatchStatusLive},
		models.MatchStatusLive:      {models.MatchStatusCompleted},
		models.MatchStatusCompleted: {},
	}
	invitationTransitions = map[models.InvitationStatus][]models.InvitationStatus{
		models.InvitationPending:  {models.InvitationAccepted, models.InvitationDeclined},
		models.InvitationAccepted: {},
		models.InvitationDeclined: {},
	}
)

func isValidStatusTransition[S comparable](allowed map[S][]S, current, next S) bool {
	if current == next {
		return true
	}
	for _, allowedNext := range allowed[current] {
		if next == allowedNext {
			return true
		}
	}
	return false
}

// --- Очки за матч ---

// placementPoints is the BGMI placement table; positions after 8th score nothing.
var placementPoints = map[int]int{1: 10, 2: 6, 3: 5, 4: 4, 5: 3, 6: 2, 7: 1, 8: 1}

const pointsPerKill = 1

func matchPoints(position, kills int) int {
	return placementPoints[position] + kills*pointsPerKill
}

// prizeShares split a tournament prize pool across the top three teams.
var prizeShares = []decimal.Decimal{
	decimal.NewFromFloat(0.5),
	decimal.NewFromFloat(0.3),
	decimal.NewFromFloat(0.2),
}

// splitPrizePool returns one payout per placed team (at most three). Shares of
// places nobody reached go to first place; rounding leftovers too.
func splitPrizePool(pool decimal.Decimal, placedTeams int) []decimal.Decimal {
	if placedTeams <= 0 || !pool.IsPositive() {
		return nil
	}
	n := min(placedTeams, len(prizeShares))

	payouts := make([]decimal.Decimal, n)
	distributed := decimal.Zero
	for i := 1; i < n; i++ {
		payouts[i] = pool.Mul(prizeShares[i]).RoundDown(2)
		distributed = distributed.Add(payouts[i])
	}
	payouts[0] = pool.Sub(distributed)
	return payouts
}

// --- Права ---

func canManageTournament(actor *models.User, t *models.Tournament) bool {
	return actor != nil && t != nil && (actor.IsAdmin || actor.ID == t.CreatedBy)
}

// --- Строки ---

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// normalizeOptional обрезает пробелы и превращает пустую строку в nil.
func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// --- Хелперы для заполнения URL файлов ---

func populateTournamentBannerURL(t *models.Tournament, uploader storage.FileUploader) {
	if t != nil && t.BannerKey != nil && *t.BannerKey != "" && uploader != nil {
		if url := uploader.GetPublicURL(*t.BannerKey); url != "" {
			t.BannerURL = &url
		}
	}
}

// populateTeamLogoURLs заполняет LogoURL у команд; nil-команды пропускаются.
func populateTeamLogoURLs(uploader storage.FileUploader, teams ...*models.Team) {
	if uploader == nil {
		return
	}
	for _, team := range teams {
		if team == nil || team.LogoKey == nil || *team.LogoKey == "" {
			continue
		}
		if url := uploader.GetPublicURL(*team.LogoKey); url != "" {
			team.LogoURL = &url
		}
	}
}

// joinedTeams собирает команды, подтянутые join-ом, для populateTeamLogoURLs.
func joinedTeams[T any](items []T, team func(*T) *models.Team) []*models.Team {
	out := make([]*models.Team, len(items))
	for i := range items {
		out[i] = team(&items[i])
	}
	return out
}

func teamRefs(teams []models.Team) []*models.Team {
	return joinedTeams(teams, func(t *models.Team) *models.Team { return t })
}

// GetExtensionFromContentType maps an image content type to a file extension.
func GetExtensionFromContentType(contentType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFileType, contentType)
	}
}

// mapNotFound переводит ошибку репозитория "не найдено" в сервисную.
func mapNotFound(err, repoErr, serviceErr error) error {
	if errors.Is(err, repoErr) {
		return serviceErr
	}
	return err
}
