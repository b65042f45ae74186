package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tournamentStatusPtr(s models.TournamentStatus) *models.TournamentStatus { return &s }

func TestCreateTournament(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	organizer := env.addUser(t, "organizer", false)
	start := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	prize := decimal.NewFromInt(5000)

	created, err := env.tournamentService.CreateTournament(ctx, organizer, CreateTournamentInput{
		Name:      " Summer Showdown ",
		Mode:      models.ModeSquad,
		Type:      models.TypePaid,
		PrizePool: &prize,
		MaxTeams:  16,
		StartDate: &start,
	})
	require.NoError(t, err)
	assert.Equal(t, "Summer Showdown", created.Name)
	assert.Equal(t, models.TournamentStatusOpen, created.Status)
	assert.Equal(t, 0, created.CurrentTeams)
	assert.Equal(t, organizer.ID, created.CreatedBy)
	assert.True(t, created.EntryFee.IsZero())

	before := start.Add(-time.Hour)
	negative := decimal.NewFromInt(-1)
	_, err = env.tournamentService.CreateTournament(ctx, organizer, CreateTournamentInput{
		Mode:      "Quad",
		Type:      models.TypeFree,
		EntryFee:  &negative,
		MaxTeams:  0,
		StartDate: &start,
		EndDate:   &before,
	})
	require.ErrorIs(t, err, ErrValidationFailed)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"name", "mode", "entry_fee", "max_teams", "end_date"} {
		assert.Contains(t, verr.Fields, field)
	}
}

func TestGetTournamentLoadsRelations(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin", true)
	tournament := env.addTournament(t, admin, 8, models.TournamentStatusOpen, 0)
	team := env.addTeam(t, "Alpha", env.addUser(t, "captain", false))
	env.register(t, tournament.ID, team.ID)
	env.addMatch(t, tournament.ID, models.MatchStatusScheduled)

	got, err := env.tournamentService.GetTournament(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Len(t, got.Registrations, 1)
	assert.Len(t, got.Matches, 1)
	assert.Equal(t, 1, got.CurrentTeams)
}

func TestListTournamentsByStatus(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin", true)
	env.addTournament(t, admin, 8, models.TournamentStatusOpen, 0)
	env.addTournament(t, admin, 8, models.TournamentStatusLive, 0)

	live, err := env.tournamentService.ListTournaments(context.Background(), ListTournamentsFilter{Status: tournamentStatusPtr(models.TournamentStatusLive)})
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, models.TournamentStatusLive, live[0].Status)

	_, err = env.tournamentService.ListTournaments(context.Background(), ListTournamentsFilter{Status: tournamentStatusPtr("archived")})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestUpdateTournament(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	organizer := env.addUser(t, "organizer", false)
	outsider := env.addUser(t, "outsider", false)
	tournament := env.addTournament(t, organizer, 4, models.TournamentStatusOpen, 0)
	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		team := env.addTeam(t, name, env.addUser(t, name, false))
		env.register(t, tournament.ID, team.ID)
	}

	_, err := env.tournamentService.UpdateTournament(ctx, outsider, tournament.ID, UpdateTournamentInput{Name: strPtr("Hijacked")})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = env.tournamentService.UpdateTournament(ctx, organizer, tournament.ID, UpdateTournamentInput{MaxTeams: intPtr(2)})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = env.tournamentService.UpdateTournament(ctx, organizer, tournament.ID, UpdateTournamentInput{Status: tournamentStatusPtr(models.TournamentStatusCompleted)})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	updated, err := env.tournamentService.UpdateTournament(ctx, organizer, tournament.ID, UpdateTournamentInput{
		Name:     strPtr("Renamed Cup"),
		MaxTeams: intPtr(3),
		Status:   tournamentStatusPtr(models.TournamentStatusLive),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed Cup", updated.Name)
	assert.Equal(t, 3, updated.MaxTeams)
	assert.Equal(t, models.TournamentStatusLive, updated.Status)

	stored := env.reloadTournament(t, tournament.ID)
	assert.Equal(t, 3, stored.CurrentTeams)
	assert.Equal(t, models.TournamentStatusLive, stored.Status)

	_, err = env.tournamentService.UpdateTournament(ctx, organizer, tournament.ID, UpdateTournamentInput{Status: tournamentStatusPtr(models.TournamentStatusOpen)})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCompleteTournamentPaysOutPrizePool(t *testing.T) {
	f := newLiveMatch(t, 5, 3, 1, 0)
	ctx := context.Background()

	_, err := f.env.tournamentService.UpdateTournament(ctx, f.admin, f.tournament.ID, UpdateTournamentInput{Status: tournamentStatusPtr(models.TournamentStatusCompleted)})
	assert.ErrorIs(t, err, ErrInvalidState, "a live match blocks completion")

	_, err = f.env.matchService.UpdateMatch(ctx, f.admin, f.match.ID, UpdateMatchInput{Status: statusPtr(models.MatchStatusCompleted)})
	require.NoError(t, err)

	completed, err := f.env.tournamentService.UpdateTournament(ctx, f.admin, f.tournament.ID, UpdateTournamentInput{Status: tournamentStatusPtr(models.TournamentStatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusCompleted, completed.Status)
	require.NotNil(t, completed.EndDate)

	wantEarnings := []string{"500", "300", "200", "0"}
	for i, team := range f.teams {
		stored := f.env.reloadTeam(t, team.ID)
		assert.True(t, stored.TotalEarnings.Equal(decimal.RequireFromString(wantEarnings[i])),
			"team %d earned %s", i, stored.TotalEarnings)
	}

	for _, team := range f.teams {
		members, err := f.env.members.ListByTeam(ctx, nil, team.ID)
		require.NoError(t, err)
		for _, m := range members {
			u := f.env.reloadUser(t, m.UserID)
			if team.ID == f.teams[0].ID {
				assert.Equal(t, 1, u.TournamentsWon)
			} else {
				assert.Equal(t, 0, u.TournamentsWon)
			}
		}
	}

	standings, err := f.env.rankingService.TournamentStandings(ctx, f.tournament.ID)
	require.NoError(t, err)
	require.Len(t, standings, 4)
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, f.teams[0].ID, standings[0].TeamID)
	assert.Equal(t, 15, standings[0].Points)
	assert.Equal(t, 1, standings[0].Wins)
	require.NotNil(t, standings[0].Team)

	_, err = f.env.tournamentService.UpdateTournament(ctx, f.admin, f.tournament.ID, UpdateTournamentInput{Name: strPtr("Late edit")})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDeleteTournament(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	organizer := env.addUser(t, "organizer", false)
	outsider := env.addUser(t, "outsider", false)
	tournament := env.addTournament(t, organizer, 4, models.TournamentStatusOpen, 0)

	assert.ErrorIs(t, env.tournamentService.DeleteTournament(ctx, outsider, tournament.ID), ErrForbiddenOperation)
	require.NoError(t, env.tournamentService.DeleteTournament(ctx, organizer, tournament.ID))

	_, err := env.tournamentService.GetTournament(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestUploadBanner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	organizer := env.addUser(t, "organizer", false)
	tournament := env.addTournament(t, organizer, 4, models.TournamentStatusOpen, 0)

	_, err := env.tournamentService.UploadBanner(ctx, organizer, tournament.ID, bytes.NewReader([]byte("%PDF")), "application/pdf")
	assert.ErrorIs(t, err, ErrInvalidFileType)

	first, err := env.tournamentService.UploadBanner(ctx, organizer, tournament.ID, bytes.NewReader([]byte("png-1")), "image/png")
	require.NoError(t, err)
	require.NotNil(t, first.BannerURL)
	assert.Contains(t, *first.BannerURL, "tournaments/banners/"+tournament.ID.String())
	firstKey := *first.BannerKey

	env.now = env.now.Add(time.Minute)
	second, err := env.tournamentService.UploadBanner(ctx, organizer, tournament.ID, bytes.NewReader([]byte("png-2")), "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, *second.BannerKey)
	assert.Contains(t, env.uploader.deleted, firstKey)
	assert.Equal(t, []byte("png-2"), env.uploader.objects[*second.BannerKey])
}

func TestUploadBannerDisabled(t *testing.T) {
	env := newTestEnv(t)
	organizer := env.addUser(t, "organizer", false)
	tournament := env.addTournament(t, organizer, 4, models.TournamentStatusOpen, 0)

	svc := NewTournamentService(&memTransactor{env.store}, env.tournaments, env.registrations, env.matches,
		env.results, env.teams, env.members, env.users, nil, nil)
	_, err := svc.UploadBanner(context.Background(), organizer, tournament.ID, bytes.NewReader(nil), "image/png")
	assert.ErrorIs(t, err, ErrUploadsDisabled)
}
