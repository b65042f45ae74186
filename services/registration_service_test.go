package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterTeamUntilCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.addUser(t, "admin", true)
	tournament := env.addTournament(t, admin, 2, models.TournamentStatusOpen, 0)

	var teams []*models.Team
	for i := 0; i < 3; i++ {
		captain := env.addUser(t, fmt.Sprintf("captain%d", i), false)
		teams = append(teams, env.addTeam(t, fmt.Sprintf("Team%d", i), captain))
	}

	reg, err := env.registrationService.RegisterTeam(ctx, tournament.ID, teams[0].ID, teams[0].CaptainID)
	require.NoError(t, err)
	assert.Equal(t, teams[0].ID, reg.TeamID)
	require.NotNil(t, reg.Team)
	assert.Equal(t, "Team0", reg.Team.Name)

	_, err = env.registrationService.RegisterTeam(ctx, tournament.ID, teams[1].ID, teams[1].CaptainID)
	require.NoError(t, err)

	_, err = env.registrationService.RegisterTeam(ctx, tournament.ID, teams[2].ID, teams[2].CaptainID)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	stored := env.reloadTournament(t, tournament.ID)
	assert.Equal(t, 2, stored.CurrentTeams)
	assert.Equal(t, 2, env.countRegistrations(tournament.ID))
}

func TestRegisterTeamTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.addUser(t, "admin", true)
	captain := env.addUser(t, "captain", false)
	tournament := env.addTournament(t, admin, 10, models.TournamentStatusOpen, 0)
	team := env.addTeam(t, "Alpha", captain)

	_, err := env.registrationService.RegisterTeam(ctx, tournament.ID, team.ID, captain.ID)
	require.NoError(t, err)

	_, err = env.registrationService.RegisterTeam(ctx, tournament.ID, team.ID, captain.ID)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	stored := env.reloadTournament(t, tournament.ID)
	assert.Equal(t, 1, stored.CurrentTeams)
	assert.Equal(t, 1, env.countRegistrations(tournament.ID))
}

func TestRegisterTeamRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.addUser(t, "admin", true)
	captain := env.addUser(t, "captain", false)
	member := env.addUser(t, "member", false)
	team := env.addTeam(t, "Alpha", captain, member)

	t.Run("tournament not open", func(t *testing.T) {
		live := env.addTournament(t, admin, 10, models.TournamentStatusLive, 0)
		_, err := env.registrationService.RegisterTeam(ctx, live.ID, team.ID, captain.ID)
		assert.ErrorIs(t, err, ErrRegistrationClosed)
		assert.Equal(t, 0, env.countRegistrations(live.ID))
	})

	t.Run("actor is not the captain", func(t *testing.T) {
		open := env.addTournament(t, admin, 10, models.TournamentStatusOpen, 0)
		_, err := env.registrationService.RegisterTeam(ctx, open.ID, team.ID, member.ID)
		assert.ErrorIs(t, err, ErrUserMustBeCaptain)
	})

	t.Run("unknown tournament", func(t *testing.T) {
		_, err := env.registrationService.RegisterTeam(ctx, admin.ID, team.ID, captain.ID)
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	})

	t.Run("unknown team", func(t *testing.T) {
		open := env.addTournament(t, admin, 10, models.TournamentStatusOpen, 0)
		_, err := env.registrationService.RegisterTeam(ctx, open.ID, admin.ID, captain.ID)
		assert.ErrorIs(t, err, ErrTeamNotFound)
	})
}

func TestRegisterTeamConcurrentlyKeepsCounterConsistent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.addUser(t, "admin", true)
	tournament := env.addTournament(t, admin, 5, models.TournamentStatusOpen, 0)

	const contenders = 12
	teams := make([]*models.Team, contenders)
	for i := range teams {
		captain := env.addUser(t, fmt.Sprintf("captain%d", i), false)
		teams[i] = env.addTeam(t, fmt.Sprintf("Team%02d", i), captain)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i, team := range teams {
		wg.Add(1)
		go func(i int, team *models.Team) {
			defer wg.Done()
			_, errs[i] = env.registrationService.RegisterTeam(ctx, tournament.ID, team.ID, team.CaptainID)
		}(i, team)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrCapacityExceeded)
	}
	assert.Equal(t, 5, succeeded)

	stored := env.reloadTournament(t, tournament.ID)
	assert.Equal(t, env.countRegistrations(tournament.ID), stored.CurrentTeams)
	assert.LessOrEqual(t, stored.CurrentTeams, stored.MaxTeams)
}

func TestWithdrawTeam(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.addUser(t, "admin", true)
	captain := env.addUser(t, "captain", false)
	stranger := env.addUser(t, "stranger", false)
	tournament := env.addTournament(t, admin, 4, models.TournamentStatusOpen, 0)
	team := env.addTeam(t, "Alpha", captain)

	_, err := env.registrationService.RegisterTeam(ctx, tournament.ID, team.ID, captain.ID)
	require.NoError(t, err)

	err = env.registrationService.WithdrawTeam(ctx, tournament.ID, team.ID, stranger)
	assert.ErrorIs(t, err, ErrCaptainActionForbidden)

	require.NoError(t, env.registrationService.WithdrawTeam(ctx, tournament.ID, team.ID, captain))
	assert.Equal(t, 0, env.reloadTournament(t, tournament.ID).CurrentTeams)
	assert.Equal(t, 0, env.countRegistrations(tournament.ID))

	err = env.registrationService.WithdrawTeam(ctx, tournament.ID, team.ID, admin)
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
	assert.Equal(t, 0, env.reloadTournament(t, tournament.ID).CurrentTeams)
}

func TestListRegistrations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.addUser(t, "admin", true)
	tournament := env.addTournament(t, admin, 4, models.TournamentStatusOpen, 0)
	team := env.addTeam(t, "Alpha", env.addUser(t, "captain", false))
	env.register(t, tournament.ID, team.ID)

	regs, err := env.registrationService.ListRegistrations(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "Alpha", regs[0].Team.Name)

	_, err = env.registrationService.ListRegistrations(ctx, team.ID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}
