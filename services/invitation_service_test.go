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

func TestCreateInvitation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	captain := env.addUser(t, "captain", false)
	member := env.addUser(t, "member", false)
	invitee := env.addUser(t, "invitee", false)
	team := env.addTeam(t, "Alpha", captain, member)

	inv, err := env.invitationService.CreateInvitation(ctx, captain, CreateInvitationInput{TeamID: team.ID, UserID: invitee.ID})
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, inv.Status)
	assert.Equal(t, captain.ID, inv.InvitedBy)

	_, err = env.invitationService.CreateInvitation(ctx, captain, CreateInvitationInput{TeamID: team.ID, UserID: invitee.ID})
	assert.ErrorIs(t, err, ErrInvitationConflict)

	_, err = env.invitationService.CreateInvitation(ctx, member, CreateInvitationInput{TeamID: team.ID, UserID: invitee.ID})
	assert.ErrorIs(t, err, ErrCaptainActionForbidden)

	_, err = env.invitationService.CreateInvitation(ctx, captain, CreateInvitationInput{TeamID: team.ID, UserID: member.ID})
	assert.ErrorIs(t, err, ErrUserAlreadyInTeam)

	_, err = env.invitationService.CreateInvitation(ctx, captain, CreateInvitationInput{TeamID: team.ID, UserID: team.ID})
	assert.ErrorIs(t, err, ErrUserNotFound)

	pending, err := env.invitationService.ListForUser(ctx, invitee.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotNil(t, pending[0].Team)
	assert.Equal(t, "Alpha", pending[0].Team.Name)
}

func TestAcceptInvitationTwiceAddsMemberOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	captain := env.addUser(t, "captain", false)
	invitee := env.addUser(t, "invitee", false)
	team := env.addTeam(t, "Alpha", captain)

	inv, err := env.invitationService.CreateInvitation(ctx, captain, CreateInvitationInput{TeamID: team.ID, UserID: invitee.ID})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.invitationService.RespondToInvitation(ctx, invitee, inv.ID, RespondInvitationInput{Status: models.InvitationAccepted})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, env.countMembers(team.ID, invitee.ID))

	pending, err := env.invitationService.ListForUser(ctx, invitee.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRespondToInvitation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	captain := env.addUser(t, "captain", false)
	invitee := env.addUser(t, "invitee", false)
	team := env.addTeam(t, "Alpha", captain)

	inv, err := env.invitationService.CreateInvitation(ctx, captain, CreateInvitationInput{TeamID: team.ID, UserID: invitee.ID})
	require.NoError(t, err)

	_, err = env.invitationService.RespondToInvitation(ctx, captain, inv.ID, RespondInvitationInput{Status: models.InvitationAccepted})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = env.invitationService.RespondToInvitation(ctx, invitee, inv.ID, RespondInvitationInput{Status: models.InvitationPending})
	assert.ErrorIs(t, err, ErrValidationFailed)

	declined, err := env.invitationService.RespondToInvitation(ctx, invitee, inv.ID, RespondInvitationInput{Status: models.InvitationDeclined})
	require.NoError(t, err)
	assert.Equal(t, models.InvitationDeclined, declined.Status)
	assert.Equal(t, 0, env.countMembers(team.ID, invitee.ID))

	_, err = env.invitationService.RespondToInvitation(ctx, invitee, inv.ID, RespondInvitationInput{Status: models.InvitationAccepted})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// A declined invitation no longer blocks a fresh one.
	_, err = env.invitationService.CreateInvitation(ctx, captain, CreateInvitationInput{TeamID: team.ID, UserID: invitee.ID})
	assert.NoError(t, err)
}

func TestAcceptInvitationIntoFullTeam(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	captain := env.addUser(t, "captain", false)
	invitee := env.addUser(t, "invitee", false)
	team := env.addTeam(t, "Alpha", captain)

	inv, err := env.invitationService.CreateInvitation(ctx, captain, CreateInvitationInput{TeamID: team.ID, UserID: invitee.ID})
	require.NoError(t, err)

	for i := 0; i < models.MaxTeamMembers-1; i++ {
		u := env.addUser(t, fmt.Sprintf("filler%d", i), false)
		_, err := env.members.Add(ctx, nil, &models.TeamMember{TeamID: team.ID, UserID: u.ID, Role: models.TeamRoleMember})
		require.NoError(t, err)
	}

	_, err = env.invitationService.RespondToInvitation(ctx, invitee, inv.ID, RespondInvitationInput{Status: models.InvitationAccepted})
	assert.ErrorIs(t, err, ErrTeamFull)
	assert.Equal(t, 0, env.countMembers(team.ID, invitee.ID))

	stored, err := env.invitations.GetByID(ctx, nil, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, stored.Status)
}
