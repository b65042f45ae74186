package services

import (
	"context"
	"testing"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndListReplays(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	organizer := env.addUser(t, "organizer", false)
	outsider := env.addUser(t, "outsider", false)
	tournament := env.addTournament(t, organizer, 4, models.TournamentStatusLive, 0)
	match := env.addMatch(t, tournament.ID, models.MatchStatusCompleted)
	other := env.addMatch(t, tournament.ID, models.MatchStatusCompleted)

	input := CreateReplayInput{
		MatchID:      match.ID,
		Title:        "Final circle",
		VideoURL:     "https://videos.example.com/final.mp4",
		ThumbnailURL: strPtr("https://videos.example.com/final.jpg"),
		Duration:     intPtr(1820),
	}

	_, err := env.replayService.CreateReplay(ctx, outsider, input)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	replay, err := env.replayService.CreateReplay(ctx, organizer, input)
	require.NoError(t, err)
	assert.Equal(t, "Final circle", replay.Title)
	assert.Equal(t, 0, replay.Views)

	input.MatchID = other.ID
	_, err = env.replayService.CreateReplay(ctx, organizer, input)
	require.NoError(t, err)

	bad := input
	bad.VideoURL = "ftp://nope"
	bad.Duration = intPtr(-5)
	_, err = env.replayService.CreateReplay(ctx, organizer, bad)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "video_url")
	assert.Contains(t, verr.Fields, "duration")

	all, err := env.replayService.ListReplays(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	forMatch, err := env.replayService.ListReplays(ctx, &match.ID)
	require.NoError(t, err)
	require.Len(t, forMatch, 1)
	assert.Equal(t, replay.ID, forMatch[0].ID)
}
