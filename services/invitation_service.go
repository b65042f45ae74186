package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/bgmi-arena/models"
	"github.com/Dosada05/bgmi-arena/repositories"
	"github.com/Dosada05/bgmi-arena/storage"
	"github.com/google/uuid"
)

type CreateInvitationInput struct {
	TeamID uuid.UUID `json:"team_id"`
	UserID uuid.UUID `json:"user_id"`
}

type RespondInvitationInput struct {
	Status models.InvitationStatus `json:"status"`
}

type InvitationService interface {
	CreateInvitation(ctx context.Context, actor *models.User, input CreateInvitationInput) (*models.TeamInvitation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.TeamInvitation, error)
	// RespondToInvitation переводит приглашение из pending в accepted или declined.
	// При принятии игрок добавляется в состав в той же транзакции.
	RespondToInvitation(ctx context.Context, actor *models.User, invitationID uuid.UUID, input RespondInvitationInput) (*models.TeamInvitation, error)
}

type invitationService struct {
	tx             repositories.Transactor
	invitationRepo repositories.InvitationRepository
	teamRepo       repositories.TeamRepository
	memberRepo     repositories.TeamMemberRepository
	userRepo       repositories.UserRepository
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewInvitationService(
	tx repositories.Transactor,
	invitationRepo repositories.InvitationRepository,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.TeamMemberRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) InvitationService {
	return &invitationService{
		tx:             tx,
		invitationRepo: invitationRepo,
		teamRepo:       teamRepo,
		memberRepo:     memberRepo,
		userRepo:       userRepo,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *invitationService) CreateInvitation(ctx context.Context, actor *models.User, input CreateInvitationInput) (*models.TeamInvitation, error) {
	if actor == nil {
		return nil, ErrAuthenticationFailed
	}

	v := newValidator()
	v.check(input.TeamID != uuid.Nil, "team_id", "must be provided")
	v.check(input.UserID != uuid.Nil, "user_id", "must be provided")
	v.check(input.UserID != actor.ID, "user_id", "cannot invite yourself")
	if err := v.err(); err != nil {
		return nil, err
	}

	team, err := s.teamRepo.GetByID(ctx, nil, input.TeamID)
	if err != nil {
		return nil, mapNotFound(err, repositories.ErrTeamNotFound, ErrTeamNotFound)
	}
	if team.CaptainID != actor.ID {
		return nil, ErrCaptainActionForbidden
	}

	if _, err := s.userRepo.GetByID(ctx, input.UserID); err != nil {
		return nil, mapNotFound(err, repositories.ErrUserNotFound, ErrUserNotFound)
	}

	if _, err := s.memberRepo.Get(ctx, nil, input.TeamID, input.UserID); err == nil {
		return nil, ErrUserAlreadyInTeam
	} else if !errors.Is(err, repositories.ErrTeamMemberNotFound) {
		return nil, err
	}

	count, err := s.memberRepo.Count(ctx, nil, input.TeamID)
	if err != nil {
		return nil, err
	}
	if count >= models.MaxTeamMembers {
		return nil, ErrTeamFull
	}

	invitation := &models.TeamInvitation{
		TeamID:    input.TeamID,
		UserID:    input.UserID,
		InvitedBy: actor.ID,
		Status:    models.InvitationPending,
	}
	if err := s.invitationRepo.Create(ctx, invitation); err != nil {
		switch {
		case errors.Is(err, repositories.ErrInvitationConflict):
			return nil, ErrInvitationConflict
		case errors.Is(err, repositories.ErrInvitationInvalidRef):
			return nil, ErrNotFound
		}
		return nil, err
	}

	populateTeamLogoURLs(s.uploader, team)
	invitation.Team = team
	return invitation, nil
}

func (s *invitationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.TeamInvitation, error) {
	invitations, err := s.invitationRepo.ListPendingByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	populateTeamLogoURLs(s.uploader, joinedTeams(invitations, func(inv *models.TeamInvitation) *models.Team { return inv.Team })...)
	return invitations, nil
}

func (s *invitationService) RespondToInvitation(ctx context.Context, actor *models.User, invitationID uuid.UUID, input RespondInvitationInput) (*models.TeamInvitation, error) {
	if input.Status != models.InvitationAccepted && input.Status != models.InvitationDeclined {
		return nil, fieldError("status", "must be one of accepted, declined")
	}

	var invitation *models.TeamInvitation
	var team *models.Team
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		invitation, err = s.invitationRepo.GetByID(ctx, exec, invitationID)
		if err != nil {
			return mapNotFound(err, repositories.ErrInvitationNotFound, ErrInvitationNotFound)
		}
		if actor == nil || invitation.UserID != actor.ID {
			return ErrForbiddenOperation
		}
		if invitation.Status != models.InvitationPending ||
			!isValidStatusTransition(invitationTransitions, invitation.Status, input.Status) {
			return fmt.Errorf("%w: invitation is already %s", ErrInvalidTransition, invitation.Status)
		}

		if input.Status == models.InvitationAccepted {
			team, err = s.teamRepo.GetByIDForUpdate(ctx, exec, invitation.TeamID)
			if err != nil {
				return mapNotFound(err, repositories.ErrTeamNotFound, ErrTeamNotFound)
			}
			count, err := s.memberRepo.Count(ctx, exec, invitation.TeamID)
			if err != nil {
				return err
			}
			if count >= models.MaxTeamMembers {
				return ErrTeamFull
			}
		}

		// Условное обновление (WHERE status = 'pending') отсекает повторный ответ.
		if err := s.invitationRepo.UpdateStatus(ctx, exec, invitationID, models.InvitationPending, input.Status); err != nil {
			if errors.Is(err, repositories.ErrInvitationStatusConflict) {
				return fmt.Errorf("%w: invitation was already answered", ErrInvalidTransition)
			}
			return err
		}
		invitation.Status = input.Status

		if input.Status == models.InvitationAccepted {
			member := &models.TeamMember{TeamID: invitation.TeamID, UserID: invitation.UserID, Role: models.TeamRoleMember}
			if _, err := s.memberRepo.Add(ctx, exec, member); err != nil {
				return fmt.Errorf("failed to add team member: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if team != nil {
		populateTeamLogoURLs(s.uploader, team)
		invitation.Team = team
	}
	s.logger.InfoContext(ctx, "invitation answered",
		slog.String("invitation_id", invitationID.String()),
		slog.String("status", string(input.Status)))
	return invitation, nil
}
