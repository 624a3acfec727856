package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

// ProfileInput carries the editable fields of a directory profile
type ProfileInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

// ProfileService maintains the user directory the approval chain reads
type ProfileService interface {
	Get(ctx context.Context, id string) (*entity.Profile, error)

	// Save creates or updates a profile. ADMIN may set any field of any profile;
	// everyone else may only edit their own contact fields and keeps their role.
	Save(ctx context.Context, actorID, id string, in ProfileInput) (*entity.Profile, error)
}

var assignableRoles = map[string]bool{
	entity.RoleEmployee:      true,
	entity.RoleChefia:        true,
	entity.RoleSubsecretario: true,
	entity.RoleDAD:           true,
	entity.RoleAdmin:         true,
}

type profileServiceImpl struct {
	profileRepo port.ProfileRepository
	now         func() time.Time
	logger      Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(profileRepo port.ProfileRepository, now func() time.Time, logger Logger) ProfileService {
	if now == nil {
		now = time.Now
	}
	return &profileServiceImpl{
		profileRepo: profileRepo,
		now:         now,
		logger:      logger,
	}
}

func (s *profileServiceImpl) Get(ctx context.Context, id string) (*entity.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: profile %s", domainwf.ErrNotFound, id)
	}
	return profile, nil
}

func (s *profileServiceImpl) Save(ctx context.Context, actorID, id string, in ProfileInput) (*entity.Profile, error) {
	if strings.TrimSpace(id) == "" || id == entity.SystemActorID {
		return nil, fmt.Errorf("%w: invalid profile id %q", domainwf.ErrValidation, id)
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return nil, fmt.Errorf("%w: invalid email %q", domainwf.ErrValidation, in.Email)
		}
	}

	actor, err := s.profileRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("get actor: %w", err)
	}
	isAdmin := actor != nil && actor.Role == entity.RoleAdmin
	if !isAdmin && actorID != id {
		return nil, fmt.Errorf("%w: %s cannot edit profile %s", domainwf.ErrAuthorization, actorID, id)
	}

	existing, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	now := s.now()
	profile := &entity.Profile{ID: id, Role: entity.RoleEmployee, CreatedAt: now}
	if existing != nil {
		cp := *existing
		profile = &cp
	}
	profile.Name = strings.TrimSpace(in.Name)
	profile.Email = strings.TrimSpace(in.Email)
	profile.Department = strings.TrimSpace(in.Department)
	profile.UpdatedAt = now

	if in.Role != "" && in.Role != profile.Role {
		if !isAdmin {
			return nil, fmt.Errorf("%w: only %s may change roles", domainwf.ErrAuthorization, entity.RoleAdmin)
		}
		if !assignableRoles[in.Role] {
			return nil, fmt.Errorf("%w: unknown role %q", domainwf.ErrValidation, in.Role)
		}
		profile.Role = in.Role
	}

	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	s.logger.Info("Profile saved", "profile_id", id, "actor_id", actorID, "role", profile.Role)
	return profile, nil
}
