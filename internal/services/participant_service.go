package services

import (
	"context"

	"globalgigs/internal/domain"
	"globalgigs/internal/domain/user"
	"globalgigs/internal/repository"
	"globalgigs/pkg/logger"
)

const defaultParticipantName = "User"

// ParticipantService turns a user id into display data. It never fails: a
// missing or unreadable record degrades to defaults.
type ParticipantService struct {
	users       repository.UserRepository
	freelancers repository.FreelancerRepository
	log         *logger.Logger
}

func NewParticipantService(users repository.UserRepository, freelancers repository.FreelancerRepository, l *logger.Logger) *ParticipantService {
	if l == nil {
		l = logger.NewNop()
	}
	return &ParticipantService{users: users, freelancers: freelancers, log: l}
}

func (s *ParticipantService) Resolve(ctx context.Context, userID string) user.Participant {
	p := user.Participant{ID: userID, Name: defaultParticipantName, Role: string(domain.RoleClient)}
	if userID == "" {
		return p
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.log.Ctx(ctx).Debugf("resolve participant %s: %v", userID, err)
		return p
	}

	if u.Role == domain.RoleFreelancer {
		p.Role = string(domain.RoleFreelancer)
		profile, err := s.freelancers.GetProfile(ctx, userID)
		if err != nil {
			s.log.Ctx(ctx).Debugf("resolve freelancer profile %s: %v", userID, err)
		}
		p.Name = firstNonEmpty(profile.Name, u.Name, u.Email, defaultParticipantName)
		p.AvatarURL = firstNonEmpty(profile.AvatarURL, u.AvatarURL)
		p.Role = firstNonEmpty(profile.Role, string(domain.RoleFreelancer))
		return p
	}

	p.Name = firstNonEmpty(u.Name, u.Email, defaultParticipantName)
	p.AvatarURL = u.AvatarURL
	p.Role = firstNonEmpty(string(u.Role), string(domain.RoleClient))
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
