package service

import (
	"context"
	"errors"
	"fmt"

	"memberhub-backend/internal/domain"
	"memberhub-backend/internal/logger"
	"memberhub-backend/internal/repository"
)

// maxCommandRetries bounds the re-read-and-retry loop on optimistic
// conflicts. Losers of a version race retry against fresh state; after
// this many attempts the conflict is surfaced to the caller.
const maxCommandRetries = 3

type membershipService struct {
	memberRepo repository.MembershipRepository
}

func NewMembershipService(memberRepo repository.MembershipRepository) MembershipService {
	return &membershipService{memberRepo: memberRepo}
}

func (s *membershipService) CreateMembership(ctx context.Context, orgID int32, externalRef string, sponsorID *int64, notifyEmail, locationText string) (*domain.Membership, error) {
	if externalRef == "" {
		return nil, &domain.ValidationError{Field: "external_identity_ref", Reason: "identity reference is required"}
	}
	if sponsorID != nil {
		if _, err := s.memberRepo.GetByID(ctx, *sponsorID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, &domain.ValidationError{Field: "sponsor_id", Reason: "sponsor membership does not exist"}
			}
			return nil, err
		}
	}
	geo := domain.NoGeography()
	if locationText != "" {
		geo = domain.TextGeography(locationText)
	}
	m := domain.NewMembership(orgID, externalRef, sponsorID, notifyEmail, geo)
	if err := s.memberRepo.Create(ctx, m); err != nil {
		return nil, err
	}
	logger.Info("Membership created", "membership_id", m.ID, "org_id", orgID)
	return m, nil
}

func (s *membershipService) GetMembership(ctx context.Context, id int64) (*domain.Membership, error) {
	return s.memberRepo.GetByID(ctx, id)
}

func (s *membershipService) GetStatusHistory(ctx context.Context, id int64) ([]domain.StatusChange, error) {
	if _, err := s.memberRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.memberRepo.ListStatusHistory(ctx, id)
}

// mutate runs one command attempt cycle: fresh read, apply, save. The save
// is skipped when the command was an idempotent no-op, and the whole cycle
// repeats on a version conflict.
func (s *membershipService) mutate(ctx context.Context, id int64, apply func(*domain.Membership) error) (*domain.Membership, error) {
	var lastErr error
	for attempt := 0; attempt < maxCommandRetries; attempt++ {
		m, err := s.memberRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := apply(m); err != nil {
			return nil, err
		}
		if !m.Dirty() {
			return m, nil
		}
		err = s.memberRepo.Save(ctx, m)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, domain.ErrConcurrentModification) {
			return nil, err
		}
		logger.Warn("Optimistic conflict, retrying command", "membership_id", id, "attempt", attempt+1)
		lastErr = err
	}
	return nil, lastErr
}

func (s *membershipService) Submit(ctx context.Context, id int64, actor string) (*domain.Membership, error) {
	return s.mutate(ctx, id, func(m *domain.Membership) error {
		number := m.MembershipNumber
		if number == "" {
			n, err := s.memberRepo.NextMembershipNumber(ctx, m.OrgID)
			if err != nil {
				return err
			}
			number = fmt.Sprintf("M-%06d", n)
		}
		return m.Submit(actor, number)
	})
}

func (s *membershipService) Verify(ctx context.Context, id int64, verifiedBy string) (*domain.Membership, error) {
	return s.mutate(ctx, id, func(m *domain.Membership) error {
		return m.Verify(verifiedBy)
	})
}

func (s *membershipService) RequestPayment(ctx context.Context, id int64, actor string) (*domain.Membership, error) {
	return s.mutate(ctx, id, func(m *domain.Membership) error {
		return m.RequestPayment(actor)
	})
}

func (s *membershipService) ConfirmPayment(ctx context.Context, id int64, actor, paymentRef string) (*domain.Membership, error) {
	return s.mutate(ctx, id, func(m *domain.Membership) error {
		return m.ConfirmPayment(actor, paymentRef)
	})
}

func (s *membershipService) Suspend(ctx context.Context, id int64, actor, reason string) (*domain.Membership, error) {
	return s.mutate(ctx, id, func(m *domain.Membership) error {
		return m.Suspend(actor, reason)
	})
}

func (s *membershipService) Reinstate(ctx context.Context, id int64, actor string) (*domain.Membership, error) {
	return s.mutate(ctx, id, func(m *domain.Membership) error {
		return m.Reinstate(actor)
	})
}

func (s *membershipService) Terminate(ctx context.Context, id int64, terminatedBy string) (*domain.Membership, error) {
	return s.mutate(ctx, id, func(m *domain.Membership) error {
		return m.Terminate(terminatedBy)
	})
}

func (s *membershipService) EnrichGeography(ctx context.Context, id int64, actor string, assignment domain.GeographyAssignment) (*domain.Membership, error) {
	return s.mutate(ctx, id, func(m *domain.Membership) error {
		return m.EnrichGeography(actor, assignment)
	})
}
