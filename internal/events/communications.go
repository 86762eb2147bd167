package events

import (
	"context"
	"fmt"

	"memberhub-backend/internal/domain"
	"memberhub-backend/internal/logger"
	"memberhub-backend/internal/repository"
	"memberhub-backend/internal/service"
)

// CommunicationsSubscriber emails the member when their standing changes.
// It is a reference consumer of the event contract; finance and scoring
// modules consume the same stream from their own processes.
type CommunicationsSubscriber struct {
	memberRepo repository.MembershipRepository
	emailSvc   service.EmailService
}

func NewCommunicationsSubscriber(memberRepo repository.MembershipRepository, emailSvc service.EmailService) *CommunicationsSubscriber {
	return &CommunicationsSubscriber{memberRepo: memberRepo, emailSvc: emailSvc}
}

func (s *CommunicationsSubscriber) Name() string { return "communications" }

func (s *CommunicationsSubscriber) Handle(ctx context.Context, event domain.MembershipEvent) error {
	subject, body := composeLifecycleMessage(event)
	if subject == "" {
		return nil
	}

	m, err := s.memberRepo.GetByID(ctx, event.MembershipID)
	if err != nil {
		return err
	}
	if m.NotifyEmail == "" {
		logger.Debug("No notify address, skipping lifecycle email",
			"membership_id", event.MembershipID, "event_type", event.Type)
		return nil
	}
	return s.emailSvc.SendLifecycleNotification(ctx, m.NotifyEmail, m.MembershipNumber, subject, body)
}

func composeLifecycleMessage(event domain.MembershipEvent) (subject, body string) {
	switch event.Type {
	case domain.EventActivated:
		return "Your membership is active",
			fmt.Sprintf("Your membership is now active (payment %s).", event.Payload["payment_ref"])
	case domain.EventSuspended:
		return "Your membership has been suspended",
			fmt.Sprintf("Your membership has been suspended. Reason: %s.", event.Payload["reason"])
	case domain.EventReinstated:
		return "Your membership has been reinstated",
			"Your membership has been reinstated and is active again."
	case domain.EventTerminated:
		return "Your membership has ended",
			"Your membership has been terminated."
	default:
		return "", ""
	}
}
