package postgres

import (
	"database/sql"

	"memberhub-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.MembershipRepository
	repository.GeographyRepository
	repository.OutboxRepository
	repository.ReviewQueueRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		MembershipRepository:  NewMembershipRepository(db),
		GeographyRepository:   NewGeographyRepository(db),
		OutboxRepository:      NewOutboxRepository(db),
		ReviewQueueRepository: NewReviewQueueRepository(db),
	}
}
