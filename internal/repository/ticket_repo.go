package repository

import (
	"context"

	"github.com/tylerhoskins/ticketing-platform/internal/models"
	"gorm.io/gorm"
)

type TicketRepository interface {
	InsertBulk(ctx context.Context, tx *gorm.DB, tickets []models.Ticket) error
	FindByPurchaseID(ctx context.Context, purchaseID string) ([]models.Ticket, error)
	CountByEventID(ctx context.Context, eventID string) (int64, error)
}

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

// InsertBulk writes ticket rows inside the allocator's transaction. Tickets
// are never mutated after this insert.
func (r *ticketRepository) InsertBulk(ctx context.Context, tx *gorm.DB, tickets []models.Ticket) error {
	return tx.WithContext(ctx).Create(&tickets).Error
}

func (r *ticketRepository) FindByPurchaseID(ctx context.Context, purchaseID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if err := r.db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Order("issued_at ASC, id ASC").
		Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) CountByEventID(ctx context.Context, eventID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return count, err
}
