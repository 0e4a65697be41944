package repository

import (
	"context"
	"time"

	"github.com/tylerhoskins/ticketing-platform/internal/models"
	"gorm.io/gorm"
)

type IntentRepository interface {
	Create(ctx context.Context, intent *models.PurchaseIntent) error
	FindByID(ctx context.Context, id string) (*models.PurchaseIntent, error)
	FindActiveBySessionAndEvent(ctx context.Context, sessionID, eventID string) (*models.PurchaseIntent, error)
	Claim(ctx context.Context, id string) (bool, error)
	SetTerminal(ctx context.Context, id string, status models.IntentStatus, reason string) error
	CancelWaiting(ctx context.Context, id string) (bool, error)
	NextWaitingForEvent(ctx context.Context, eventID string, limit int) ([]models.PurchaseIntent, error)
	EventsWithWaiting(ctx context.Context) ([]string, error)
	ExpireWaitingOlderThan(ctx context.Context, arrivalCutoff int64, reason string) (int64, error)
	FailStaleProcessing(ctx context.Context, updatedBefore time.Time, reason string) (int64, error)
	CountAhead(ctx context.Context, eventID string, arrival int64, id string) (int64, error)
	StatsByEvent(ctx context.Context, eventID string) (map[models.IntentStatus]int64, error)
	GetDB() *gorm.DB
}

// activeStatuses are the non-terminal intent states.
var activeStatuses = []models.IntentStatus{models.StatusWaiting, models.StatusProcessing}

type intentRepository struct {
	db *gorm.DB
}

func NewIntentRepository(db *gorm.DB) IntentRepository {
	return &intentRepository{db: db}
}

func (r *intentRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *intentRepository) Create(ctx context.Context, intent *models.PurchaseIntent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *intentRepository) FindByID(ctx context.Context, id string) (*models.PurchaseIntent, error) {
	var intent models.PurchaseIntent
	if err := r.db.WithContext(ctx).First(&intent, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *intentRepository) FindActiveBySessionAndEvent(ctx context.Context, sessionID, eventID string) (*models.PurchaseIntent, error) {
	var intent models.PurchaseIntent
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND event_id = ? AND status IN ?", sessionID, eventID, activeStatuses).
		First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// Claim performs the atomic waiting->processing transition. Zero rows affected
// means another worker claimed the intent, or it was cancelled or expired
// between discovery and claim.
func (r *intentRepository) Claim(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PurchaseIntent{}).
		Where("id = ? AND status = ?", id, models.StatusWaiting).
		Update("status", models.StatusProcessing)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetTerminal moves a claimed intent out of processing into a terminal state.
// The claim guarantees exclusivity, so the guard is on processing only.
func (r *intentRepository) SetTerminal(ctx context.Context, id string, status models.IntentStatus, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.PurchaseIntent{}).
		Where("id = ? AND status = ?", id, models.StatusProcessing).
		Updates(map[string]any{
			"status":         status,
			"failure_reason": reason,
		}).Error
}

// CancelWaiting is the session-initiated waiting->expired transition. Zero
// rows affected means the intent just moved to processing (or is already
// terminal) and can no longer be cancelled.
func (r *intentRepository) CancelWaiting(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PurchaseIntent{}).
		Where("id = ? AND status = ?", id, models.StatusWaiting).
		Updates(map[string]any{
			"status":         models.StatusExpired,
			"failure_reason": "cancelled by buyer",
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *intentRepository) NextWaitingForEvent(ctx context.Context, eventID string, limit int) ([]models.PurchaseIntent, error) {
	var intents []models.PurchaseIntent
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID, models.StatusWaiting).
		Order("arrival ASC, id ASC").
		Limit(limit).
		Find(&intents).Error
	if err != nil {
		return nil, err
	}
	return intents, nil
}

func (r *intentRepository) EventsWithWaiting(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseIntent{}).
		Where("status = ?", models.StatusWaiting).
		Distinct().
		Pluck("event_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ExpireWaitingOlderThan bulk-expires waiting intents whose arrival ordinal
// predates the cutoff. Processing intents are the worker's responsibility and
// are never touched here.
func (r *intentRepository) ExpireWaitingOlderThan(ctx context.Context, arrivalCutoff int64, reason string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PurchaseIntent{}).
		Where("status = ? AND arrival < ?", models.StatusWaiting, arrivalCutoff).
		Updates(map[string]any{
			"status":         models.StatusExpired,
			"failure_reason": reason,
		})
	return res.RowsAffected, res.Error
}

// FailStaleProcessing reconciles intents left in processing by a crashed
// worker. Only rows whose updated_at predates the cutoff are touched; a live
// worker refreshes updated_at on every transition.
func (r *intentRepository) FailStaleProcessing(ctx context.Context, updatedBefore time.Time, reason string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PurchaseIntent{}).
		Where("status = ? AND updated_at < ?", models.StatusProcessing, updatedBefore).
		Updates(map[string]any{
			"status":         models.StatusFailed,
			"failure_reason": reason,
		})
	return res.RowsAffected, res.Error
}

// CountAhead counts active intents for the same event that precede the given
// arrival ordinal. Equal ordinals are ordered by id, matching the drain order.
func (r *intentRepository) CountAhead(ctx context.Context, eventID string, arrival int64, id string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseIntent{}).
		Where("event_id = ? AND status IN ?", eventID, activeStatuses).
		Where("arrival < ? OR (arrival = ? AND id < ?)", arrival, arrival, id).
		Count(&count).Error
	return count, err
}

func (r *intentRepository) StatsByEvent(ctx context.Context, eventID string) (map[models.IntentStatus]int64, error) {
	var rows []struct {
		Status models.IntentStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseIntent{}).
		Select("status, count(*) as count").
		Where("event_id = ?", eventID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	stats := make(map[models.IntentStatus]int64, len(rows))
	for _, row := range rows {
		stats[row.Status] = row.Count
	}
	return stats, nil
}
