package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tylerhoskins/ticketing-platform/internal/models"
	"github.com/tylerhoskins/ticketing-platform/internal/repository"
	"gorm.io/gorm"
)

// AllocationCode tags the outcome of one allocator attempt.
type AllocationCode int

const (
	AllocationOK AllocationCode = iota
	AllocationInsufficient
	AllocationEventPast
	AllocationConflict
	AllocationTimeout
	AllocationInternal
)

func (c AllocationCode) String() string {
	switch c {
	case AllocationOK:
		return "ok"
	case AllocationInsufficient:
		return "insufficient inventory"
	case AllocationEventPast:
		return "event already started"
	case AllocationConflict:
		return "version conflict"
	case AllocationTimeout:
		return "allocation timed out"
	default:
		return "internal error"
	}
}

// Retryable reports whether the processor may retry the attempt. Insufficient
// inventory and elapsed events are final; everything else is transient.
func (c AllocationCode) Retryable() bool {
	return c == AllocationConflict || c == AllocationTimeout || c == AllocationInternal
}

type AllocationResult struct {
	Code    AllocationCode
	Tickets []models.Ticket
	Err     error
}

// Allocator executes the transactional ticket issue for a claimed intent.
type Allocator interface {
	Allocate(ctx context.Context, intent *models.PurchaseIntent) AllocationResult
}

// Sentinels used to pick the result code after the transaction rolls back.
var (
	errAllocInsufficient = errors.New("insufficient available tickets")
	errAllocEventPast    = errors.New("event starts in the past")
	errAllocConflict     = errors.New("event version conflict")
)

type inventoryAllocator struct {
	db         *gorm.DB
	eventRepo  repository.EventRepository
	ticketRepo repository.TicketRepository
}

func NewInventoryAllocator(db *gorm.DB, eventRepo repository.EventRepository, ticketRepo repository.TicketRepository) Allocator {
	return &inventoryAllocator{db: db, eventRepo: eventRepo, ticketRepo: ticketRepo}
}

// Allocate either issues intent.Quantity tickets or reports a typed failure.
// The whole operation runs in one transaction: the event row is locked, the
// counters re-read, the decrement guarded by the version read under the lock,
// and the ticket rows inserted. Any error rolls everything back.
func (a *inventoryAllocator) Allocate(ctx context.Context, intent *models.PurchaseIntent) AllocationResult {
	var tickets []models.Ticket

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Row-level lock serializes allocation per event.
		event, err := a.eventRepo.FindByIDForUpdate(ctx, tx, intent.EventID)
		if err != nil {
			return err
		}

		// 2. Authoritative checks on the locked row.
		if event.AvailableTickets < intent.Quantity {
			return errAllocInsufficient
		}
		if !event.StartsAt.After(time.Now()) {
			return errAllocEventPast
		}

		// 3. Version-guarded decrement catches any leak past the lock
		//    (weaker isolation, replicas) and surfaces it as retryable.
		ok, err := a.eventRepo.ConditionalDecrement(ctx, tx, event.ID, intent.Quantity, event.Version)
		if err != nil {
			return err
		}
		if !ok {
			return errAllocConflict
		}

		// 4. Issue the tickets, bound to the intent via purchase_id.
		now := time.Now()
		tickets = make([]models.Ticket, intent.Quantity)
		for i := range tickets {
			tickets[i] = models.Ticket{
				ID:         uuid.NewString(),
				EventID:    event.ID,
				PurchaseID: intent.ID,
				IssuedAt:   now,
			}
		}
		return a.ticketRepo.InsertBulk(ctx, tx, tickets)
	})

	switch {
	case err == nil:
		return AllocationResult{Code: AllocationOK, Tickets: tickets}
	case errors.Is(err, errAllocInsufficient):
		return AllocationResult{Code: AllocationInsufficient, Err: err}
	case errors.Is(err, errAllocEventPast):
		return AllocationResult{Code: AllocationEventPast, Err: err}
	case errors.Is(err, errAllocConflict):
		return AllocationResult{Code: AllocationConflict, Err: err}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return AllocationResult{Code: AllocationTimeout, Err: err}
	default:
		return AllocationResult{Code: AllocationInternal, Err: err}
	}
}
