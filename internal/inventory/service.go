// Package inventory implements item mutations. Every operation runs the
// item write and its history record(s) in a single transaction, so the
// audit trail can never drift from the item state. Label generation and
// event delivery happen after commit and never affect the outcome.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mlenko/lagerdb/internal/labels"
	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/notify"
)

// Sentinel errors mapped to API responses by the handlers.
var (
	ErrNotFound            = errors.New("not found")
	ErrNotAllowed          = errors.New("not allowed")
	ErrNoPriorState        = errors.New("history entry has no prior state")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrAlreadyReturned     = errors.New("borrow already returned")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrQuickAdjustDisabled = errors.New("quick adjust is disabled for this overview")
)

const sidecarTimeout = 10 * time.Second

// Service performs item mutations.
type Service struct {
	DB       *sql.DB
	Logger   *zap.Logger
	Labels   labels.Generator
	Notifier notify.Notifier
}

// NewService wires a mutation service. Labels and Notifier may be nil,
// in which case the respective sidecar is skipped.
func NewService(db *sql.DB, logger *zap.Logger, gen labels.Generator, n notify.Notifier) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{DB: db, Logger: logger, Labels: gen, Notifier: n}
}

// withTx runs fn inside a transaction, committing on success.
func (s *Service) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// afterMutation runs the post-commit sidecars in the background. Failures
// are logged and swallowed.
func (s *Service) afterMutation(kind string, item *model.Item, user *model.User, regenerate bool) {
	if item == nil {
		return
	}
	ev := notify.Event{
		Kind:     kind,
		ItemID:   item.ID,
		ItemName: item.Name,
		Barcode:  item.Barcode,
	}
	if user != nil {
		ev.Actor = user.Username
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sidecarTimeout)
		defer cancel()

		if s.Labels != nil {
			if err := s.Labels.Ensure(ev.ItemID, ev.Barcode, regenerate); err != nil {
				s.Logger.Warn("label generation failed",
					zap.Int64("item_id", ev.ItemID), zap.Error(err))
			}
		}
		if s.Notifier != nil {
			if err := s.Notifier.Send(ctx, ev); err != nil {
				s.Logger.Warn("event delivery failed",
					zap.Int64("item_id", ev.ItemID),
					zap.String("kind", ev.Kind), zap.Error(err))
			}
		}
	}()
}

func userID(user *model.User) *int64 {
	if user == nil {
		return nil
	}
	id := user.ID
	return &id
}
