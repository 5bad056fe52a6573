package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotelwizard/internal/domain"
)

var ErrDuplicateAttempt = errors.New("payment attempt already exists")

type PaymentAttemptRepository struct {
	db *gorm.DB
}

func NewPaymentAttemptRepository(db *gorm.DB) *PaymentAttemptRepository {
	return &PaymentAttemptRepository{db: db}
}

func (r *PaymentAttemptRepository) Create(ctx context.Context, a *domain.PaymentAttempt) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAttempt
		}
		return err
	}
	return nil
}

func (r *PaymentAttemptRepository) GetByTempID(ctx context.Context, tempID string) (*domain.PaymentAttempt, error) {
	var a domain.PaymentAttempt
	if err := r.db.WithContext(ctx).Where("temp_id = ?", tempID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetPaidByIdempotencyKey returns the paid attempt for a draft fingerprint,
// or gorm.ErrRecordNotFound.
func (r *PaymentAttemptRepository) GetPaidByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentAttempt, error) {
	var a domain.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ? AND status = ?", key, domain.AttemptStatusPaid).
		Order("id DESC").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PaymentAttemptRepository) AttachProviderRef(ctx context.Context, tempID, ref string) error {
	return r.db.WithContext(ctx).
		Model(&domain.PaymentAttempt{}).
		Where("temp_id = ?", tempID).
		Updates(map[string]interface{}{
			"provider_ref": ref,
			"status":       domain.AttemptStatusPending,
		}).Error
}

// MarkFailed records a failure unless the attempt is already paid.
func (r *PaymentAttemptRepository) MarkFailed(ctx context.Context, tempID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&domain.PaymentAttempt{}).
		Where("temp_id = ? AND status <> ?", tempID, domain.AttemptStatusPaid).
		Updates(map[string]interface{}{
			"status":         domain.AttemptStatusFailed,
			"failure_reason": reason,
		}).Error
}

// MarkPaidIdempotent flips the attempt to paid under a row lock. It reports
// false when the attempt was already paid.
func (r *PaymentAttemptRepository) MarkPaidIdempotent(ctx context.Context, tempID, providerRef string, paidAt time.Time) (bool, error) {
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a domain.PaymentAttempt
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("temp_id = ?", tempID).First(&a).Error; err != nil {
			return err
		}
		if a.Status == domain.AttemptStatusPaid {
			changed = false
			return nil
		}
		res := tx.Model(&domain.PaymentAttempt{}).Where("temp_id = ?", tempID).Updates(map[string]interface{}{
			"status":         domain.AttemptStatusPaid,
			"provider_ref":   providerRef,
			"paid_at":        paidAt,
			"failure_reason": "",
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("payment attempt row not updated")
		}
		changed = true
		return nil
	})
	return changed, err
}

func (r *PaymentAttemptRepository) SetReservationID(ctx context.Context, tempID, reservationID string) error {
	return r.db.WithContext(ctx).
		Model(&domain.PaymentAttempt{}).
		Where("temp_id = ?", tempID).
		Update("reservation_id", reservationID).Error
}

// DeleteAbandoned removes attempts that never got past created and are older
// than cutoff.
func (r *PaymentAttemptRepository) DeleteAbandoned(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.AttemptStatusCreated, cutoff).
		Delete(&domain.PaymentAttempt{})
	return res.RowsAffected, res.Error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		errors.Is(err, gorm.ErrDuplicatedKey)
}
