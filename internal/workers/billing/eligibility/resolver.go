// Package eligibility decides which monthly customers are due a payment
// reminder: paid for the reference month, not yet paid for the month after.
package eligibility

import (
	"context"
	"database/sql"
	"time"

	"parking-jobs/internal/common/database"
	apperrors "parking-jobs/internal/common/errors"
	"parking-jobs/internal/common/logger"
	"parking-jobs/internal/common/timeutil"
	"parking-jobs/internal/models"
)

const (
	supportedCarparksQuery = `
		SELECT carpark_id FROM carpark_config
		WHERE (accept_online_payment = TRUE OR accept_octopus_payment = TRUE)
			AND enable_monthly_rental = TRUE
			AND NOT (carpark_id = ANY($1))
		ORDER BY carpark_id`

	paidRentalsQuery = `
		SELECT DISTINCT r.user_id, r.id, r.carpark_id, c.name, r.start_date
		FROM user_carpark_rental r
		INNER JOIN carpark c ON c.id = r.carpark_id
		INNER JOIN payment p ON p.rental_id = r.id AND p.status = $1
		WHERE r.carpark_id = ANY($2) AND r.start_date >= $3 AND r.end_date <= $4
		ORDER BY c.name, r.user_id, r.id`

	paidUsersQuery = `
		SELECT DISTINCT r.user_id
		FROM user_carpark_rental r
		INNER JOIN payment p ON p.rental_id = r.id AND p.status = $1
		WHERE r.user_id = ANY($2) AND r.start_date >= $3 AND r.end_date <= $4`
)

// Resolver is shared by the reminder job (reference = today) and the staff
// summary (reference = last month).
type Resolver struct {
	db       *sql.DB
	excluded []int64
	logger   logger.Logger
}

func NewResolver(db *sql.DB, excludedCarparkIDs []int64, log logger.Logger) *Resolver {
	return &Resolver{
		db:       db,
		excluded: append([]int64{}, excludedCarparkIDs...),
		logger:   log,
	}
}

// Resolve returns the unpaid rentals for the month containing ref.
func (r *Resolver) Resolve(ctx context.Context, ref time.Time) ([]models.UnpaidRental, error) {
	carparkIDs, err := r.SupportedCarparks(ctx)
	if err != nil {
		return nil, err
	}
	return r.Unpaid(ctx, carparkIDs, ref)
}

// SupportedCarparks lists carparks with monthly rental enabled and at least
// one accepted payment method, minus the configured exclusions.
func (r *Resolver) SupportedCarparks(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, supportedCarparksQuery, database.Int64Array(r.excluded))
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("supported_carparks", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("supported_carparks", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("supported_carparks", err)
	}

	r.logger.Debug("supported carparks resolved", map[string]interface{}{
		"count":    len(ids),
		"excluded": r.excluded,
	})
	return ids, nil
}

// Unpaid returns the rentals in carparkIDs paid for ref's month whose user has
// no paid rental in the following month.
func (r *Resolver) Unpaid(ctx context.Context, carparkIDs []int64, ref time.Time) ([]models.UnpaidRental, error) {
	if len(carparkIDs) == 0 {
		return nil, nil
	}

	current := timeutil.MonthPeriod(ref)
	next := current.Next()

	paid, err := r.paidRentals(ctx, carparkIDs, current)
	if err != nil {
		return nil, err
	}
	if len(paid) == 0 {
		return nil, nil
	}

	userIDs := make([]int64, 0, len(paid))
	seen := make(map[int64]bool, len(paid))
	for _, p := range paid {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			userIDs = append(userIDs, p.UserID)
		}
	}

	renewed, err := r.paidUsers(ctx, userIDs, next)
	if err != nil {
		return nil, err
	}

	unpaid := make([]models.UnpaidRental, 0, len(paid))
	for _, p := range paid {
		if !renewed[p.UserID] {
			unpaid = append(unpaid, p)
		}
	}

	r.logger.Info("unpaid rentals resolved", map[string]interface{}{
		"reference":    current.Start.Format(timeutil.DateLayout),
		"paidCurrent":  len(paid),
		"renewedUsers": len(renewed),
		"unpaid":       len(unpaid),
	})
	return unpaid, nil
}

func (r *Resolver) paidRentals(ctx context.Context, carparkIDs []int64, period timeutil.Period) ([]models.UnpaidRental, error) {
	rows, err := r.db.QueryContext(ctx, paidRentalsQuery,
		models.PaymentStatusPaid,
		database.Int64Array(carparkIDs),
		period.Start.Format(timeutil.DateLayout),
		period.End.Format(timeutil.DateLayout),
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("paid_rentals", err)
	}
	defer rows.Close()

	var out []models.UnpaidRental
	for rows.Next() {
		var u models.UnpaidRental
		if err := rows.Scan(&u.UserID, &u.RentalID, &u.CarparkID, &u.CarparkName, &u.StartDate); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("paid_rentals", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("paid_rentals", err)
	}
	return out, nil
}

func (r *Resolver) paidUsers(ctx context.Context, userIDs []int64, period timeutil.Period) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx, paidUsersQuery,
		models.PaymentStatusPaid,
		database.Int64Array(userIDs),
		period.Start.Format(timeutil.DateLayout),
		period.End.Format(timeutil.DateLayout),
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("paid_users_next_period", err)
	}
	defer rows.Close()

	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("paid_users_next_period", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("paid_users_next_period", err)
	}
	return out, nil
}
