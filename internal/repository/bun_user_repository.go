package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

// BunUserRepository implements UserRepository using Bun ORM
type BunUserRepository struct {
	db *bun.DB
}

// NewBunUserRepository creates a new Bun-based user repository
func NewBunUserRepository(db *bun.DB) *BunUserRepository {
	return &BunUserRepository{db: db}
}

// EnsurePseudoUser inserts the pseudo user or refreshes its activity.
func (r *BunUserRepository) EnsurePseudoUser(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res, err := r.db.NewInsert().
		Model(&models.PseudoUser{ID: id, LastActive: now.UTC()}).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("ensure pseudo user: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	if inserted > 0 {
		return true, nil
	}
	if err := r.TouchPseudoUser(ctx, id, now); err != nil {
		return false, err
	}
	return false, nil
}

// PseudoUserExists reports whether a pseudo user row exists.
func (r *BunUserRepository) PseudoUserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.PseudoUser)(nil)).
		Where("id = ?", id).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("pseudo user exists: %w", err)
	}
	return exists, nil
}

// CreatePseudoUser inserts a new pseudo user.
func (r *BunUserRepository) CreatePseudoUser(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := r.db.NewInsert().
		Model(&models.PseudoUser{ID: id, LastActive: now.UTC()}).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("pseudo user %s: %w", id, ErrConflict)
		}
		return fmt.Errorf("create pseudo user: %w", err)
	}
	return nil
}

// TouchPseudoUser refreshes last_active.
func (r *BunUserRepository) TouchPseudoUser(ctx context.Context, id uuid.UUID, now time.Time) error {
	res, err := r.db.NewUpdate().
		Model((*models.PseudoUser)(nil)).
		Set("last_active = ?", now.UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("touch pseudo user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("pseudo user %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetBaseUser retrieves a registered user by id.
func (r *BunUserRepository) GetBaseUser(ctx context.Context, id uuid.UUID) (*models.BaseUser, error) {
	user := new(models.BaseUser)
	err := r.db.NewSelect().
		Model(user).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get user by ID: %w", err)
	}
	return user, nil
}

// GetBaseUserByAuth0ID retrieves a registered user by identity-provider subject.
func (r *BunUserRepository) GetBaseUserByAuth0ID(ctx context.Context, auth0ID string) (*models.BaseUser, error) {
	user := new(models.BaseUser)
	err := r.db.NewSelect().
		Model(user).
		Where("auth0_id = ?", auth0ID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("user with auth0 id %s: %w", auth0ID, ErrNotFound)
		}
		return nil, fmt.Errorf("get user by auth0 id: %w", err)
	}
	return user, nil
}

// RegisterUser writes the base user and its pseudo user in one transaction.
func (r *BunUserRepository) RegisterUser(ctx context.Context, user *models.BaseUser) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		pseudo := &models.PseudoUser{ID: user.ID, LastActive: time.Now().UTC()}
		if _, err := tx.NewInsert().
			Model(pseudo).
			On("CONFLICT (id) DO UPDATE").
			Set("last_active = EXCLUDED.last_active").
			Exec(ctx); err != nil {
			return fmt.Errorf("upsert pseudo user: %w", err)
		}

		if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("base user %s: %w", user.ID, ErrConflict)
			}
			return fmt.Errorf("create base user: %w", err)
		}
		return nil
	})
}

// PatchBaseUser applies the non-nil fields of patch and returns the updated row.
func (r *BunUserRepository) PatchBaseUser(ctx context.Context, id uuid.UUID, patch models.UserPatch, now time.Time) (*models.BaseUser, error) {
	var updated *models.BaseUser
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewUpdate().
			Model((*models.BaseUser)(nil)).
			Set("updated_at = ?", now.UTC()).
			Where("id = ?", id)
		if patch.Username != nil {
			q = q.Set("username = ?", *patch.Username)
		}
		if patch.Gender != nil {
			q = q.Set("gender = ?", *patch.Gender)
		}
		if patch.FamilyName != nil {
			q = q.Set("family_name = ?", *patch.FamilyName)
		}
		if patch.GivenName != nil {
			q = q.Set("given_name = ?", *patch.GivenName)
		}
		if patch.BirthDate != nil {
			q = q.Set("birth_date = ?", patch.BirthDate.UTC())
		}

		res, err := q.Exec(ctx)
		if err != nil {
			return fmt.Errorf("patch user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("user %s: %w", id, ErrNotFound)
		}

		user := new(models.BaseUser)
		if err := tx.NewSelect().Model(user).Where("id = ?", id).Scan(ctx); err != nil {
			return fmt.Errorf("reload user: %w", err)
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListBaseUsers returns registered users, newest first.
func (r *BunUserRepository) ListBaseUsers(ctx context.Context, pageNum, pageSize int) (Page[models.BaseUser], error) {
	limit, offset := limitOffset(pageNum, pageSize)
	var users []models.BaseUser
	err := r.db.NewSelect().
		Model(&users).
		OrderExpr("created_at DESC").
		OrderExpr("id").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return Page[models.BaseUser]{}, fmt.Errorf("list users: %w", err)
	}
	return newPage(users, pageNum, pageSize), nil
}

// ActivityStats runs the dashboard counts concurrently.
//
// Averages divide the number of users active in a trailing window by the
// number of buckets in it (6 months, 8 weeks, 30 days).
func (r *BunUserRepository) ActivityStats(ctx context.Context, now time.Time) (*models.ActivityStats, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekday := (int(today.Weekday()) + 6) % 7 // Monday = 0
	weekStart := today.AddDate(0, 0, -weekday)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var stats models.ActivityStats
	var monthWindow, weekWindow, dayWindow int

	countPseudoSince := func(since time.Time, dst *int) func() error {
		return func() error {
			n, err := r.db.NewSelect().
				Model((*models.PseudoUser)(nil)).
				Where("last_active >= ?", since).
				Count(ctx)
			if err != nil {
				return fmt.Errorf("count active users: %w", err)
			}
			*dst = n
			return nil
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.db.NewSelect().Model((*models.GameBase)(nil)).Count(ctx)
		if err != nil {
			return fmt.Errorf("count games: %w", err)
		}
		stats.TotalGameCount = n
		return nil
	})
	g.Go(func() error {
		n, err := r.db.NewSelect().Model((*models.PseudoUser)(nil)).Count(ctx)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		stats.TotalUserCount = n
		return nil
	})
	g.Go(countPseudoSince(monthStart, &stats.Recent.ThisMonthUsers))
	g.Go(countPseudoSince(weekStart, &stats.Recent.ThisWeekUsers))
	g.Go(countPseudoSince(today, &stats.Recent.TodaysUsers))
	g.Go(countPseudoSince(today.AddDate(0, -6, 0), &monthWindow))
	g.Go(countPseudoSince(today.AddDate(0, 0, -56), &weekWindow))
	g.Go(countPseudoSince(today.AddDate(0, 0, -30), &dayWindow))

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.Average = models.AverageActivity{
		AvgMonthUsers: float64(monthWindow) / 6,
		AvgWeekUsers:  float64(weekWindow) / 8,
		AvgDailyUsers: float64(dayWindow) / 30,
	}
	return &stats, nil
}
