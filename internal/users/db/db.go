package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-volunteering/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- USERS ----------------

// CreateUser → insert the user and any events attached to it in one transaction
func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
			return err
		}
		if len(user.Events) == 0 {
			return nil
		}
		for _, e := range user.Events {
			e.UserID = &user.ID
		}
		_, err := tx.NewInsert().Model(&user.Events).Exec(ctx)
		return err
	})
}

// GetUserByID → one user with its events
func (d *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Relation("Events", orderEvents).
		Where("u.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUID → one user by its external identifier, without events
func (d *DB) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("u.uid = ?", uid).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers → every user with its events
func (d *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	list := []models.User{}
	err := d.Bun.NewSelect().
		Model(&list).
		Relation("Events", orderEvents).
		Order("u.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateUser → write only the given columns
func (d *DB) UpdateUser(ctx context.Context, user *models.User, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	_, err := d.Bun.NewUpdate().
		Model(user).
		Column(columns...).
		WherePK().
		Exec(ctx)
	return err
}

// DeleteUser → delete a user; the foreign key removes its events
func (d *DB) DeleteUser(ctx context.Context, id int64) error {
	_, err := d.Bun.NewDelete().
		Model((*models.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func orderEvents(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("e.id ASC")
}
