package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-volunteering/internal/events"
	"ms-volunteering/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- EVENTS ----------------

// CreateEvent → insert one event; the generated id is written back
func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	return err
}

// GetEventByID → fetch one event by its ID
func (d *DB) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("e.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListEvents → every event, claimed or not
func (d *DB) ListEvents(ctx context.Context) ([]models.Event, error) {
	list := []models.Event{}
	err := d.Bun.NewSelect().
		Model(&list).
		Order("e.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateEvent → write only the given columns
func (d *DB) UpdateEvent(ctx context.Context, event *models.Event, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	_, err := d.Bun.NewUpdate().
		Model(event).
		Column(columns...).
		WherePK().
		Exec(ctx)
	return err
}

// DeleteEvent → delete an event by ID
func (d *DB) DeleteEvent(ctx context.Context, id int64) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ---------------- QUERIES ----------------

// QueryUnclaimed → unclaimed events matching every constraint present in f
func (d *DB) QueryUnclaimed(ctx context.Context, f events.Filter) ([]models.Event, error) {
	result := []models.Event{}
	if f.NoMatch {
		return result, nil
	}

	q := d.Bun.NewSelect().
		Model(&result).
		Where("e.user_id IS NULL")

	contains := f.Contains()
	columns := make([]string, 0, len(contains))
	for column := range contains {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		q = q.Where(d.containsExpr(), bun.Ident("e."+column), contains[column])
	}

	if f.Zipcode != "" {
		q = q.Where("e.zipcode = ?", f.Zipcode)
	}

	if err := q.Order("e.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("query unclaimed events: %w", err)
	}
	return result, nil
}

// ListByOwner → events whose owner equals ownerID; nil selects unclaimed ones
func (d *DB) ListByOwner(ctx context.Context, ownerID *int64) ([]models.Event, error) {
	result := []models.Event{}
	q := d.Bun.NewSelect().Model(&result)
	if ownerID == nil {
		q = q.Where("e.user_id IS NULL")
	} else {
		q = q.Where("e.user_id = ?", *ownerID)
	}
	if err := q.Order("e.id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// containsExpr is a literal, case-sensitive substring test. LIKE is avoided
// because SQLite folds ASCII case and treats % and _ as wildcards.
func (d *DB) containsExpr() string {
	if d.Bun.Dialect().Name() == dialect.PG {
		return "strpos(?, ?) > 0"
	}
	return "instr(?, ?) > 0"
}
