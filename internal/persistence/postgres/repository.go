// Package postgres provides a durable activity directory backed by PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/extracurricular/internal/domain"
)

// Repository provides Postgres-backed persistence for activities and rosters.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Seed inserts activities that do not exist yet, together with their seeded
// rosters. Existing activities keep their stored rosters.
func (r *Repository) Seed(ctx context.Context, activities []domain.Activity) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insertActivity = `INSERT INTO activities (name, description, schedule, max_participants, position)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (name) DO NOTHING`
	const insertParticipant = `INSERT INTO activity_participants (activity_name, email)
        VALUES ($1,$2)
        ON CONFLICT (activity_name, email) DO NOTHING`

	for position, a := range activities {
		tag, execErr := tx.Exec(ctx, insertActivity, a.Name, a.Description, a.Schedule, a.MaxParticipants, position)
		if execErr != nil {
			err = execErr
			return err
		}
		if tag.RowsAffected() == 0 {
			continue
		}
		for _, email := range a.Participants {
			if _, err = tx.Exec(ctx, insertParticipant, a.Name, email); err != nil {
				return err
			}
		}
	}

	err = tx.Commit(ctx)
	return err
}

// List returns every activity ordered by seed position, rosters in signup order.
func (r *Repository) List(ctx context.Context) ([]domain.Activity, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT name, description, schedule, max_participants
        FROM activities ORDER BY position, name`)
	if err != nil {
		return nil, err
	}

	results := make([]domain.Activity, 0)
	index := make(map[string]int)
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.Name, &a.Description, &a.Schedule, &a.MaxParticipants); err != nil {
			rows.Close()
			return nil, err
		}
		a.Participants = []string{}
		index[a.Name] = len(results)
		results = append(results, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = tx.Query(ctx, `SELECT activity_name, email FROM activity_participants ORDER BY participant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, email string
		if err := rows.Scan(&name, &email); err != nil {
			return nil, err
		}
		if i, ok := index[name]; ok {
			results[i].Participants = append(results[i].Participants, email)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

// AppendParticipant locks the activity row, applies the duplicate and capacity
// checks and appends the email in one transaction.
func (r *Repository) AppendParticipant(ctx context.Context, activityName, email string, opts domain.AppendOptions) (activity domain.Activity, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Activity{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `SELECT name, description, schedule, max_participants
        FROM activities WHERE name=$1 FOR UPDATE`, activityName)
	if err = row.Scan(&activity.Name, &activity.Description, &activity.Schedule, &activity.MaxParticipants); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrActivityNotFound
		}
		return domain.Activity{}, err
	}

	if activity.Participants, err = roster(ctx, tx, activityName); err != nil {
		return domain.Activity{}, err
	}
	if activity.HasParticipant(email) {
		err = domain.ErrAlreadySignedUp
		return domain.Activity{}, err
	}
	if opts.EnforceCapacity && activity.Full() {
		err = domain.ErrActivityFull
		return domain.Activity{}, err
	}

	tag, err := tx.Exec(ctx, `INSERT INTO activity_participants (activity_name, email)
        VALUES ($1,$2)
        ON CONFLICT (activity_name, email) DO NOTHING`, activityName, email)
	if err != nil {
		return domain.Activity{}, err
	}
	if tag.RowsAffected() == 0 {
		err = domain.ErrAlreadySignedUp
		return domain.Activity{}, err
	}
	activity.Participants = append(activity.Participants, email)

	if err = tx.Commit(ctx); err != nil {
		return domain.Activity{}, err
	}
	return activity, nil
}

func roster(ctx context.Context, tx pgx.Tx, activityName string) ([]string, error) {
	rows, err := tx.Query(ctx, `SELECT email FROM activity_participants
        WHERE activity_name=$1 ORDER BY participant_id`, activityName)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
