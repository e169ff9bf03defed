package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ricirt/venturematch/internal/domain"
)

const taskColumns = `id, kind, dedup_key, payload, priority, status, attempts, runs, max_attempts,
	run_at, lease_until, last_error, created_at, updated_at`

type pgTaskRepository struct {
	pool *pgxpool.Pool
}

// NewPgTaskRepository returns a TaskRepository backed by PostgreSQL.
func NewPgTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &pgTaskRepository{pool: pool}
}

func (r *pgTaskRepository) CreateBatch(ctx context.Context, tasks []*domain.Task) ([]bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	created := make([]bool, len(tasks))
	for i, t := range tasks {
		payload, err := t.EncodePayload()
		if err != nil {
			return nil, err
		}

		var id string
		err = tx.QueryRow(ctx, `
			INSERT INTO tasks
				(id, kind, dedup_key, payload, priority, status, attempts, max_attempts,
				 run_at, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (dedup_key) DO NOTHING
			RETURNING id`,
			t.ID, t.Kind, t.DedupKey, payload, t.Priority, t.Status, t.Attempts, t.MaxAttempts,
			t.RunAt, t.CreatedAt, t.UpdatedAt,
		).Scan(&id)
		switch {
		case err == nil:
			created[i] = true
		case errors.Is(err, pgx.ErrNoRows):
			// Conflict: report the id already holding this dedup key.
			if err := tx.QueryRow(ctx,
				`SELECT id FROM tasks WHERE dedup_key = $1`, t.DedupKey).Scan(&id); err != nil {
				return nil, fmt.Errorf("lookup duplicate task: %w", err)
			}
		default:
			return nil, fmt.Errorf("insert task: %w", err)
		}
		t.ID = id
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tasks: %w", err)
	}
	return created, nil
}

func (r *pgTaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return t, err
}

func (r *pgTaskRepository) Claim(ctx context.Context, limit int, lease time.Duration) ([]*domain.Task, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		WITH due AS (
			SELECT id FROM tasks
			WHERE (status IN ('enqueued', 'retrying') AND run_at <= NOW())
			   OR (status = 'running' AND lease_until < NOW())
			ORDER BY array_position(ARRAY['high','normal','low']::text[], priority), run_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE tasks t
		SET status      = 'running',
		    attempts    = t.attempts + 1,
		    lease_until = NOW() + ($2 * INTERVAL '1 millisecond'),
		    updated_at  = NOW()
		FROM due
		WHERE t.id = due.id
		RETURNING t.id, t.kind, t.dedup_key, t.payload, t.priority, t.status, t.attempts,
		          t.runs, t.max_attempts, t.run_at, t.lease_until, t.last_error, t.created_at, t.updated_at`,
		limit, lease.Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("claim tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *pgTaskRepository) Start(ctx context.Context, id string, attempt int, lease time.Duration) (int, error) {
	var runs int
	err := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET runs        = runs + 1,
		    lease_until = NOW() + ($3 * INTERVAL '1 millisecond'),
		    updated_at  = NOW()
		WHERE id = $1 AND status = 'running' AND attempts = $2 AND lease_until > NOW()
		RETURNING runs`, id, attempt, lease.Milliseconds()).Scan(&runs)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrLeaseLost
	}
	if err != nil {
		return 0, fmt.Errorf("start task: %w", err)
	}
	return runs, nil
}

func (r *pgTaskRepository) Complete(ctx context.Context, id string, attempt int) error {
	return r.transition(ctx, `
		UPDATE tasks
		SET status = 'succeeded', lease_until = NULL, last_error = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'running' AND attempts = $2`, id, attempt)
}

func (r *pgTaskRepository) ScheduleRetry(ctx context.Context, id string, attempt int, runAt time.Time, errMsg string) error {
	return r.transition(ctx, `
		UPDATE tasks
		SET status = 'retrying', run_at = $3, last_error = $4, lease_until = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'running' AND attempts = $2`, id, attempt, runAt, errMsg)
}

func (r *pgTaskRepository) DeadLetter(ctx context.Context, id string, attempt int, errMsg string) error {
	return r.transition(ctx, `
		UPDATE tasks
		SET status = 'dead_lettered', last_error = $3, lease_until = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'running' AND attempts = $2`, id, attempt, errMsg)
}

// transition runs a fenced state change; zero affected rows means another
// worker reclaimed the task after our lease expired.
func (r *pgTaskRepository) transition(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLeaseLost
	}
	return nil
}

func (r *pgTaskRepository) ListByStatus(ctx context.Context, status domain.TaskStatus, limit int) ([]*domain.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE status = $1
		ORDER BY updated_at DESC
		LIMIT $2`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *pgTaskRepository) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var status domain.TaskStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan task count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *pgTaskRepository) Replay(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET status = 'enqueued', attempts = 0, runs = 0, run_at = NOW(), lease_until = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'dead_lettered'`, id)
	if err != nil {
		return fmt.Errorf("replay task: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrTaskNotReplayable
}

// ---- helpers ----

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	var payload []byte
	err := row.Scan(
		&t.ID, &t.Kind, &t.DedupKey, &payload, &t.Priority, &t.Status,
		&t.Attempts, &t.Runs, &t.MaxAttempts, &t.RunAt, &t.LeaseUntil, &t.LastError,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	// A malformed payload must not wedge the claim loop; the worker
	// dead-letters tasks carrying PayloadErr.
	t.PayloadErr = t.DecodePayload(payload)
	return &t, nil
}

func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	var result []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
