package postgres

import (
	"context"
	"errors"
	"fmt"

	"ratecache/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) Create(ctx context.Context, task domain.ConversionTask) error {
	const q = `
		insert into conversion_tasks(id, status, new_base_currency, start_time, end_time)
		values ($1, $2, $3, $4, $5);
	`
	if _, err := r.pool.Exec(ctx, q,
		task.ID, task.Status, task.NewBaseCurrency, task.StartTime, task.EndTime,
	); err != nil {
		return fmt.Errorf("failed to insert conversion task %s: %w", task.ID, err)
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ConversionTask, error) {
	const q = `
		select id, status, new_base_currency, start_time, end_time
		from conversion_tasks
		where id = $1;
	`
	var task domain.ConversionTask
	if err := r.pool.QueryRow(ctx, q, id).Scan(
		&task.ID,
		&task.Status,
		&task.NewBaseCurrency,
		&task.StartTime,
		&task.EndTime,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ConversionTask{}, domain.ErrTaskNotFound
		}
		return domain.ConversionTask{}, fmt.Errorf("failed to select conversion task %s: %w", id, err)
	}
	return task, nil
}

func (r *TaskRepository) Update(ctx context.Context, task domain.ConversionTask) error {
	const q = `
		update conversion_tasks
		set status = $2, end_time = $3
		where id = $1;
	`
	tag, err := r.pool.Exec(ctx, q, task.ID, task.Status, task.EndTime)
	if err != nil {
		return fmt.Errorf("failed to update conversion task %s: %w", task.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) FindActive(ctx context.Context) ([]domain.ConversionTask, error) {
	const q = `
		select id, status, new_base_currency, start_time, end_time
		from conversion_tasks
		where status = $1 or status = $2
		order by start_time;
	`
	rows, err := r.pool.Query(ctx, q, domain.ConversionCreated, domain.ConversionProcessing)
	if err != nil {
		return nil, fmt.Errorf("failed to query active conversion tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]domain.ConversionTask, 0, 4)
	for rows.Next() {
		var task domain.ConversionTask
		if err = rows.Scan(
			&task.ID, &task.Status, &task.NewBaseCurrency, &task.StartTime, &task.EndTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversion task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversion tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) HasActive(ctx context.Context) (bool, error) {
	const q = `select exists(select 1 from conversion_tasks where status = $1 or status = $2);`

	var active bool
	if err := r.pool.QueryRow(ctx, q,
		domain.ConversionCreated, domain.ConversionProcessing,
	).Scan(&active); err != nil {
		return false, fmt.Errorf("failed to check active conversion tasks: %w", err)
	}
	return active, nil
}
