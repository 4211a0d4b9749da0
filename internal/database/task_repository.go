package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/thenoetrevino/kanban/internal/models"
	"github.com/thenoetrevino/kanban/internal/position"
)

// TaskRepo handles all task-related database operations.
type TaskRepo struct {
	q querier
}

// CreateTaskParams holds the columns written when a task is created
type CreateTaskParams struct {
	ListID      int
	BoardID     int
	Title       string
	Description string
	Priority    models.Priority
	DueDate     *time.Time
	Labels      []models.Label
	Assignees   []string
}

// UpdateTaskParams holds the editable columns of a task
type UpdateTaskParams struct {
	Title       string
	Description string
	Priority    models.Priority
	DueDate     *time.Time
	Labels      []models.Label
}

const taskColumns = `id, list_id, board_id, title, description, position, priority, due_date, labels, created_at, updated_at`

// CreateTask appends a task to its list: position is max+1, or 0 for an empty list
func (r *TaskRepo) CreateTask(ctx context.Context, p CreateTaskParams) (*models.Task, error) {
	if p.Priority == "" {
		p.Priority = models.PriorityMedium
	}
	labels, err := encodeLabels(p.Labels)
	if err != nil {
		return nil, err
	}

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO tasks (list_id, board_id, title, description, position, priority, due_date, labels)
		 SELECT ?, ?, ?, ?, COALESCE(MAX(position) + 1, 0), ?, ?, ? FROM tasks WHERE list_id = ?`,
		p.ListID, p.BoardID, p.Title, p.Description, string(p.Priority), p.DueDate, labels, p.ListID)
	if err != nil {
		return nil, fmt.Errorf("inserting task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	for _, userID := range p.Assignees {
		if err := r.AddAssignee(ctx, int(id), userID); err != nil {
			return nil, err
		}
	}

	return r.GetTask(ctx, int(id))
}

// GetTask loads a task with its assignees
func (r *TaskRepo) GetTask(ctx context.Context, id int) (*models.Task, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, notFound(err, "task", id)
	}
	if err := r.loadAssignees(ctx, []*models.Task{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTasksByBoard returns every task on a board ordered by list, then position
func (r *TaskRepo) GetTasksByBoard(ctx context.Context, boardID int) ([]*models.Task, error) {
	return r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE board_id = ? ORDER BY list_id, position, id`, boardID)
}

// GetTasksByList returns a list's tasks in display order
func (r *TaskRepo) GetTasksByList(ctx context.Context, listID int) ([]*models.Task, error) {
	return r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE list_id = ? ORDER BY position, id`, listID)
}

// SearchTasks returns the board's tasks whose title or description contains query
func (r *TaskRepo) SearchTasks(ctx context.Context, boardID int, query string) ([]*models.Task, error) {
	pattern := "%" + escapeLike(query) + "%"
	return r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE board_id = ? AND (title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')
		 ORDER BY updated_at DESC, id DESC`, boardID, pattern, pattern)
}

// GetTaskPositions returns a list's task scope sorted by position then id
func (r *TaskRepo) GetTaskPositions(ctx context.Context, listID int) ([]position.Item, error) {
	return scanPositions(ctx, r.q, `SELECT id, position FROM tasks WHERE list_id = ? ORDER BY position, id`, listID)
}

// SetTaskPositions places each task in listID at the given position
func (r *TaskRepo) SetTaskPositions(ctx context.Context, listID int, items []position.Item) error {
	for _, it := range items {
		res, err := r.q.ExecContext(ctx,
			`UPDATE tasks SET list_id = ?, position = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			listID, it.Position, it.ID)
		if err != nil {
			return fmt.Errorf("updating position of task %d: %w", it.ID, err)
		}
		if err := expectOne(res, "task", it.ID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTask replaces the editable fields of a task. Position and list are untouched.
func (r *TaskRepo) UpdateTask(ctx context.Context, id int, p UpdateTaskParams) error {
	labels, err := encodeLabels(p.Labels)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, priority = ?, due_date = ?, labels = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.Title, p.Description, string(p.Priority), p.DueDate, labels, id)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return expectOne(res, "task", id)
}

// DeleteTask removes a task
func (r *TaskRepo) DeleteTask(ctx context.Context, id int) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return expectOne(res, "task", id)
}

// AddAssignee assigns userID to the task. Re-assigning is a no-op.
func (r *TaskRepo) AddAssignee(ctx context.Context, taskID int, userID string) error {
	if _, err := r.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO task_assignees (task_id, user_id) VALUES (?, ?)`, taskID, userID); err != nil {
		return fmt.Errorf("adding assignee: %w", err)
	}
	return nil
}

// RemoveAssignee unassigns userID from the task. Removing a non-assignee is a no-op.
func (r *TaskRepo) RemoveAssignee(ctx context.Context, taskID int, userID string) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM task_assignees WHERE task_id = ? AND user_id = ?`, taskID, userID); err != nil {
		return fmt.Errorf("removing assignee: %w", err)
	}
	return nil
}

// UnassignFromBoard removes userID from every task on the board and returns
// the number of assignments dropped
func (r *TaskRepo) UnassignFromBoard(ctx context.Context, boardID int, userID string) (int, error) {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM task_assignees
		WHERE user_id = ? AND task_id IN (SELECT id FROM tasks WHERE board_id = ?)`, userID, boardID)
	if err != nil {
		return 0, fmt.Errorf("unassigning %s from board %d: %w", userID, boardID, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// TouchTask bumps updated_at
func (r *TaskRepo) TouchTask(ctx context.Context, id int) error {
	_, err := r.q.ExecContext(ctx, `UPDATE tasks SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}

func (r *TaskRepo) queryTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task rows: %w", err)
	}
	// release the connection before the follow-up query
	rows.Close()

	if err := r.loadAssignees(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// loadAssignees fills Assignees for a batch of tasks with one query
func (r *TaskRepo) loadAssignees(ctx context.Context, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	byID := make(map[int]*models.Task, len(tasks))
	args := make([]any, 0, len(tasks))
	for _, t := range tasks {
		t.Assignees = []string{}
		byID[t.ID] = t
		args = append(args, t.ID)
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT task_id, user_id FROM task_assignees WHERE task_id IN (`+placeholders(len(args))+`) ORDER BY task_id, user_id`,
		args...)
	if err != nil {
		return fmt.Errorf("querying assignees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID int
		var userID string
		if err := rows.Scan(&taskID, &userID); err != nil {
			return fmt.Errorf("scanning assignee: %w", err)
		}
		if t, ok := byID[taskID]; ok {
			t.Assignees = append(t.Assignees, userID)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(s rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var priority, labels string
	var due sql.NullTime
	if err := s.Scan(&t.ID, &t.ListID, &t.BoardID, &t.Title, &t.Description, &t.Position,
		&priority, &due, &labels, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Priority = models.Priority(priority)
	t.DueDate = nullTimeToPtr(due)

	decoded, err := decodeLabels(labels)
	if err != nil {
		return nil, err
	}
	t.Labels = decoded
	return t, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
