package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/stms-api/internal/models"
)

const (
	selectUsersQuery = `SELECT id, uid, name, email, role, class_id AS "classId", status, created_at AS "createdAt" FROM users`

	selectClassesQuery = `SELECT id, name, subject, created_by AS "createdBy", created_at AS "createdAt" FROM classes`

	selectTasksQuery = `SELECT t.id, t.title, t.description, t.deadline, t.created_by AS "createdBy", t.created_at AS "createdAt",
        COALESCE(string_agg(tc.class_id, ',' ORDER BY tc.class_id), '') AS "assignedClasses"
        FROM tasks t LEFT JOIN task_classes tc ON tc.task_id = t.id
        GROUP BY t.id, t.title, t.description, t.deadline, t.created_by, t.created_at`

	selectSubmissionsQuery = `SELECT id, task_id AS "taskId", student_id AS "studentId", student_name AS "studentName", content,
        submitted_at AS "submittedAt", grade, teacher_comment AS "teacherComment", graded_at AS "gradedAt" FROM submissions`
)

// PostgresSnapshotRepository reads the portal collections from PostgreSQL.
// Columns are aliased to the portal field names so every source yields the
// same record shape.
type PostgresSnapshotRepository struct {
	db *sqlx.DB
}

// NewPostgresSnapshotRepository constructs a PostgresSnapshotRepository.
func NewPostgresSnapshotRepository(db *sqlx.DB) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{db: db}
}

// Load fetches each collection with an independent query.
func (r *PostgresSnapshotRepository) Load(ctx context.Context) (*models.RawSnapshot, error) {
	users, err := r.query(ctx, models.CollectionUsers, selectUsersQuery)
	if err != nil {
		return nil, err
	}
	classes, err := r.query(ctx, models.CollectionClasses, selectClassesQuery)
	if err != nil {
		return nil, err
	}
	tasks, err := r.query(ctx, models.CollectionTasks, selectTasksQuery)
	if err != nil {
		return nil, err
	}
	submissions, err := r.query(ctx, models.CollectionSubmissions, selectSubmissionsQuery)
	if err != nil {
		return nil, err
	}
	return &models.RawSnapshot{Users: users, Classes: classes, Tasks: tasks, Submissions: submissions}, nil
}

// Ping checks the connection for readiness probes.
func (r *PostgresSnapshotRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresSnapshotRepository) query(ctx context.Context, collection, query string) ([]models.Record, error) {
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	records := make([]models.Record, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		records = append(records, models.Record(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return records, nil
}
