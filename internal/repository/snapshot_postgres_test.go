package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stms-api/internal/models"
)

func newSnapshotMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPostgresSnapshotRepositoryLoad(t *testing.T) {
	db, mock, cleanup := newSnapshotMock(t)
	defer cleanup()
	repo := NewPostgresSnapshotRepository(db)

	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	deadline := time.Date(2025, 3, 12, 23, 59, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(selectUsersQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "uid", "name", "email", "role", "classId", "status", "createdAt"}).
			AddRow("s1", "fb-s1", "Ahmad", "ahmad@school.id", "student", "c1", "active", created).
			AddRow("t1", nil, "Bu Rina", "rina@school.id", "teacher", nil, "active", created))
	mock.ExpectQuery(regexp.QuoteMeta(selectClassesQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "subject", "createdBy", "createdAt"}).
			AddRow("c1", "XI IPA 1", "Biologi", "t1", created))
	mock.ExpectQuery(regexp.QuoteMeta(selectTasksQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "deadline", "createdBy", "createdAt", "assignedClasses"}).
			AddRow("task-1", "Essay", "", deadline, "t1", created, "c1,c2"))
	mock.ExpectQuery(regexp.QuoteMeta(selectSubmissionsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "taskId", "studentId", "studentName", "content", "submittedAt", "grade", "teacherComment", "gradedAt"}).
			AddRow("sub-1", "task-1", "fb-s1", "Ahmad", "jawaban", created, int64(88), nil, nil))

	raw, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, raw.Users, 2)
	assert.Equal(t, "c1", raw.Users[0][models.FieldClassID])
	assert.Nil(t, raw.Users[1][models.FieldClassID])
	require.Len(t, raw.Tasks, 1)
	assert.Equal(t, "c1,c2", raw.Tasks[0][models.FieldAssignedClasses])
	require.Len(t, raw.Submissions, 1)
	assert.Equal(t, int64(88), raw.Submissions[0][models.FieldGrade])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotRepositoryLoadError(t *testing.T) {
	db, mock, cleanup := newSnapshotMock(t)
	defer cleanup()
	repo := NewPostgresSnapshotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(selectUsersQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(selectClassesQuery)).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query classes")
	assert.NoError(t, mock.ExpectationsWereMet())
}
