package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stms-api/internal/models"
)

type serverTimestamp struct{ t time.Time }

func (s serverTimestamp) Time() time.Time { return s.t }

func TestNormalizerInstantShapes(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	n := NewNormalizer(jakarta)
	want := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := map[string]interface{}{
		"time value":       want.In(jakarta),
		"time pointer":     &want,
		"server timestamp": serverTimestamp{t: want},
		"rfc3339":          "2025-03-10T12:00:00Z",
		"rfc3339 offset":   "2025-03-10T19:00:00+07:00",
		"datetime-local":   "2025-03-10T19:00",
		"local seconds":    "2025-03-10 19:00:00",
		"bytes":            []byte("2025-03-10T12:00:00Z"),
		"seconds map":      map[string]interface{}{"seconds": int64(1741608000), "nanoseconds": 0},
		"firestore json":   models.Record{"_seconds": float64(1741608000), "_nanoseconds": float64(0)},
		"unix seconds":     int64(1741608000),
		"unix millis":      int64(1741608000000),
		"float millis":     float64(1741608000000),
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			got := n.Instant(value)
			require.NotNil(t, got)
			assert.True(t, want.Equal(*got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestNormalizerInstantRejectsUnusableValues(t *testing.T) {
	n := NewNormalizer(nil)
	var nilTime *time.Time
	for _, value := range []interface{}{nil, "", "   ", "not a date", time.Time{}, nilTime, map[string]interface{}{"foo": 1}, struct{}{}, true, int64(-5), int64(1741608000000000)} {
		assert.Nil(t, n.Instant(value), "%#v", value)
	}
}

func TestNormalizerDateOnlyUsesSchoolZone(t *testing.T) {
	n := NewNormalizer(time.FixedZone("WIB", 7*60*60))
	got := n.Instant("2025-03-10")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, 3, 9, 17, 0, 0, 0, time.UTC), *got)
}

func TestNormalizeTimestampsCopiesRecord(t *testing.T) {
	n := NewNormalizer(nil)
	rec := models.Record{"id": "t1", "deadline": "2025-03-10T12:00:00Z", "createdAt": "garbage"}

	out := n.NormalizeTimestamps(rec, "deadline", "createdAt", "missing")

	assert.Equal(t, "2025-03-10T12:00:00Z", rec["deadline"])
	assert.Equal(t, "t1", out["id"])
	require.IsType(t, &time.Time{}, out["deadline"])
	assert.Nil(t, out["createdAt"])
	_, present := out["missing"]
	assert.True(t, present)
}

func TestNormalizerDecodesRecords(t *testing.T) {
	n := NewNormalizer(nil)

	users := n.Users([]models.Record{
		{"id": "u1", "uid": "fb-1", "name": " Ahmad ", "role": "Student", "classId": "c1"},
		{"id": "u2", "role": "teacher", "status": "BANNED"},
		{"name": "no id"},
	})
	require.Len(t, users, 2)
	assert.Equal(t, "Ahmad", users[0].Name)
	assert.Equal(t, models.RoleStudent, users[0].Role)
	assert.Equal(t, models.UserStatusActive, users[0].Status)
	assert.Equal(t, models.UserStatusBanned, users[1].Status)

	tasks := n.Tasks([]models.Record{
		{"id": "t1", "assignedClasses": []interface{}{"c1", "c1", " c2 ", ""}, "deadline": "2025-03-10T12:00"},
		{"id": "t2", "assignedClasses": "{c1,c3}"},
		{"id": "t3", "assignedClasses": `["c4"]`},
		{"id": "t4"},
	})
	require.Len(t, tasks, 4)
	assert.Equal(t, []string{"c1", "c2"}, tasks[0].AssignedClasses)
	require.NotNil(t, tasks[0].Deadline)
	assert.Equal(t, []string{"c1", "c3"}, tasks[1].AssignedClasses)
	assert.Equal(t, []string{"c4"}, tasks[2].AssignedClasses)
	assert.Empty(t, tasks[3].AssignedClasses)
	assert.Nil(t, tasks[3].Deadline)

	subs := n.Submissions([]models.Record{
		{"id": "a", "grade": "88"},
		{"id": "b", "grade": 87.6},
		{"id": "c", "grade": ""},
		{"id": "d", "grade": nil, "teacherComment": "Bagus"},
		{"id": "e", "grade": 120},
	})
	require.Len(t, subs, 5)
	assert.Equal(t, 88, *subs[0].Grade)
	assert.Equal(t, 88, *subs[1].Grade)
	assert.Nil(t, subs[2].Grade)
	assert.Nil(t, subs[3].Grade)
	require.NotNil(t, subs[3].TeacherComment)
	assert.Equal(t, "Bagus", *subs[3].TeacherComment)
	assert.Equal(t, 120, *subs[4].Grade)
}

func TestCanonicalizeSubmissions(t *testing.T) {
	users := []models.User{
		{ID: "u1", UID: "fb-1"},
		{ID: "u2", UID: "u1"},
	}
	subs := []models.Submission{
		{ID: "a", StudentID: "fb-1"},
		{ID: "b", StudentID: "u1"},
		{ID: "c", StudentID: "stranger"},
	}

	out := CanonicalizeSubmissions(users, subs)

	assert.Equal(t, "u1", out[0].StudentID)
	assert.Equal(t, "u1", out[1].StudentID)
	assert.Equal(t, "stranger", out[2].StudentID)
	assert.Equal(t, "fb-1", subs[0].StudentID)
}

func TestNormalizerSnapshotJoinsAcrossIdentities(t *testing.T) {
	n := NewNormalizer(nil)
	snapshot := n.Snapshot(
		[]models.Record{{"id": "u1", "uid": "fb-1", "role": "student", "classId": "c1"}},
		[]models.Record{{"id": "c1", "name": "X-1"}},
		[]models.Record{{"id": "t1", "assignedClasses": []string{"c1"}}},
		[]models.Record{{"id": "s1", "taskId": "t1", "studentId": "fb-1", "grade": 75}},
	)

	idx := NewIndex(snapshot)
	sub, ok := idx.Submission("t1", "u1")
	require.True(t, ok)
	assert.Equal(t, 75, *sub.Grade)
	assert.Zero(t, idx.Dropped())
}

func TestNormalizerSnapshotScopesTeacherByAuthUID(t *testing.T) {
	n := NewNormalizer(nil)
	snapshot := n.Snapshot(
		[]models.Record{
			{"id": "doc-t1", "uid": "fb-t1", "role": "teacher"},
			{"id": "u1", "uid": "fb-1", "role": "student", "classId": "c1"},
		},
		[]models.Record{{"id": "c1", "name": "X-1", "createdBy": "fb-t1"}},
		[]models.Record{{"id": "k1", "assignedClasses": []string{"c1"}, "createdBy": "fb-t1"}},
		[]models.Record{{"id": "s1", "taskId": "k1", "studentId": "fb-1", "grade": 80}},
	)

	assert.Equal(t, "doc-t1", snapshot.Classes[0].CreatedBy)
	assert.Equal(t, "doc-t1", snapshot.Tasks[0].CreatedBy)

	for _, viewer := range []string{"doc-t1", "fb-t1"} {
		scoped := snapshot.ScopeToTeacher(snapshot.CanonicalUserID(viewer))
		assert.Len(t, scoped.Classes, 1, viewer)
		assert.Len(t, scoped.Tasks, 1, viewer)
		assert.Len(t, scoped.Users, 1, viewer)
		assert.Len(t, scoped.Submissions, 1, viewer)
	}
	assert.Equal(t, "stranger", snapshot.CanonicalUserID("stranger"))
}
