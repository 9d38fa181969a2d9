package reporting

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stms-api/internal/models"
)

func eventIDs(events []ActivityEvent) []string {
	ids := make([]string, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.ID)
	}
	return ids
}

func TestBuildActivityFeedMergesSources(t *testing.T) {
	idx := NewIndex(fixtureSnapshot())

	events, err := BuildActivityFeed(idx, fixtureNow, FeedOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"deadline:t2",
		"submission:sub-2",
		"submission:sub-4",
		"task:t3",
		"student:s2",
		"submission:sub-1",
		"submission:sub-3",
	}, eventIDs(events))

	reminder := events[0]
	assert.Equal(t, ActivityDeadlineReminder, reminder.Kind)
	assert.Equal(t, 1, reminder.DaysUntilDeadline)
	assert.Equal(t, "Kuis Genetika", reminder.TaskTitle)

	graded := events[2]
	assert.True(t, graded.HasGrade)
	assert.Equal(t, 80, *graded.Grade)
	assert.Equal(t, "Doe, Jane", graded.StudentName)
	assert.Equal(t, "XI IPA 1", graded.ClassName)
	assert.False(t, events[1].HasGrade)
}

func TestBuildActivityFeedRecentStudentWindow(t *testing.T) {
	snapshot := Snapshot{
		Users: []models.User{
			{ID: "fresh", Name: "Baru", Role: models.RoleStudent, CreatedAt: at(-2 * day)},
			{ID: "stale", Name: "Lama", Role: models.RoleStudent, CreatedAt: at(-10 * day)},
			{ID: "future", Name: "Nanti", Role: models.RoleStudent, CreatedAt: at(day)},
			{ID: "unknown", Name: "Entah", Role: models.RoleStudent},
		},
	}

	events, err := BuildActivityFeed(NewIndex(snapshot), fixtureNow, FeedOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"student:fresh"}, eventIDs(events))
}

func TestBuildActivityFeedReminderWindow(t *testing.T) {
	snapshot := Snapshot{
		Tasks: []models.Task{
			{ID: "soon", Deadline: at(36 * time.Hour)},
			{ID: "edge", Deadline: at(3 * day)},
			{ID: "far", Deadline: at(3*day + time.Minute)},
			{ID: "past", Deadline: at(-time.Minute)},
			{ID: "open"},
		},
	}

	events, err := BuildActivityFeed(NewIndex(snapshot), fixtureNow, FeedOptions{})
	require.NoError(t, err)

	require.Equal(t, []string{"deadline:edge", "deadline:soon"}, eventIDs(events))
	assert.Equal(t, 3, events[0].DaysUntilDeadline)
	assert.Equal(t, 2, events[1].DaysUntilDeadline)
}

func TestBuildActivityFeedLimitAndOptions(t *testing.T) {
	snapshot := Snapshot{Users: []models.User{{ID: "s", Role: models.RoleStudent}}, Tasks: []models.Task{{ID: "t"}}}
	for i := 0; i < 15; i++ {
		snapshot.Tasks = append(snapshot.Tasks, models.Task{ID: string(rune('a' + i))})
		snapshot.Submissions = append(snapshot.Submissions, models.Submission{
			ID: string(rune('a' + i)), TaskID: string(rune('a' + i)), StudentID: "s", SubmittedAt: at(-time.Duration(i) * time.Hour),
		})
	}
	idx := NewIndex(snapshot)

	events, err := BuildActivityFeed(idx, fixtureNow, FeedOptions{})
	require.NoError(t, err)
	assert.Len(t, events, 10)
	assert.Equal(t, "submission:a", events[0].ID)

	events, err = BuildActivityFeed(idx, fixtureNow, FeedOptions{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, events, 3)

	_, err = BuildActivityFeed(idx, fixtureNow, FeedOptions{Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidOptions)
	_, err = BuildActivityFeed(idx, fixtureNow, FeedOptions{RecentWindow: -time.Hour})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestBuildActivityFeedStudentNameFallbacks(t *testing.T) {
	snapshot := Snapshot{
		Users: []models.User{
			{ID: "named", Name: "Citra", Role: models.RoleStudent},
			{ID: "denormalised", Role: models.RoleStudent},
			{ID: "mailed", Email: "dewi@school.id", Role: models.RoleStudent},
			{ID: "anonymous", Role: models.RoleStudent},
		},
		Tasks: []models.Task{{ID: "t"}},
		Submissions: []models.Submission{
			{ID: "1", TaskID: "t", StudentID: "named", StudentName: "Old Name", SubmittedAt: at(-1 * time.Hour)},
			{ID: "2", TaskID: "t", StudentID: "denormalised", StudentName: "Eka", SubmittedAt: at(-2 * time.Hour)},
			{ID: "3", TaskID: "t", StudentID: "mailed", SubmittedAt: at(-3 * time.Hour)},
			{ID: "4", TaskID: "t", StudentID: "anonymous", SubmittedAt: at(-4 * time.Hour)},
		},
	}

	events, err := BuildActivityFeed(NewIndex(snapshot), fixtureNow, FeedOptions{})
	require.NoError(t, err)
	require.Len(t, events, 4)

	names := make([]string, 0, len(events))
	for _, event := range events {
		names = append(names, event.StudentName)
	}
	assert.Equal(t, []string{"Citra", "Eka", "dewi", unknownStudentName}, names)
}

func TestBuildActivityFeedIsDeterministic(t *testing.T) {
	snapshot := fixtureSnapshot()
	same := *at(-6 * time.Hour)
	snapshot.Users = append(snapshot.Users, models.User{ID: "s5", Name: "Eko", Role: models.RoleStudent, ClassID: "c2", CreatedAt: &same})
	snapshot.Tasks = append(snapshot.Tasks, models.Task{ID: "t7", Title: "Baru", AssignedClasses: []string{"c2"}, CreatedAt: &same})
	snapshot.Submissions = append(snapshot.Submissions, models.Submission{ID: "sub-7", TaskID: "t7", StudentID: "s5", SubmittedAt: &same})

	first, err := BuildActivityFeed(NewIndex(snapshot), fixtureNow, FeedOptions{Limit: 20})
	require.NoError(t, err)
	second, err := BuildActivityFeed(NewIndex(snapshot), fixtureNow, FeedOptions{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	tied := []string{}
	for _, event := range first {
		if event.Timestamp.Equal(same) {
			tied = append(tied, event.ID)
		}
	}
	assert.Equal(t, []string{"submission:sub-7", "student:s5", "task:t7"}, tied)

	shuffled := append([]ActivityEvent(nil), first...)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	SortActivity(shuffled)
	assert.Equal(t, first, shuffled)
}
