package reporting

import (
	"time"

	"github.com/noah-isme/stms-api/internal/models"
)

var fixtureNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func at(offset time.Duration) *time.Time {
	t := fixtureNow.Add(offset)
	return &t
}

func grade(v int) *int {
	return &v
}

const day = 24 * time.Hour

// fixtureSnapshot models one teacher with two classes:
//
//	c1 "XI IPA 1": s1 Ahmad, s2 "Doe, Jane"; tasks t1 (overdue), t2 (+1d), t3 (+5d)
//	c2 "XI IPS 2": s3 Budi, no submissions; task t4 (no deadline)
func fixtureSnapshot() Snapshot {
	return Snapshot{
		Users: []models.User{
			{ID: "teacher-1", Name: "Bu Rina", Role: models.RoleTeacher, Status: models.UserStatusActive},
			{ID: "s1", UID: "fb-s1", Name: "Ahmad", Email: "ahmad@school.id", Role: models.RoleStudent, ClassID: "c1", Status: models.UserStatusActive, CreatedAt: at(-30 * day)},
			{ID: "s2", Name: "Doe, Jane", Role: models.RoleStudent, ClassID: "c1", Status: models.UserStatusActive, CreatedAt: at(-2 * day)},
			{ID: "s3", Name: "Budi", Role: models.RoleStudent, ClassID: "c2", Status: models.UserStatusActive, CreatedAt: at(-10 * day)},
			{ID: "s4", Name: "Banned", Role: models.RoleStudent, ClassID: "c1", Status: models.UserStatusBanned},
		},
		Classes: []models.Class{
			{ID: "c2", Name: "XI IPS 2", Subject: "Sosiologi", CreatedBy: "teacher-1"},
			{ID: "c1", Name: "XI IPA 1", Subject: "Biologi", CreatedBy: "teacher-1"},
		},
		Tasks: []models.Task{
			{ID: "t3", Title: "Laporan Praktikum", Deadline: at(5 * day), AssignedClasses: []string{"c1"}, CreatedBy: "teacher-1", CreatedAt: at(-1 * day)},
			{ID: "t1", Title: "Essay Sel", Deadline: at(-2 * day), AssignedClasses: []string{"c1"}, CreatedBy: "teacher-1", CreatedAt: at(-20 * day)},
			{ID: "t2", Title: "Kuis Genetika", Deadline: at(1 * day), AssignedClasses: []string{"c1"}, CreatedBy: "teacher-1", CreatedAt: at(-9 * day)},
			{ID: "t4", Title: "Refleksi", AssignedClasses: []string{"c2"}, CreatedBy: "teacher-1"},
		},
		Submissions: []models.Submission{
			{ID: "sub-1", TaskID: "t1", StudentID: "s1", StudentName: "Ahmad", SubmittedAt: at(-3 * day), Grade: grade(90)},
			{ID: "sub-2", TaskID: "t2", StudentID: "s1", StudentName: "Ahmad", SubmittedAt: at(-1 * time.Hour)},
			{ID: "sub-3", TaskID: "t1", StudentID: "s2", StudentName: "Doe, Jane", SubmittedAt: at(-4 * day), Grade: grade(70)},
			{ID: "sub-4", TaskID: "t2", StudentID: "s2", StudentName: "Doe, Jane", SubmittedAt: at(-5 * time.Hour), Grade: grade(80)},
		},
	}
}
