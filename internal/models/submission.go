package models

import "time"

// Submission is a student's attempt against one task.
type Submission struct {
	ID             string     `db:"id" bson:"_id" json:"id"`
	TaskID         string     `db:"task_id" bson:"taskId" json:"taskId"`
	StudentID      string     `db:"student_id" bson:"studentId" json:"studentId"`
	StudentName    string     `db:"student_name" bson:"studentName" json:"studentName,omitempty"`
	Content        string     `db:"content" bson:"content" json:"content,omitempty"`
	SubmittedAt    *time.Time `db:"submitted_at" bson:"submittedAt" json:"submittedAt,omitempty"`
	Grade          *int       `db:"grade" bson:"grade" json:"grade,omitempty"`
	TeacherComment *string    `db:"teacher_comment" bson:"teacherComment" json:"teacherComment,omitempty"`
	GradedAt       *time.Time `db:"graded_at" bson:"gradedAt" json:"gradedAt,omitempty"`
}

// IsGraded reports whether the submission carries a grade.
func (s Submission) IsGraded() bool {
	return s.Grade != nil
}
