package models

// Record is a raw document as fetched from a snapshot source, keyed by the
// portal's field names (id, classId, submittedAt, ...).
type Record map[string]interface{}

// Field names shared by every snapshot source.
const (
	FieldID              = "id"
	FieldUID             = "uid"
	FieldName            = "name"
	FieldEmail           = "email"
	FieldRole            = "role"
	FieldClassID         = "classId"
	FieldStatus          = "status"
	FieldCreatedAt       = "createdAt"
	FieldSubject         = "subject"
	FieldCreatedBy       = "createdBy"
	FieldTitle           = "title"
	FieldDescription     = "description"
	FieldDeadline        = "deadline"
	FieldAssignedClasses = "assignedClasses"
	FieldTaskID          = "taskId"
	FieldStudentID       = "studentId"
	FieldStudentName     = "studentName"
	FieldContent         = "content"
	FieldSubmittedAt     = "submittedAt"
	FieldGrade           = "grade"
	FieldTeacherComment  = "teacherComment"
	FieldGradedAt        = "gradedAt"
)

// Collection names of the portal data set.
const (
	CollectionUsers       = "users"
	CollectionClasses     = "classes"
	CollectionTasks       = "tasks"
	CollectionSubmissions = "submissions"
)

// RawSnapshot holds the four collections exactly as a snapshot source returned
// them.
type RawSnapshot struct {
	Users       []Record
	Classes     []Record
	Tasks       []Record
	Submissions []Record
}
