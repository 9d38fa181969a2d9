package reporting

import (
	"strconv"
	"time"

	"github.com/noah-isme/stms-api/internal/models"
	"github.com/noah-isme/stms-api/pkg/export"
)

const (
	gradebookFilePrefix = "rekap_nilai_stms_"
	noClassPlaceholder  = "-"
	cellSubmitted       = "Submitted"
	cellMissing         = "Missing"
)

// GradebookCell is the state of one student×task pair.
type GradebookCell struct {
	TaskID     string     `json:"taskId"`
	Status     TaskStatus `json:"status"`
	Grade      *int       `json:"grade,omitempty"`
	Applicable bool       `json:"applicable"`
}

// ExportValue renders the cell for tabular exports: the grade, "Submitted" or
// "Missing".
func (c GradebookCell) ExportValue() string {
	switch c.Status {
	case TaskStatusGraded:
		if c.Grade != nil {
			return strconv.Itoa(*c.Grade)
		}
		return cellSubmitted
	case TaskStatusSubmitted:
		return cellSubmitted
	default:
		return cellMissing
	}
}

// GradebookRow is one student line of the gradebook.
type GradebookRow struct {
	StudentID   string          `json:"studentId"`
	StudentName string          `json:"studentName"`
	ClassID     string          `json:"classId,omitempty"`
	ClassName   string          `json:"className,omitempty"`
	Cells       []GradebookCell `json:"cells"`
}

// GradebookColumn describes one task column.
type GradebookColumn struct {
	TaskID   string     `json:"taskId"`
	Title    string     `json:"title"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// Gradebook is the students × tasks matrix.
type Gradebook struct {
	GeneratedAt time.Time         `json:"-"`
	Columns     []GradebookColumn `json:"columns"`
	Rows        []GradebookRow    `json:"rows"`
}

// BuildGradebook lays out students by name and tasks by deadline. A cell whose
// task is not assigned to the student's class is marked not applicable and
// still classified, so it exports as "Missing" unless the student submitted.
func BuildGradebook(idx *Index, students []models.User, tasks []models.Task, now time.Time) Gradebook {
	students = append([]models.User(nil), students...)
	sortStudents(students)
	tasks = append([]models.Task(nil), tasks...)
	sortTasks(tasks)

	book := Gradebook{
		GeneratedAt: now.UTC(),
		Columns:     make([]GradebookColumn, 0, len(tasks)),
		Rows:        make([]GradebookRow, 0, len(students)),
	}
	for _, task := range tasks {
		book.Columns = append(book.Columns, GradebookColumn{TaskID: task.ID, Title: task.Title, Deadline: task.Deadline})
	}
	for _, student := range students {
		row := GradebookRow{
			StudentID:   student.ID,
			StudentName: student.DisplayName(),
			ClassID:     student.ClassID,
			ClassName:   idx.ClassName(student.ClassID),
			Cells:       make([]GradebookCell, 0, len(tasks)),
		}
		for _, task := range tasks {
			cell := GradebookCell{TaskID: task.ID, Applicable: task.AssignedTo(student.ClassID)}
			var submission *models.Submission
			if sub, ok := idx.Submission(task.ID, student.ID); ok {
				submission = &sub
				cell.Grade = sub.Grade
			}
			cell.Status = ClassifyTask(task, submission, now)
			row.Cells = append(row.Cells, cell)
		}
		book.Rows = append(book.Rows, row)
	}
	return book
}

// Dataset flattens the gradebook into the export layout:
// Name, Class, then one column per task title.
func (g Gradebook) Dataset() export.Dataset {
	headers := make([]string, 0, len(g.Columns)+2)
	headers = append(headers, "Name", "Class")
	for _, column := range g.Columns {
		headers = append(headers, column.Title)
	}
	rows := make([][]string, 0, len(g.Rows))
	for _, row := range g.Rows {
		className := row.ClassName
		if className == "" {
			className = noClassPlaceholder
		}
		record := make([]string, 0, len(headers))
		record = append(record, row.StudentName, className)
		for _, cell := range row.Cells {
			record = append(record, cell.ExportValue())
		}
		rows = append(rows, record)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// ExportFilename returns rekap_nilai_stms_<YYYY-MM-DD>.<ext> for the UTC date of now.
func ExportFilename(now time.Time, ext string) string {
	return gradebookFilePrefix + now.UTC().Format("2006-01-02") + "." + ext
}
