package reporting

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/noah-isme/stms-api/internal/models"
)

// dateConverter matches server generated timestamp objects such as
// primitive.DateTime that can resolve themselves into a time.Time.
type dateConverter interface {
	Time() time.Time
}

// Numeric timestamps below maxEpochSeconds are Unix seconds; larger values up
// to maxEpochMillis are Unix milliseconds as written by JavaScript clients.
const (
	maxEpochSeconds = 100_000_000_000
	maxEpochMillis  = 100_000_000_000_000
)

// zone-less layouts are interpreted in the normaliser's location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Normalizer converts raw snapshot records into canonical models.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer builds a normaliser. Timestamps without an explicit zone are
// read in loc (UTC when nil).
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Instant resolves a timestamp-like value into a UTC instant. Absent, empty,
// zero or unparseable values yield nil.
func (n *Normalizer) Instant(value interface{}) (out *time.Time) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()

	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return instant(v)
	case *time.Time:
		if v == nil {
			return nil
		}
		return instant(*v)
	case dateConverter:
		return instant(v.Time())
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	case map[string]interface{}:
		return fromSeconds(v)
	case models.Record:
		return fromSeconds(v)
	case int, int32, int64, uint32, uint64, float64:
		epoch, err := cast.ToInt64E(v)
		if err != nil || epoch <= 0 {
			return nil
		}
		switch {
		case epoch < maxEpochSeconds:
			return instant(time.Unix(epoch, 0))
		case epoch < maxEpochMillis:
			return instant(time.UnixMilli(epoch))
		}
		return nil
	default:
		return nil
	}
}

// NormalizeTimestamps returns a copy of record where each named field holds a
// *time.Time, or nil when the source value was absent or unparseable.
func (n *Normalizer) NormalizeTimestamps(record models.Record, fields ...string) models.Record {
	out := make(models.Record, len(record)+len(fields))
	for key, value := range record {
		out[key] = value
	}
	for _, field := range fields {
		if ts := n.Instant(record[field]); ts != nil {
			out[field] = ts
		} else {
			out[field] = nil
		}
	}
	return out
}

func (n *Normalizer) parse(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return instant(t)
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, n.loc); err == nil {
			return instant(t)
		}
	}
	t, err := cast.ToTimeInDefaultLocationE(raw, n.loc)
	if err != nil {
		return nil
	}
	return instant(t)
}

func fromSeconds(raw map[string]interface{}) *time.Time {
	secsValue, ok := raw["seconds"]
	if !ok {
		secsValue, ok = raw["_seconds"]
	}
	if !ok {
		return nil
	}
	secs, err := cast.ToInt64E(secsValue)
	if err != nil {
		return nil
	}
	nanosValue, ok := raw["nanoseconds"]
	if !ok {
		nanosValue = raw["_nanoseconds"]
	}
	nanos := cast.ToInt64(nanosValue)
	return instant(time.Unix(secs, nanos))
}

func instant(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

// Snapshot decodes the four raw collections into a canonical snapshot. Student
// references on submissions and creator references on classes and tasks are
// rewritten to internal user ids.
func (n *Normalizer) Snapshot(users, classes, tasks, submissions []models.Record) Snapshot {
	decodedUsers := n.Users(users)
	ids := newIdentities(decodedUsers)
	decodedClasses := n.Classes(classes)
	for i := range decodedClasses {
		decodedClasses[i].CreatedBy = ids.canonical(decodedClasses[i].CreatedBy)
	}
	decodedTasks := n.Tasks(tasks)
	for i := range decodedTasks {
		decodedTasks[i].CreatedBy = ids.canonical(decodedTasks[i].CreatedBy)
	}
	return Snapshot{
		Users:       decodedUsers,
		Classes:     decodedClasses,
		Tasks:       decodedTasks,
		Submissions: CanonicalizeSubmissions(decodedUsers, n.Submissions(submissions)),
	}
}

// Users decodes user records.
func (n *Normalizer) Users(records []models.Record) []models.User {
	users := make([]models.User, 0, len(records))
	for _, rec := range records {
		rec = n.NormalizeTimestamps(rec, models.FieldCreatedAt)
		id := stringField(rec, models.FieldID)
		if id == "" {
			continue
		}
		status := models.UserStatus(strings.ToLower(stringField(rec, models.FieldStatus)))
		if status == "" {
			status = models.UserStatusActive
		}
		users = append(users, models.User{
			ID:        id,
			UID:       stringField(rec, models.FieldUID),
			Name:      stringField(rec, models.FieldName),
			Email:     stringField(rec, models.FieldEmail),
			Role:      models.UserRole(strings.ToLower(stringField(rec, models.FieldRole))),
			ClassID:   stringField(rec, models.FieldClassID),
			Status:    status,
			CreatedAt: timeField(rec, models.FieldCreatedAt),
		})
	}
	return users
}

// Classes decodes class records.
func (n *Normalizer) Classes(records []models.Record) []models.Class {
	classes := make([]models.Class, 0, len(records))
	for _, rec := range records {
		rec = n.NormalizeTimestamps(rec, models.FieldCreatedAt)
		id := stringField(rec, models.FieldID)
		if id == "" {
			continue
		}
		classes = append(classes, models.Class{
			ID:        id,
			Name:      stringField(rec, models.FieldName),
			Subject:   stringField(rec, models.FieldSubject),
			CreatedBy: stringField(rec, models.FieldCreatedBy),
			CreatedAt: timeField(rec, models.FieldCreatedAt),
		})
	}
	return classes
}

// Tasks decodes task records.
func (n *Normalizer) Tasks(records []models.Record) []models.Task {
	tasks := make([]models.Task, 0, len(records))
	for _, rec := range records {
		rec = n.NormalizeTimestamps(rec, models.FieldDeadline, models.FieldCreatedAt)
		id := stringField(rec, models.FieldID)
		if id == "" {
			continue
		}
		tasks = append(tasks, models.Task{
			ID:              id,
			Title:           stringField(rec, models.FieldTitle),
			Description:     stringField(rec, models.FieldDescription),
			Deadline:        timeField(rec, models.FieldDeadline),
			AssignedClasses: stringSliceField(rec, models.FieldAssignedClasses),
			CreatedBy:       stringField(rec, models.FieldCreatedBy),
			CreatedAt:       timeField(rec, models.FieldCreatedAt),
		})
	}
	return tasks
}

// Submissions decodes submission records. Fractional grades are rounded to the
// nearest integer; out-of-range grades are kept untouched.
func (n *Normalizer) Submissions(records []models.Record) []models.Submission {
	submissions := make([]models.Submission, 0, len(records))
	for _, rec := range records {
		rec = n.NormalizeTimestamps(rec, models.FieldSubmittedAt, models.FieldGradedAt)
		id := stringField(rec, models.FieldID)
		if id == "" {
			continue
		}
		submissions = append(submissions, models.Submission{
			ID:             id,
			TaskID:         stringField(rec, models.FieldTaskID),
			StudentID:      stringField(rec, models.FieldStudentID),
			StudentName:    stringField(rec, models.FieldStudentName),
			Content:        stringField(rec, models.FieldContent),
			SubmittedAt:    timeField(rec, models.FieldSubmittedAt),
			Grade:          gradeField(rec, models.FieldGrade),
			TeacherComment: optionalStringField(rec, models.FieldTeacherComment),
			GradedAt:       timeField(rec, models.FieldGradedAt),
		})
	}
	return submissions
}

// CanonicalizeSubmissions rewrites submission student references that use a
// user's auth uid to the user's internal id.
func CanonicalizeSubmissions(users []models.User, submissions []models.Submission) []models.Submission {
	ids := newIdentities(users)
	out := make([]models.Submission, len(submissions))
	for i, sub := range submissions {
		sub.StudentID = ids.canonical(sub.StudentID)
		out[i] = sub
	}
	return out
}

// identities resolves a user reference, either an internal id or an auth uid,
// to the internal id. A uid that collides with another user's id is ignored.
type identities struct {
	ids   map[string]struct{}
	byUID map[string]string
}

func newIdentities(users []models.User) identities {
	ids := make(map[string]struct{}, len(users))
	byUID := make(map[string]string, len(users))
	for _, user := range users {
		ids[user.ID] = struct{}{}
	}
	for _, user := range users {
		if user.UID == "" || user.UID == user.ID {
			continue
		}
		if _, taken := ids[user.UID]; taken {
			continue
		}
		byUID[user.UID] = user.ID
	}
	return identities{ids: ids, byUID: byUID}
}

func (i identities) canonical(ref string) string {
	if _, ok := i.ids[ref]; ok {
		return ref
	}
	if id, ok := i.byUID[ref]; ok {
		return id
	}
	return ref
}

func stringField(rec models.Record, key string) string {
	value, ok := rec[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(value))
}

func optionalStringField(rec models.Record, key string) *string {
	value, ok := rec[key]
	if !ok || value == nil {
		return nil
	}
	s := cast.ToString(value)
	return &s
}

func timeField(rec models.Record, key string) *time.Time {
	if ts, ok := rec[key].(*time.Time); ok {
		return ts
	}
	return nil
}

func gradeField(rec models.Record, key string) *int {
	value, ok := rec[key]
	if !ok || value == nil {
		return nil
	}
	if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
		return nil
	}
	f, err := cast.ToFloat64E(value)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	grade := int(math.Round(f))
	return &grade
}

func stringSliceField(rec models.Record, key string) []string {
	var values []string
	switch v := rec[key].(type) {
	case nil:
		return []string{}
	case []string:
		values = v
	case []interface{}:
		values = lo.Map(v, func(item interface{}, _ int) string { return cast.ToString(item) })
	case string:
		values = splitList(v)
	case []byte:
		values = splitList(string(v))
	default:
		values = cast.ToStringSlice(v)
	}
	values = lo.Map(values, func(item string, _ int) string { return strings.TrimSpace(item) })
	return lo.Uniq(lo.Compact(values))
}

// splitList accepts JSON arrays, Postgres array literals and comma separated lists.
func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var decoded []string
		if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
			return decoded
		}
	}
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "{"), "}")
	parts := strings.Split(raw, ",")
	return lo.Map(parts, func(item string, _ int) string { return strings.Trim(item, `" `) })
}
