package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/stms-api/internal/dto"
	"github.com/noah-isme/stms-api/internal/models"
	"github.com/noah-isme/stms-api/internal/reporting"
	appErrors "github.com/noah-isme/stms-api/pkg/errors"
	"github.com/noah-isme/stms-api/pkg/jobs"
	"github.com/noah-isme/stms-api/pkg/logger"
)

const (
	snapshotCacheKey     = "stms:snapshot"
	snapshotCachePattern = "stms:*"

	// SnapshotWarmJob identifies the background snapshot reload.
	SnapshotWarmJob = "snapshot-warm"

	scopeTeacher = "teacher"
	scopeAll     = "all"
)

type snapshotSource interface {
	Load(ctx context.Context) (*models.RawSnapshot, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ReportServiceConfig tunes report generation.
type ReportServiceConfig struct {
	SourceName  string
	CacheTTL    time.Duration
	LoadTimeout time.Duration
	Location    *time.Location
	Feed        reporting.FeedOptions
}

// ReportQuery identifies the caller and the slice of data a report covers.
type ReportQuery struct {
	ViewerID   string          `validate:"required"`
	ViewerRole models.UserRole `validate:"required,oneof=admin teacher student"`
	ClassID    string          `validate:"omitempty,max=128"`
	AllClasses bool
}

// ReportService loads portal snapshots and derives reports from them.
type ReportService struct {
	source     snapshotSource
	normalizer *reporting.Normalizer
	cache      *CacheService
	metrics    *MetricsService
	warmer     jobEnqueuer
	validator  *validator.Validate
	logger     *zap.Logger
	loads      singleflight.Group
	now        func() time.Time
	cfg        ReportServiceConfig
}

// ReportServiceParams groups constructor dependencies.
type ReportServiceParams struct {
	Source    snapshotSource
	Cache     *CacheService
	Metrics   *MetricsService
	Warmer    jobEnqueuer
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    ReportServiceConfig
}

// NewReportService constructs a ReportService.
func NewReportService(params ReportServiceParams) *ReportService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 30 * time.Second
	}
	if cfg.SourceName == "" {
		cfg.SourceName = "unknown"
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		source:     params.Source,
		normalizer: reporting.NewNormalizer(cfg.Location),
		cache:      params.Cache,
		metrics:    params.Metrics,
		warmer:     params.Warmer,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Overview returns headline counts, class metrics and the activity feed.
func (s *ReportService) Overview(ctx context.Context, q ReportQuery) (*dto.OverviewReport, bool, error) {
	defer s.observe("overview", time.Now())
	if err := s.requireStaff(q); err != nil {
		return nil, false, err
	}
	idx, hit, err := s.index(ctx, q)
	if err != nil {
		return nil, false, err
	}
	now := s.now()
	classes := make([]reporting.ClassMetrics, 0, len(idx.Classes()))
	for _, class := range idx.Classes() {
		classes = append(classes, reporting.ComputeClass(idx, class, now))
	}
	feed, err := s.feed(idx, now, 0)
	if err != nil {
		return nil, false, err
	}
	return &dto.OverviewReport{
		GeneratedAt: now.UTC(),
		Scope:       scopeName(q),
		Counts:      reporting.ComputeOverview(idx, now),
		Classes:     classes,
		Activity:    feed,
	}, hit, nil
}

// StudentReport returns the metrics and task list of one student. Students may
// only request their own report.
func (s *ReportService) StudentReport(ctx context.Context, q ReportQuery, studentID string) (*dto.StudentReport, bool, error) {
	defer s.observe("student", time.Now())
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if err := s.validate(q); err != nil {
		return nil, false, err
	}
	idx, hit, err := s.index(ctx, q)
	if err != nil {
		return nil, false, err
	}
	student, ok := idx.Student(studentID)
	if q.ViewerRole == models.RoleStudent {
		self, found := idx.Student(q.ViewerID)
		if !found || !ok || self.ID != student.ID {
			return nil, false, appErrors.ErrForbidden
		}
	}
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	now := s.now()
	return &dto.StudentReport{
		GeneratedAt: now.UTC(),
		Metrics:     reporting.ComputeStudent(idx, student, now),
		Tasks:       reporting.StudentProgress(idx, student, now),
	}, hit, nil
}

// ClassReport returns class metrics with per-task and per-student breakdowns.
func (s *ReportService) ClassReport(ctx context.Context, q ReportQuery, classID string) (*dto.ClassReport, bool, error) {
	defer s.observe("class", time.Now())
	if classID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "class id is required")
	}
	if err := s.requireStaff(q); err != nil {
		return nil, false, err
	}
	idx, hit, err := s.index(ctx, q)
	if err != nil {
		return nil, false, err
	}
	class, ok := idx.Class(classID)
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	now := s.now()
	tasks := idx.TasksForClass(class.ID)
	students := idx.StudentsInClass(class.ID)
	report := &dto.ClassReport{
		GeneratedAt: now.UTC(),
		Metrics:     reporting.ComputeClass(idx, class, now),
		Tasks:       make([]reporting.TaskMetrics, 0, len(tasks)),
		Students:    make([]reporting.StudentMetrics, 0, len(students)),
	}
	for _, task := range tasks {
		report.Tasks = append(report.Tasks, reporting.ComputeTask(idx, task, now))
	}
	for _, student := range students {
		report.Students = append(report.Students, reporting.ComputeStudent(idx, student, now))
	}
	return report, hit, nil
}

// Gradebook builds the students × tasks matrix, optionally narrowed to one class.
func (s *ReportService) Gradebook(ctx context.Context, q ReportQuery) (*reporting.Gradebook, bool, error) {
	defer s.observe("gradebook", time.Now())
	if err := s.requireStaff(q); err != nil {
		return nil, false, err
	}
	idx, hit, err := s.index(ctx, q)
	if err != nil {
		return nil, false, err
	}
	students, tasks := idx.Students(), idx.Tasks()
	if q.ClassID != "" {
		if _, ok := idx.Class(q.ClassID); !ok {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		students = idx.StudentsInClass(q.ClassID)
		tasks = idx.TasksForClass(q.ClassID)
	}
	book := reporting.BuildGradebook(idx, students, tasks, s.now())
	return &book, hit, nil
}

// Activity returns the activity feed. A zero limit uses the configured default.
func (s *ReportService) Activity(ctx context.Context, q ReportQuery, limit int) (*dto.ActivityReport, bool, error) {
	defer s.observe("activity", time.Now())
	if err := s.requireStaff(q); err != nil {
		return nil, false, err
	}
	if limit < 0 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "limit must not be negative")
	}
	idx, hit, err := s.index(ctx, q)
	if err != nil {
		return nil, false, err
	}
	now := s.now()
	events, err := s.feed(idx, now, limit)
	if err != nil {
		return nil, false, err
	}
	return &dto.ActivityReport{GeneratedAt: now.UTC(), Events: events}, hit, nil
}

// StudentOverview returns the calling student's own dashboard.
func (s *ReportService) StudentOverview(ctx context.Context, q ReportQuery) (*dto.StudentOverview, bool, error) {
	defer s.observe("student_overview", time.Now())
	if err := s.validate(q); err != nil {
		return nil, false, err
	}
	if q.ViewerRole != models.RoleStudent {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "only students have a personal overview")
	}
	idx, hit, err := s.index(ctx, q)
	if err != nil {
		return nil, false, err
	}
	student, ok := idx.Student(q.ViewerID)
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	now := s.now()
	metrics := reporting.ComputeStudent(idx, student, now)
	progress := reporting.StudentProgress(idx, student, now)
	graded := make([]reporting.TaskProgress, 0, metrics.GradedCount)
	for _, row := range progress {
		if row.Status == reporting.TaskStatusGraded {
			graded = append(graded, row)
		}
	}
	return &dto.StudentOverview{
		GeneratedAt:    now.UTC(),
		StudentID:      student.ID,
		Name:           metrics.Name,
		ClassName:      metrics.ClassName,
		TotalTasks:     metrics.ApplicableTasks,
		CompletedTasks: metrics.SubmittedCount,
		PendingTasks:   metrics.PendingCount,
		OverdueTasks:   metrics.OverdueCount,
		AverageGrade:   metrics.AverageGrade,
		CompletionRate: metrics.CompletionRate,
		GradedTasks:    graded,
	}, hit, nil
}

// Refresh drops cached snapshots and schedules a background reload when a
// warmer is configured.
func (s *ReportService) Refresh(ctx context.Context) error {
	if err := s.cache.Invalidate(ctx, snapshotCachePattern); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refresh report cache")
	}
	s.logger.Info("report snapshot cache invalidated")
	s.ScheduleWarm()
	return nil
}

// ScheduleWarm queues a background snapshot reload.
func (s *ReportService) ScheduleWarm() {
	if s.warmer == nil {
		return
	}
	if err := s.warmer.Enqueue(jobs.Job{ID: SnapshotWarmJob, Kind: SnapshotWarmJob}); err != nil {
		s.logger.Warn("snapshot warm not scheduled", zap.Error(err))
	}
}

// Warm loads the snapshot into the cache. It is the handler of the warm job.
func (s *ReportService) Warm(ctx context.Context) error {
	_, _, err := s.snapshot(ctx)
	return err
}

func (s *ReportService) validate(q ReportQuery) error {
	if err := s.validator.Struct(q); err != nil {
		return appErrors.Validation(err, "invalid report query")
	}
	return nil
}

func (s *ReportService) requireStaff(q ReportQuery) error {
	if err := s.validate(q); err != nil {
		return err
	}
	if q.ViewerRole != models.RoleAdmin && q.ViewerRole != models.RoleTeacher {
		return appErrors.ErrForbidden
	}
	return nil
}

// index joins the snapshot as seen by the caller.
func (s *ReportService) index(ctx context.Context, q ReportQuery) (*reporting.Index, bool, error) {
	snapshot, hit, err := s.snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	if scopeName(q) == scopeTeacher {
		snapshot = snapshot.ScopeToTeacher(snapshot.CanonicalUserID(q.ViewerID))
	}
	return reporting.NewIndex(snapshot), hit, nil
}

// snapshot serves the normalised collections from cache, loading them from the
// source on a miss. Concurrent misses share one load, which runs detached from
// any single caller and is bounded by the configured load timeout.
func (s *ReportService) snapshot(ctx context.Context) (reporting.Snapshot, bool, error) {
	var cached reporting.Snapshot
	hit, err := s.cache.Get(ctx, snapshotCacheKey, &cached)
	if err == nil && hit {
		return cached, true, nil
	}

	ch := s.loads.DoChan(snapshotCacheKey, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LoadTimeout)
		defer cancel()
		return s.load(loadCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return reporting.Snapshot{}, false, res.Err
		}
		return res.Val.(reporting.Snapshot), false, nil
	case <-ctx.Done():
		return reporting.Snapshot{}, false, appErrors.Wrap(ctx.Err(), appErrors.ErrSnapshotUnavailable.Code, appErrors.ErrSnapshotUnavailable.Status, "snapshot load timed out")
	}
}

func (s *ReportService) load(ctx context.Context) (reporting.Snapshot, error) {
	if s.source == nil {
		return reporting.Snapshot{}, appErrors.Clone(appErrors.ErrSnapshotUnavailable, "snapshot source is not configured")
	}
	log := logger.WithContext(ctx, s.logger)
	start := time.Now()
	raw, err := s.source.Load(ctx)
	s.metrics.ObserveSnapshotLoad(s.cfg.SourceName, err, time.Since(start))
	if err != nil {
		log.Error("snapshot load failed", zap.String("source", s.cfg.SourceName), zap.Error(err))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return reporting.Snapshot{}, appErrors.Wrap(err, appErrors.ErrSnapshotUnavailable.Code, appErrors.ErrSnapshotUnavailable.Status, "snapshot load timed out")
		}
		return reporting.Snapshot{}, appErrors.Wrap(err, appErrors.ErrSnapshotUnavailable.Code, appErrors.ErrSnapshotUnavailable.Status, appErrors.ErrSnapshotUnavailable.Message)
	}
	if raw == nil {
		raw = &models.RawSnapshot{}
	}

	snapshot := s.normalizer.Snapshot(raw.Users, raw.Classes, raw.Tasks, raw.Submissions)
	full := reporting.NewIndex(snapshot)
	s.metrics.RecordJoinAnomalies(full.Dropped(), full.Duplicates())
	if full.Dropped() > 0 || full.Duplicates() > 0 {
		log.Warn("snapshot join anomalies",
			zap.Int("dropped_submissions", full.Dropped()),
			zap.Int("superseded_submissions", full.Duplicates()),
		)
	}
	log.Debug("snapshot loaded",
		zap.String("source", s.cfg.SourceName),
		zap.Int("users", len(snapshot.Users)),
		zap.Int("classes", len(snapshot.Classes)),
		zap.Int("tasks", len(snapshot.Tasks)),
		zap.Int("submissions", len(snapshot.Submissions)),
	)

	_ = s.cache.Set(ctx, snapshotCacheKey, snapshot, s.cfg.CacheTTL)
	return snapshot, nil
}

func (s *ReportService) feed(idx *reporting.Index, now time.Time, limit int) ([]reporting.ActivityEvent, error) {
	opts := s.cfg.Feed
	if limit > 0 {
		opts.Limit = limit
	}
	events, err := reporting.BuildActivityFeed(idx, now, opts)
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidOptions) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feed options")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build activity feed")
	}
	return events, nil
}

func (s *ReportService) observe(report string, start time.Time) {
	s.metrics.ObserveReport(report, time.Since(start))
}

func scopeName(q ReportQuery) string {
	if q.ViewerRole == models.RoleTeacher && !q.AllClasses {
		return scopeTeacher
	}
	return scopeAll
}
