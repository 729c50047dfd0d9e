package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openwork-hackathon/team-clawctor/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	colID            = "id"
	colSubmissionRef = "submission_ref"

	// An active task can fail between the conflicting insert and the read-back.
	insertAttempts = 3
)

var updatableColumns = map[string]bool{
	ColStatus: true, ColHighRiskCount: true, ColMediumRiskCount: true, ColLowRiskCount: true,
	ColAssessmentSummary: true, ColRawAssessment: true, ColAIModel: true, ColErrorMessage: true,
	ColProcessedAt: true, ColReportStatus: true, ColReportArtifact: true, ColReportGeneratedAt: true,
	ColReportError: true, ColPaymentRef: true, ColPaymentAmount: true, ColPaidAt: true,
}

var conditionColumns = map[string]bool{
	ColStatus: true, ColReportStatus: true, ColPaymentRef: true,
}

var ageColumns = map[string]bool{
	ColCreatedAt: true, ColUpdatedAt: true,
}

// GormTaskStore implements TaskStore on gorm. Uniqueness of active tasks is enforced by the
// partial unique index declared on models.Task.
type GormTaskStore struct {
	db *gorm.DB
}

func NewGormTaskStore(db *gorm.DB) *GormTaskStore {
	return &GormTaskStore{db: db}
}

func (s *GormTaskStore) InsertIfAbsent(ctx context.Context, task *models.Task) (*models.Task, bool, error) {
	onConflict := clause.OnConflict{
		Columns:     []clause.Column{{Name: colSubmissionRef}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "status <> 'FAILED'"}}},
		DoNothing:   true,
	}

	for attempt := 0; attempt < insertAttempts; attempt++ {
		res := s.db.WithContext(ctx).Clauses(onConflict).Create(task)
		if res.Error != nil {
			return nil, false, res.Error
		}
		if res.RowsAffected == 1 {
			return task, true, nil
		}

		existing, err := s.GetActiveBySubmission(ctx, task.SubmissionRef)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
	}
	return nil, false, fmt.Errorf("insert for submission %s did not settle after %d attempts", task.SubmissionRef, insertAttempts)
}

func (s *GormTaskStore) Get(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).Where(colID+" = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (s *GormTaskStore) GetActiveBySubmission(ctx context.Context, submissionRef string) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).
		Where(colSubmissionRef+" = ? AND "+ColStatus+" <> ?", submissionRef, models.TaskStatusFailed).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (s *GormTaskStore) ConditionalUpdate(ctx context.Context, id string, patch Patch, conds ...Condition) (bool, error) {
	if len(patch) == 0 {
		return false, errors.New("empty patch")
	}
	for col := range patch {
		if !updatableColumns[col] {
			return false, fmt.Errorf("column %q is not updatable", col)
		}
	}

	q := s.db.WithContext(ctx).Model(&models.Task{}).Where(colID+" = ?", id)
	for _, c := range conds {
		if !conditionColumns[c.Field] || len(c.Values) == 0 {
			return false, fmt.Errorf("invalid condition on %q", c.Field)
		}
		q = q.Where(c.Field+" IN ?", c.Values)
	}

	values := make(map[string]interface{}, len(patch)+1)
	for col, v := range patch {
		values[col] = v
	}
	// Every successful CAS stamps updated_at; the sweeper ages in-flight episodes by it.
	values[ColUpdatedAt] = time.Now()

	res := q.Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormTaskStore) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task
	var total int64

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	db := s.db.WithContext(ctx).Model(&models.Task{})
	if filter.Status != "" {
		db = db.Where(ColStatus+" = ?", filter.Status)
	}
	if filter.ReportStatus != "" {
		db = db.Where(ColReportStatus+" = ?", filter.ReportStatus)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := db.Omit(ColReportArtifact).Offset(offset).Limit(pageSize).Order("created_at desc").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

func (s *GormTaskStore) FindStale(ctx context.Context, cond Condition, column string, before time.Time, limit int) ([]models.Task, error) {
	if !conditionColumns[cond.Field] || len(cond.Values) == 0 {
		return nil, fmt.Errorf("invalid condition on %q", cond.Field)
	}
	if !ageColumns[column] {
		return nil, fmt.Errorf("column %q cannot be used for ageing", column)
	}

	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Omit(ColReportArtifact).
		Where(cond.Field+" IN ?", cond.Values).
		Where(column+" < ?", before).
		Order(column).
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}
