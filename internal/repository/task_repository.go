package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mautops/backoffice-gin/internal/apperr"
	"github.com/mautops/backoffice-gin/internal/model"
	"github.com/mautops/backoffice-gin/internal/workflow"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskRepository 任务仓储接口
type TaskRepository interface {
	workflow.Gateway
	CountByState(ctx context.Context, state workflow.State, closed bool) (int64, error)
	CountGroupedByState(ctx context.Context) (map[string]int64, error)
	CountCompletedSince(ctx context.Context, since time.Time) (int64, error)
}

// taskRepository 任务仓储实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// byRow 按步骤行号排序,row 在部分数据库中是保留字,需要引用
var byRow = clause.OrderByColumn{Column: clause.Column{Name: "row"}}

// FindByID 根据 ID 查找任务及其步骤和日志
func (r *taskRepository) FindByID(ctx context.Context, id string) (*workflow.Task, error) {
	var tm model.TaskModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tm).Error; err != nil {
		return nil, translate(err, "task", id)
	}
	return r.load(ctx, &tm)
}

// FindByOrderID 根据订单 ID 查找任务
func (r *taskRepository) FindByOrderID(ctx context.Context, orderID string) (*workflow.Task, error) {
	var tm model.TaskModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&tm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("task for order %s not found", orderID)
		}
		return nil, err
	}
	return r.load(ctx, &tm)
}

// OrderExists 检查订单是否存在
func (r *taskRepository) OrderExists(ctx context.Context, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.OrderModel{}).Where("id = ?", orderID).Count(&count).Error
	return count > 0, err
}

// List 分页查询任务
func (r *taskRepository) List(ctx context.Context, filter workflow.Filter, page, pageSize int) ([]*workflow.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.TaskModel{})

	if filter.State != "" {
		query = query.Where("state = ?", string(filter.State))
	}
	if filter.AssignedUsername != "" {
		query = query.Where("assigned_username = ?", filter.AssignedUsername)
	}
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Closed != nil {
		query = query.Where("closed = ?", *filter.Closed)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []*model.TaskModel
	if err := paginate(query, page, pageSize).Order("registry_date DESC").Order("id").Find(&models).Error; err != nil {
		return nil, 0, err
	}
	if len(models) == 0 {
		return []*workflow.Task{}, total, nil
	}

	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}

	var steps []*model.TaskStepModel
	if err := r.db.WithContext(ctx).Where("task_id IN ?", ids).Order(byRow).Find(&steps).Error; err != nil {
		return nil, 0, err
	}
	var logs []*model.TaskLogModel
	if err := r.db.WithContext(ctx).Where("task_id IN ?", ids).Order("seq").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	stepsByTask := make(map[string][]*model.TaskStepModel, len(models))
	for _, s := range steps {
		stepsByTask[s.TaskID] = append(stepsByTask[s.TaskID], s)
	}
	logsByTask := make(map[string][]*model.TaskLogModel, len(models))
	for _, l := range logs {
		logsByTask[l.TaskID] = append(logsByTask[l.TaskID], l)
	}

	tasks := make([]*workflow.Task, len(models))
	for i, m := range models {
		tasks[i] = toTask(m, stepsByTask[m.ID], logsByTask[m.ID])
	}
	return tasks, total, nil
}

// CountByState 按状态统计任务数
func (r *taskRepository) CountByState(ctx context.Context, state workflow.State, closed bool) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TaskModel{}).
		Where("state = ? AND closed = ?", string(state), closed).
		Count(&count).Error
	return count, err
}

// CountGroupedByState 各状态任务数
func (r *taskRepository) CountGroupedByState(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		State string
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&model.TaskModel{}).
		Select("state, COUNT(*) AS count").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.State] = row.Count
	}
	return counts, nil
}

// CountCompletedSince 统计 since 之后完成的任务数
func (r *taskRepository) CountCompletedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TaskModel{}).
		Where("state = ? AND finish_date >= ?", string(workflow.StateCompleted), since).
		Count(&count).Error
	return count, err
}

// Create 在一个事务内保存任务、步骤和日志
func (r *taskRepository) Create(ctx context.Context, task *workflow.Task) error {
	tm := fromTask(task)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tm).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("order %s already has a task", task.OrderID)
			}
			return err
		}
		if len(task.Steps) > 0 {
			steps := make([]*model.TaskStepModel, len(task.Steps))
			for i, s := range task.Steps {
				steps[i] = fromStep(s)
			}
			if err := tx.Create(&steps).Error; err != nil {
				return err
			}
		}
		return createLogs(tx, task.Logs)
	})
}

// Apply 提交一次状态迁移
// 任务行按版本号条件更新,版本不一致说明任务已被并发修改
func (r *taskRepository) Apply(ctx context.Context, tr *workflow.Transition) error {
	t := tr.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.TaskModel{}).
			Where("id = ? AND version = ?", t.ID, tr.ExpectedVersion).
			Updates(map[string]interface{}{
				"description":         t.Description,
				"assigned_username":   t.AssignedUsername,
				"planned_finish_date": t.PlannedFinishDate,
				"closed":              t.Closed,
				"state":               string(t.State),
				"cursor_index":        t.CursorIndex,
				"version":             tr.ExpectedVersion + 1,
				"finish_date":         t.FinishDate,
				"update_date":         t.UpdateDate,
				"update_username":     t.UpdateUsername,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.TaskModel{}).Where("id = ?", t.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return apperr.NotFound("task %s not found", t.ID)
			}
			return apperr.Conflict("task was modified concurrently")
		}

		for _, s := range tr.Steps {
			err := tx.Model(&model.TaskStepModel{}).Where("id = ?", s.ID).Updates(map[string]interface{}{
				"start_date":           s.StartDate,
				"complate_description": s.CompleteDescription,
				"complate_date":        s.CompleteDate,
			}).Error
			if err != nil {
				return err
			}
		}

		return createLogs(tx, tr.Logs)
	})
	if err != nil {
		return err
	}

	t.Version = tr.ExpectedVersion + 1
	return nil
}

// Delete 删除任务,级联删除步骤和日志
func (r *taskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&model.TaskLogModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&model.TaskStepModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.TaskModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("task %s not found", id)
		}
		return nil
	})
}

// load 加载任务的步骤和日志
func (r *taskRepository) load(ctx context.Context, tm *model.TaskModel) (*workflow.Task, error) {
	var steps []*model.TaskStepModel
	if err := r.db.WithContext(ctx).Where("task_id = ?", tm.ID).Order(byRow).Find(&steps).Error; err != nil {
		return nil, err
	}
	var logs []*model.TaskLogModel
	if err := r.db.WithContext(ctx).Where("task_id = ?", tm.ID).Order("seq").Find(&logs).Error; err != nil {
		return nil, err
	}
	return toTask(tm, steps, logs), nil
}

func createLogs(tx *gorm.DB, logs []*workflow.Log) error {
	if len(logs) == 0 {
		return nil
	}
	models := make([]*model.TaskLogModel, len(logs))
	for i, l := range logs {
		models[i] = &model.TaskLogModel{
			ID:               l.ID,
			TaskID:           l.TaskID,
			Seq:              l.Seq,
			Explanation:      l.Explanation,
			RegistryDate:     l.RegistryDate,
			RegistryUsername: l.RegistryUsername,
		}
	}
	return tx.Create(&models).Error
}

func toTask(tm *model.TaskModel, steps []*model.TaskStepModel, logs []*model.TaskLogModel) *workflow.Task {
	t := &workflow.Task{
		ID:                tm.ID,
		OrderID:           tm.OrderID,
		Description:       tm.Description,
		AssignedUsername:  tm.AssignedUsername,
		PlannedFinishDate: tm.PlannedFinishDate,
		Closed:            tm.Closed,
		State:             workflow.State(tm.State),
		CursorIndex:       tm.CursorIndex,
		Version:           tm.Version,
		FinishDate:        tm.FinishDate,
		RegistryDate:      tm.RegistryDate,
		RegistryUsername:  tm.RegistryUsername,
		UpdateDate:        tm.UpdateDate,
		UpdateUsername:    tm.UpdateUsername,
		Steps:             make([]*workflow.Step, len(steps)),
		Logs:              make([]*workflow.Log, len(logs)),
	}
	for i, s := range steps {
		t.Steps[i] = &workflow.Step{
			ID:                  s.ID,
			TaskID:              s.TaskID,
			Row:                 s.Row,
			Name:                s.Name,
			ResponsibleUsername: s.ResponsibleUsername,
			PlannedFinishDate:   s.PlannedFinishDate,
			StartDate:           s.StartDate,
			CompleteDescription: s.CompleteDescription,
			CompleteDate:        s.CompleteDate,
		}
	}
	for i, l := range logs {
		t.Logs[i] = &workflow.Log{
			ID:               l.ID,
			TaskID:           l.TaskID,
			Seq:              l.Seq,
			Explanation:      l.Explanation,
			RegistryDate:     l.RegistryDate,
			RegistryUsername: l.RegistryUsername,
		}
	}
	return t
}

func fromTask(t *workflow.Task) *model.TaskModel {
	return &model.TaskModel{
		ID:                t.ID,
		OrderID:           t.OrderID,
		Description:       t.Description,
		AssignedUsername:  t.AssignedUsername,
		PlannedFinishDate: t.PlannedFinishDate,
		Closed:            t.Closed,
		State:             string(t.State),
		CursorIndex:       t.CursorIndex,
		Version:           t.Version,
		FinishDate:        t.FinishDate,
		RegistryDate:      t.RegistryDate,
		RegistryUsername:  t.RegistryUsername,
		UpdateDate:        t.UpdateDate,
		UpdateUsername:    t.UpdateUsername,
	}
}

func fromStep(s *workflow.Step) *model.TaskStepModel {
	return &model.TaskStepModel{
		ID:                  s.ID,
		TaskID:              s.TaskID,
		Row:                 s.Row,
		Name:                s.Name,
		ResponsibleUsername: s.ResponsibleUsername,
		PlannedFinishDate:   s.PlannedFinishDate,
		StartDate:           s.StartDate,
		CompleteDescription: s.CompleteDescription,
		CompleteDate:        s.CompleteDate,
	}
}
