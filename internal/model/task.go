package model

import (
	"errors"
	"time"
)

// TaskModel 任务数据模型
// CursorIndex 指向步骤链中当前步骤的下标(从 0 开始),等于步骤数时表示已走完
type TaskModel struct {
	ID                string     `gorm:"primaryKey;type:varchar(64)"`
	OrderID           string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	Description       string     `gorm:"type:text"`
	AssignedUsername  string     `gorm:"type:varchar(64);index"`
	PlannedFinishDate time.Time  `gorm:"not null"`
	Closed            bool       `gorm:"not null;default:false;index:idx_tasks_state_closed,priority:2"`
	State             string     `gorm:"type:varchar(32);not null;index:idx_tasks_state_closed,priority:1"`
	CursorIndex       int        `gorm:"not null;default:0"`
	Version           int        `gorm:"not null;default:1"` // 乐观锁版本号
	FinishDate        *time.Time `gorm:"index"`
	RegistryDate      time.Time  `gorm:"not null;index"`
	RegistryUsername  string     `gorm:"type:varchar(64)"`
	UpdateDate        *time.Time
	UpdateUsername    string `gorm:"type:varchar(64)"`
}

// TableName 指定表名
func (TaskModel) TableName() string {
	return "tasks"
}

// Validate 验证任务模型
func (tm *TaskModel) Validate() error {
	if tm.ID == "" {
		return errors.New("task ID is required")
	}
	if tm.OrderID == "" {
		return errors.New("order ID is required")
	}
	if tm.State == "" {
		return errors.New("task state is required")
	}
	if tm.CursorIndex < 0 {
		return errors.New("cursor index cannot be negative")
	}
	return nil
}

// TaskStepModel 任务步骤数据模型
type TaskStepModel struct {
	ID                  string `gorm:"primaryKey;type:varchar(64)"`
	TaskID              string `gorm:"type:varchar(64);not null;uniqueIndex:idx_task_steps_task_row"`
	Row                 int    `gorm:"not null;uniqueIndex:idx_task_steps_task_row"`
	Name                string `gorm:"type:varchar(100);not null"`
	ResponsibleUsername string `gorm:"type:varchar(64);not null"`
	PlannedFinishDate   *time.Time
	StartDate           *time.Time
	CompleteDescription string     `gorm:"column:complate_description;type:text"`
	CompleteDate        *time.Time `gorm:"column:complate_date"`
}

// TableName 指定表名
func (TaskStepModel) TableName() string {
	return "task_steps"
}

// Validate 验证步骤模型
func (sm *TaskStepModel) Validate() error {
	if sm.ID == "" {
		return errors.New("step ID is required")
	}
	if sm.TaskID == "" {
		return errors.New("task ID is required")
	}
	if sm.Row < 1 {
		return errors.New("step row must start at 1")
	}
	return nil
}

// TaskLogModel 任务日志数据模型,只追加不修改
type TaskLogModel struct {
	ID               string    `gorm:"primaryKey;type:varchar(64)"`
	TaskID           string    `gorm:"type:varchar(64);not null;index:idx_task_logs_task_seq,priority:1"`
	Seq              int       `gorm:"not null;index:idx_task_logs_task_seq,priority:2"` // 同一任务内的追加顺序
	Explanation      string    `gorm:"type:text;not null"`
	RegistryDate     time.Time `gorm:"not null;index"`
	RegistryUsername string    `gorm:"type:varchar(64)"`
}

// TableName 指定表名
func (TaskLogModel) TableName() string {
	return "task_logs"
}

// Validate 验证日志模型
func (lm *TaskLogModel) Validate() error {
	if lm.ID == "" {
		return errors.New("log ID is required")
	}
	if lm.TaskID == "" {
		return errors.New("task ID is required")
	}
	if lm.Explanation == "" {
		return errors.New("log explanation is required")
	}
	return nil
}
