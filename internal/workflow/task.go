// Package workflow 实现订单履约任务的步骤游标状态机
package workflow

import (
	"encoding/json"
	"time"
)

// State 任务状态
type State string

const (
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// ReopenPolicy 任务重开时对已完成步骤的处理策略
type ReopenPolicy string

const (
	ReopenKeep  ReopenPolicy = "keep"  // 保留步骤完成信息
	ReopenClear ReopenPolicy = "clear" // 清空步骤完成信息
)

// Step 任务步骤,Row 从 1 开始连续编号,创建后不再改变
type Step struct {
	ID                  string     `json:"id"`
	TaskID              string     `json:"task_id"`
	Row                 int        `json:"row"`
	Name                string     `json:"name"`
	ResponsibleUsername string     `json:"responsible_username"`
	PlannedFinishDate   *time.Time `json:"planned_finish_date"`
	StartDate           *time.Time `json:"start_date"`
	CompleteDescription string     `json:"complate_description"`
	CompleteDate        *time.Time `json:"complate_date"`
}

// Completed 步骤是否已记录完成
func (s *Step) Completed() bool {
	return s.CompleteDate != nil
}

// Log 任务日志,只追加
type Log struct {
	ID               string    `json:"id"`
	TaskID           string    `json:"task_id"`
	Seq              int       `json:"seq"`
	Explanation      string    `json:"explanation"`
	RegistryDate     time.Time `json:"registry_date"`
	RegistryUsername string    `json:"registry_username,omitempty"`
}

// Task 任务聚合,包含有序步骤链和日志
// CursorIndex 为当前步骤在 Steps 中的下标,等于 len(Steps) 表示步骤链已走完
type Task struct {
	ID                string     `json:"id"`
	OrderID           string     `json:"order_id"`
	Description       string     `json:"description"`
	AssignedUsername  string     `json:"assigned_username"`
	PlannedFinishDate time.Time  `json:"planned_finish_date"`
	Closed            bool       `json:"closed"`
	State             State      `json:"state"`
	CursorIndex       int        `json:"-"`
	Version           int        `json:"version"`
	FinishDate        *time.Time `json:"finish_date"`
	RegistryDate      time.Time  `json:"registry_date"`
	RegistryUsername  string     `json:"registry_username"`
	UpdateDate        *time.Time `json:"update_date"`
	UpdateUsername    string     `json:"update_username"`
	Steps             []*Step    `json:"steps"`
	Logs              []*Log     `json:"logs"`
}

// stepAt 越界时返回 nil
func (t *Task) stepAt(i int) *Step {
	if i < 0 || i >= len(t.Steps) {
		return nil
	}
	return t.Steps[i]
}

// Previous 上一步骤
func (t *Task) Previous() *Step {
	return t.stepAt(t.CursorIndex - 1)
}

// Current 当前步骤,任务已完成时为空
func (t *Task) Current() *Step {
	if t.State == StateCompleted {
		return nil
	}
	return t.stepAt(t.CursorIndex)
}

// Next 下一步骤,任务已完成时为空
func (t *Task) Next() *Step {
	if t.State == StateCompleted {
		return nil
	}
	return t.stepAt(t.CursorIndex + 1)
}

// GetStepByRow 按行号查找步骤
func (t *Task) GetStepByRow(row int) *Step {
	for _, s := range t.Steps {
		if s.Row == row {
			return s
		}
	}
	return nil
}

// MarshalJSON 在输出中附带由游标推导的 previous/current/next 步骤 ID
func (t *Task) MarshalJSON() ([]byte, error) {
	type alias Task
	return json.Marshal(struct {
		*alias
		PreviousStepID *string `json:"previous_step_id"`
		CurrentStepID  *string `json:"current_step_id"`
		NextStepID     *string `json:"next_step_id"`
	}{
		alias:          (*alias)(t),
		PreviousStepID: stepID(t.Previous()),
		CurrentStepID:  stepID(t.Current()),
		NextStepID:     stepID(t.Next()),
	})
}

func stepID(s *Step) *string {
	if s == nil {
		return nil
	}
	id := s.ID
	return &id
}
