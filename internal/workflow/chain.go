package workflow

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/backoffice-gin/internal/apperr"
)

// StepInput 步骤定义,Row 仅作为排序提示
type StepInput struct {
	Row                 *int       `json:"row" validate:"omitempty,min=0"`
	Name                string     `json:"name" validate:"required,max=100"`
	ResponsibleUsername string     `json:"responsible_username" validate:"required,max=64"`
	PlannedFinishDate   *time.Time `json:"planned_finish_date"`
}

// BuildChain 将无序的步骤定义规整为从 1 开始编号的有序步骤链
// 按提示行号稳定排序,未给出行号的步骤排在最后并保持输入顺序
func BuildChain(taskID string, inputs []StepInput, now time.Time) ([]*Step, error) {
	if len(inputs) == 0 {
		return nil, apperr.Validation("steps", "a task must have at least one step")
	}

	sorted := make([]StepInput, len(inputs))
	copy(sorted, inputs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Row, sorted[j].Row
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})

	chain := make([]*Step, len(sorted))
	for i, in := range sorted {
		chain[i] = &Step{
			ID:                  uuid.NewString(),
			TaskID:              taskID,
			Row:                 i + 1,
			Name:                in.Name,
			ResponsibleUsername: in.ResponsibleUsername,
			PlannedFinishDate:   in.PlannedFinishDate,
		}
	}

	start := now
	chain[0].StartDate = &start

	return chain, nil
}

// ChainAssignee 步骤链首步负责人
func ChainAssignee(chain []*Step) string {
	if len(chain) == 0 {
		return ""
	}
	return chain[0].ResponsibleUsername
}

// ChainPlannedFinish 步骤链末步计划完成时间,未设置时取 now
func ChainPlannedFinish(chain []*Step, now time.Time) time.Time {
	if len(chain) == 0 || chain[len(chain)-1].PlannedFinishDate == nil {
		return now
	}
	return *chain[len(chain)-1].PlannedFinishDate
}
