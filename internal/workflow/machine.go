package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/backoffice-gin/internal/apperr"
)

// Transition 一次状态迁移产生的全部写入,由 Gateway 在同一事务内提交
// ExpectedVersion 为读取任务时的版本号,提交时据此做乐观锁校验
type Transition struct {
	Task            *Task
	ExpectedVersion int
	Steps           []*Step
	Logs            []*Log
}

func newTransition(t *Task) *Transition {
	return &Transition{Task: t, ExpectedVersion: t.Version}
}

// touch 记录被修改的步骤,同一步骤只记录一次
func (tr *Transition) touch(s *Step) {
	for _, existing := range tr.Steps {
		if existing.ID == s.ID {
			return
		}
	}
	tr.Steps = append(tr.Steps, s)
}

// log 追加任务日志
func (tr *Transition) log(explanation, username string, now time.Time) {
	l := &Log{
		ID:               uuid.NewString(),
		TaskID:           tr.Task.ID,
		Seq:              len(tr.Task.Logs) + 1,
		Explanation:      explanation,
		RegistryDate:     now,
		RegistryUsername: username,
	}
	tr.Task.Logs = append(tr.Task.Logs, l)
	tr.Logs = append(tr.Logs, l)
}

// withDescription 拼接日志说明
func withDescription(base, description string) string {
	if description == "" {
		return base
	}
	return base + ". " + description
}

// land 游标落到步骤上,首次落到时记录开始时间
func (tr *Transition) land(s *Step, now time.Time) {
	if s == nil || s.StartDate != nil {
		return
	}
	start := now
	s.StartDate = &start
	tr.touch(s)
}

// completeStep 完成当前步骤并前移游标,步骤链走完时自动完成任务
func completeStep(t *Task, description, username string, now time.Time) (*Transition, error) {
	if t.State == StateCancelled {
		return nil, apperr.InvalidState("task is cancelled")
	}
	current := t.Current()
	if current == nil {
		return nil, apperr.InvalidState("no current step")
	}

	tr := newTransition(t)

	done := now
	current.CompleteDescription = description
	current.CompleteDate = &done
	tr.touch(current)

	t.CursorIndex++

	if next := t.Current(); next != nil {
		t.AssignedUsername = next.ResponsibleUsername
		tr.land(next, now)
	}

	tr.log(fmt.Sprintf("%d. step completed", current.Row), username, now)

	if t.Current() == nil {
		finishTask(tr, username, now)
	}

	return tr, nil
}

// cancelStep 将游标回退一步,已关闭的任务会重新激活
func cancelStep(t *Task, description, username string, now time.Time) (*Transition, error) {
	if t.Previous() == nil {
		return nil, apperr.InvalidState("no previous step, cannot cancel")
	}

	tr := newTransition(t)

	t.CursorIndex--
	t.Closed = false
	t.State = StateActive
	t.FinishDate = nil

	current := t.Current()
	t.AssignedUsername = current.ResponsibleUsername
	tr.land(current, now)

	tr.log(withDescription(fmt.Sprintf("returned to step %d", current.Row), description), username, now)

	return tr, nil
}

// finishTask 结束任务,若存在当前步骤则游标越过它
func finishTask(tr *Transition, username string, now time.Time) {
	t := tr.Task
	if t.Current() != nil {
		t.CursorIndex++
	}
	finished := now
	t.Closed = true
	t.State = StateCompleted
	t.FinishDate = &finished

	tr.log("task completed", username, now)
}

// completeTask 直接完成任务,可重复调用
func completeTask(t *Task, username string, now time.Time) *Transition {
	tr := newTransition(t)
	finishTask(tr, username, now)
	return tr
}

// cancelTask 取消任务,游标保持不变
func cancelTask(t *Task, description, username string, now time.Time) *Transition {
	tr := newTransition(t)

	t.Closed = true
	t.State = StateCancelled

	tr.log(withDescription("task cancelled", description), username, now)
	return tr
}

// reopenTask 将游标重置到步骤链开头
// ReopenClear 时清空所有步骤的完成信息,ReopenKeep 时保留
func reopenTask(t *Task, description, username string, policy ReopenPolicy, now time.Time) *Transition {
	tr := newTransition(t)

	t.CursorIndex = 0
	t.Closed = false
	t.State = StateActive
	t.FinishDate = nil

	if policy == ReopenClear {
		for _, s := range t.Steps {
			if !s.Completed() {
				continue
			}
			s.CompleteDate = nil
			s.CompleteDescription = ""
			tr.touch(s)
		}
	}

	if first := t.Current(); first != nil {
		t.AssignedUsername = first.ResponsibleUsername
		tr.land(first, now)
	}

	tr.log(withDescription("task reopened", description), username, now)
	return tr
}
