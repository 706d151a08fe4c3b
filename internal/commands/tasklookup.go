package commands

import (
	"context"
	"fmt"

	"wip/internal/service"
)

// errOutOfRange reports a task number past the end of the pending list.
type errOutOfRange struct {
	num int
}

func (e errOutOfRange) Error() string {
	return fmt.Sprintf("task number out of range: %d", e.num)
}

// resolveTaskRef turns ref into a pending task. Numbered references are
// looked up in the pending list as filtered by filter, which is also what
// list prints.
func resolveTaskRef(ctx context.Context, svc service.Service, ref TaskRef, filter string) (service.PendingTask, error) {
	if ref.ID != "" {
		return service.PendingTask{ID: ref.ID}, nil
	}
	if ref.Num > service.PendingLimit {
		return service.PendingTask{}, errOutOfRange{ref.Num}
	}

	tasks, err := svc.ListPendingTasks(ctx, filter)
	if err != nil {
		return service.PendingTask{}, err
	}
	if ref.Num > len(tasks) {
		return service.PendingTask{}, errOutOfRange{ref.Num}
	}
	return tasks[ref.Num-1], nil
}
