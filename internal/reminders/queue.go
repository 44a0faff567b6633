package reminders

import (
	"container/heap"
	"strings"

	"github.com/sandeepkv93/cadence/internal/model"
)

// triggerQueue orders reminders by TriggerAt, then CreatedAt, then ID.
type triggerQueue []*model.Reminder

func (q triggerQueue) Len() int { return len(q) }

func (q triggerQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if !a.TriggerAt.Equal(b.TriggerAt) {
		return a.TriggerAt.Before(b.TriggerAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return strings.Compare(a.ID, b.ID) < 0
}

func (q triggerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *triggerQueue) Push(x any) {
	*q = append(*q, x.(*model.Reminder))
}

func (q *triggerQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// drainOrdered pops every item in trigger order, stopping early once limit
// items were taken (limit <= 0 means all).
func drainOrdered(items []*model.Reminder, limit int) []*model.Reminder {
	q := triggerQueue(items)
	heap.Init(&q)
	n := q.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*model.Reminder, 0, n)
	for len(out) < n {
		out = append(out, heap.Pop(&q).(*model.Reminder))
	}
	return out
}
