package rtk

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// TieBreakPolicy decides the order among Ready tasks of equal priority.
type TieBreakPolicy int

// The tie-break policies. TieBreakFIFO orders equal-priority tasks by arrival
// at the queue, which degenerates to round-robin for periodic tasks that are
// re-queued every period. TieBreakLowestID always prefers the smaller TaskID.
const (
	TieBreakFIFO TieBreakPolicy = iota
	TieBreakLowestID
)

type queueKey struct {
	priority Priority
	order    uint64
}

// taskQueue keeps tasks ordered by (priority desc, order asc). It backs both
// the ready queue and the semaphore wait queues.
type taskQueue struct {
	tree   *redblacktree.Tree
	policy TieBreakPolicy
	stamp  uint64
}

func newTaskQueue(policy TieBreakPolicy) *taskQueue {
	q := &taskQueue{policy: policy}
	q.tree = redblacktree.NewWith(func(a, b interface{}) int {
		ka := a.(queueKey)
		kb := b.(queueKey)

		if ka.priority != kb.priority {
			if ka.priority > kb.priority {
				return -1
			}
			return 1
		}

		if ka.order != kb.order {
			if ka.order < kb.order {
				return -1
			}
			return 1
		}

		return 0
	})
	return q
}

// Push enqueues a task. The task must not already be in the queue.
func (q *taskQueue) Push(t *task) {
	switch q.policy {
	case TieBreakLowestID:
		t.seq = uint64(t.id)
	default:
		q.stamp++
		t.seq = q.stamp
	}

	q.tree.Put(queueKey{priority: t.priority, order: t.seq}, t)
}

// Pop removes and returns the most urgent task, or nil if the queue is empty.
func (q *taskQueue) Pop() *task {
	node := q.tree.Left()
	if node == nil {
		return nil
	}

	q.tree.Remove(node.Key)

	return node.Value.(*task)
}

// Peek returns the most urgent task without removing it, or nil.
func (q *taskQueue) Peek() *task {
	node := q.tree.Left()
	if node == nil {
		return nil
	}

	return node.Value.(*task)
}

// Remove takes a specific task out of the queue.
func (q *taskQueue) Remove(t *task) {
	q.tree.Remove(queueKey{priority: t.priority, order: t.seq})
}

// Len returns the number of queued tasks.
func (q *taskQueue) Len() int {
	return q.tree.Size()
}

// IDs lists the queued task IDs in dispatch order.
func (q *taskQueue) IDs() []TaskID {
	ids := make([]TaskID, 0, q.tree.Size())
	it := q.tree.Iterator()
	for it.Next() {
		ids = append(ids, it.Value().(*task).id)
	}
	return ids
}
