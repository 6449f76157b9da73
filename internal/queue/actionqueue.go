package queue

import "github.com/cgrimes21/dyewars/internal/mailbox"

// ActionQueue is the single-consumer, multi-producer hand-off of Commands
// from I/O tasks to the game thread. It is a thin, typed wrapper over
// mailbox.Outbox: I/O tasks call Push concurrently, and the game thread
// calls Drain once per tick, processing the returned slice without
// holding any lock.
type ActionQueue struct {
	outbox *mailbox.Outbox[Command]
}

// New builds an action queue with capHint as the initial backing capacity.
func New(capHint int) *ActionQueue {
	return &ActionQueue{outbox: mailbox.New[Command](capHint)}
}

// Push enqueues a command. Safe to call from any goroutine.
func (q *ActionQueue) Push(cmd Command) {
	q.outbox.Push(cmd)
}

// Drain swaps out the full backlog in FIFO arrival order. Must only be
// called from the game thread.
func (q *ActionQueue) Drain() []Command {
	return q.outbox.Drain()
}

// Len reports the current backlog size, for stats.
func (q *ActionQueue) Len() int {
	return q.outbox.Len()
}
