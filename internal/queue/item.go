package queue

import "github.com/ricirt/venturematch/internal/domain"

// Item is the minimal data placed on the dispatch buffer.
// Workers fetch the full Task from the DB using the ID and fence every
// transition with Attempt, keeping the buffer lightweight and the tasks
// table authoritative.
type Item struct {
	TaskID   string
	Kind     domain.TaskKind
	Priority domain.Priority
	Attempt  int
}
