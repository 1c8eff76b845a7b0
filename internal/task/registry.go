package task

import "sync"

// PendingRegistry maps in-flight task ids to the client connection waiting
// on them. At most one live mapping per task id. All methods are safe for
// concurrent use; registration must be visible before the corresponding
// result can be delivered, which Dispatch guarantees by registering before
// enqueueing.
type PendingRegistry struct {
	mu    sync.Mutex
	tasks map[string]string
}

func NewPendingRegistry() *PendingRegistry {
	return &PendingRegistry{tasks: make(map[string]string)}
}

// Register binds a task to the client waiting for its result.
func (r *PendingRegistry) Register(taskID, clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[taskID] = clientID
}

// Complete removes the mapping for a delivered (or abandoned) task and
// returns the client it belonged to. A second Complete for the same task
// reports ok=false, so duplicate deliveries cannot double-forward.
func (r *PendingRegistry) Complete(taskID string) (clientID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clientID, ok = r.tasks[taskID]
	if ok {
		delete(r.tasks, taskID)
	}
	return clientID, ok
}

// PurgeClient drops every mapping that points at the given client and
// reports how many were removed. Called on disconnect.
func (r *PendingRegistry) PurgeClient(clientID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int
	for taskID, owner := range r.tasks {
		if owner == clientID {
			delete(r.tasks, taskID)
			removed++
		}
	}
	return removed
}

func (r *PendingRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
