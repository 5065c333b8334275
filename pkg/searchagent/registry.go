package searchagent

import "ai-mail-workspace-be/pkg/mailbox"

// FallbackResultLimit caps the ids taken from the registry when the model
// cites nothing usable.
const FallbackResultLimit = 15

// CandidateRegistry holds every mailbox item surfaced by search tools during
// one run. The first record registered for an id wins and insertion order is
// kept. Not safe for concurrent use; each run owns its own registry.
type CandidateRegistry struct {
	records map[string]mailbox.ListItem
	order   []string
}

func NewCandidateRegistry() *CandidateRegistry {
	return &CandidateRegistry{records: make(map[string]mailbox.ListItem)}
}

func (r *CandidateRegistry) Register(id string, record mailbox.ListItem) {
	if _, exists := r.records[id]; exists {
		return
	}
	r.records[id] = record
	r.order = append(r.order, id)
}

func (r *CandidateRegistry) Get(id string) (mailbox.ListItem, bool) {
	record, ok := r.records[id]
	return record, ok
}

func (r *CandidateRegistry) Has(id string) bool {
	_, ok := r.records[id]
	return ok
}

// Recent returns the first min(n, Len()) ids in insertion order.
func (r *CandidateRegistry) Recent(n int) []string {
	if n > len(r.order) {
		n = len(r.order)
	}
	if n <= 0 {
		return []string{}
	}
	out := make([]string, n)
	copy(out, r.order[:n])
	return out
}

func (r *CandidateRegistry) Len() int {
	return len(r.order)
}
