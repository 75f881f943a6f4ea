package localstore

// Op names a store operation in events and metrics.
type Op string

// Operations.
const (
	OpAdd     Op = "add"
	OpUpdate  Op = "update"
	OpExpunge Op = "expunge"
	OpFind    Op = "find"
	OpList    Op = "list"
	OpSearch  Op = "search"
)

// Entity kinds reported in events.
const (
	EntityUser           = "user"
	EntityNotebook       = "notebook"
	EntityLinkedNotebook = "linked_notebook"
	EntityNote           = "note"
	EntityTag            = "tag"
	EntityResource       = "resource"
	EntitySavedSearch    = "saved_search"
)

// Event describes one committed mutation.
type Event struct {
	Entity  string `json:"entity"`
	Op      Op     `json:"op"`
	LocalID string `json:"local_id,omitempty"`
	GUID    string `json:"guid,omitempty"`
}

// Observer is notified after a mutation commits. Notify runs on the caller's
// goroutine and must not block.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Notify calls f(e).
func (f ObserverFunc) Notify(e Event) {
	f(e)
}

// Subscribe registers o for events of later mutations.
func (db *DB) Subscribe(o Observer) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.observers = append(db.observers, o)
}

func (db *DB) emit(e Event) {
	db.mu.RLock()
	obs := db.observers
	db.mu.RUnlock()
	for _, o := range obs {
		o.Notify(e)
	}
}

// finish records the outcome of an operation and, for a successful mutation,
// notifies observers.
func (db *DB) finish(entity string, op Op, localID string, guid *string, err error) {
	db.metrics.observe(entity, op, err)
	if err != nil {
		return
	}
	switch op {
	case OpAdd, OpUpdate, OpExpunge:
	default:
		return
	}
	e := Event{Entity: entity, Op: op, LocalID: localID}
	if guid != nil {
		e.GUID = *guid
	}
	db.emit(e)
}
