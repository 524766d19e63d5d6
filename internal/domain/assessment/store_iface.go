package assessment

import "context"

// StoreAPI is the persistence collaborator. Implementations return ErrNotFound
// for unknown process ids.
type StoreAPI interface {
	ReadProcessStatus(ctx context.Context, processID string) (StatusSnapshot, error)
	GetProcess(ctx context.Context, processID string) (Process, error)
	ListProcesses(ctx context.Context, filter ListFilter, limit, offset int) ([]Process, int, error)
	ListHistory(ctx context.Context, processID string) ([]HistoryEntry, error)
	// WithTx runs fn atomically: either every write made through the TxStore
	// takes effect or none does.
	WithTx(ctx context.Context, fn func(tx TxStore) error) error
	Ping(ctx context.Context) error
}

type TxStore interface {
	CreateProcess(ctx context.Context, process Process) error
	// ConditionalUpdateStatus moves the process to next only if its stored
	// status is still expected. It reports whether a row changed.
	ConditionalUpdateStatus(ctx context.Context, processID string, expected, next Status) (bool, error)
	AppendHistory(ctx context.Context, processID string, entry HistoryEntry) error
}
