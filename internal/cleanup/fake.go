package cleanup

import (
	"context"
	"sync"
	"time"
)

// Fake is an in-memory TableStore for CleanupEngine tests.
type Fake struct {
	mu sync.Mutex

	Tables map[string]bool
	Rows   map[string][]Row // table -> rows, not required to be pre-sorted

	Deleted map[string][]Row // table -> rows removed by BatchDelete

	// NotFoundIndex, when >= 0, makes the next BatchDelete call on
	// NotFoundTable report ResourceNotFound at that index instead of
	// succeeding outright.
	NotFoundTable string
	NotFoundIndex int
}

// NewFake returns an empty Fake ready for a test to populate.
func NewFake() *Fake {
	return &Fake{
		Tables:        make(map[string]bool),
		Rows:          make(map[string][]Row),
		Deleted:       make(map[string][]Row),
		NotFoundIndex: -1,
	}
}

func (f *Fake) TableExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Tables[name], nil
}

func (f *Fake) QueryByTimestamp(_ context.Context, name string, cutoff time.Time, _ string) ([]Row, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []Row
	for _, r := range f.Rows[name] {
		if r.Timestamp.Before(cutoff) {
			matched = append(matched, r)
		}
	}
	return matched, "", nil
}

func (f *Fake) BatchDelete(_ context.Context, name string, rows []Row, _ BatchOptions) ([]Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if name == f.NotFoundTable && f.NotFoundIndex >= 0 && f.NotFoundIndex < len(rows) {
		idx := f.NotFoundIndex
		f.NotFoundTable = "" // only trigger once per test
		f.NotFoundIndex = -1
		return []Result{{StatusCode: 404, NotFoundIndex: idx, HasNotFound: true}}, nil
	}

	f.Deleted[name] = append(f.Deleted[name], rows...)
	results := make([]Result, len(rows))
	for i := range rows {
		results[i] = Result{StatusCode: 204}
	}
	return results, nil
}
