// Package masterdata keeps the current version of vocabulary elements and
// resolves their hierarchies.
package masterdata

import (
	"sort"
	"sync"

	"github.com/PratikDhanave/epcis-query-service/internal/models"
)

// Resolver answers hierarchy and attribute questions for one vocabulary type.
type Resolver interface {
	// Within reports whether id is one of roots or a transitive descendant of one.
	Within(vocab, id string, roots []string) bool
	// Lookup returns the current record for (vocab, id).
	Lookup(vocab, id string) (models.MasterData, bool)
}

type key struct {
	vocab string
	id    string
}

// Directory is an in-memory masterdata store. The last Put for a
// (type, id) replaces the previous record. It is safe for concurrent use.
type Directory struct {
	mu      sync.RWMutex
	records map[key]models.MasterData
	closure map[key]map[string]struct{} // (vocab, root) -> descendants
}

func NewDirectory() *Directory {
	return &Directory{
		records: map[key]models.MasterData{},
	}
}

// Put stores the records and invalidates the cached hierarchy.
func (d *Directory) Put(records ...models.MasterData) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, md := range records {
		d.records[key{md.Type, md.ID}] = md
	}
	d.closure = nil
}

func (d *Directory) Lookup(vocab, id string) (models.MasterData, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	md, ok := d.records[key{vocab, id}]
	return md, ok
}

// Within reports whether id equals a root or is registered below one.
func (d *Directory) Within(vocab, id string, roots []string) bool {
	for _, root := range roots {
		if root == id {
			return true
		}
	}

	closure := d.hierarchy()
	for _, root := range roots {
		if _, ok := closure[key{vocab, root}][id]; ok {
			return true
		}
	}
	return false
}

// Descendants returns the sorted transitive descendants of root.
func (d *Directory) Descendants(vocab, root string) []string {
	below := d.hierarchy()[key{vocab, root}]

	out := make([]string, 0, len(below))
	for id := range below {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (d *Directory) hierarchy() map[key]map[string]struct{} {
	d.mu.RLock()
	closure := d.closure
	d.mu.RUnlock()
	if closure != nil {
		return closure
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closure == nil {
		d.closure = reachable(d.records)
	}
	return d.closure
}

// reachable computes, for every record, the set of ids reachable through
// children lists of the same type. Cycles are tolerated; a record is never
// its own descendant unless a cycle leads back to it.
func reachable(records map[key]models.MasterData) map[key]map[string]struct{} {
	out := make(map[key]map[string]struct{}, len(records))

	for k, md := range records {
		seen := map[string]struct{}{}
		queue := append([]string(nil), md.Children...)

		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}

			if child, ok := records[key{k.vocab, id}]; ok {
				queue = append(queue, child.Children...)
			}
		}
		out[k] = seen
	}
	return out
}
