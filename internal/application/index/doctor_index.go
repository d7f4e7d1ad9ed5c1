// Package index holds the in-memory n-gram index over available doctors.
package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/pkg/ngram"
)

// Mode selects how the inverted index is keyed
type Mode string

const (
	// ModeIsolated keeps one inverted index per gram size
	ModeIsolated Mode = "isolated"
	// ModeMerged keeps grams of every size in a single inverted index
	ModeMerged Mode = "merged"
)

// mergedKey is the inverted index slot used in merged mode
const mergedKey = 0

// mostCommonLimit is how many grams Stats reports as most common
const mostCommonLimit = 10

// Entry is one indexed doctor
type Entry struct {
	Doctor *entities.Doctor
	Text   string
	Grams  map[int]ngram.Set
}

// Loader fetches the doctors an index is built from
type Loader func(ctx context.Context) ([]*entities.Doctor, error)

type postings map[string]map[string]struct{}

type snapshot struct {
	entries  map[string]*Entry
	ids      []string
	inverted map[int]postings
}

// DoctorIndex is a rebuild-only n-gram index. Readers always see a complete
// snapshot; Build prepares the next one off to the side and swaps it in.
type DoctorIndex struct {
	mode    Mode
	sizes   []int
	current atomic.Pointer[snapshot]
	stale   atomic.Bool
	buildMu sync.Mutex
}

// NewDoctorIndex creates an empty index. Unknown modes fall back to isolated.
func NewDoctorIndex(mode Mode) *DoctorIndex {
	if mode != ModeMerged {
		mode = ModeIsolated
	}
	idx := &DoctorIndex{
		mode:  mode,
		sizes: append([]int(nil), ngram.IndexSizes...),
	}
	idx.current.Store(emptySnapshot())
	return idx
}

// Mode returns the inverted index layout
func (idx *DoctorIndex) Mode() Mode {
	return idx.mode
}

// Sizes returns the gram sizes the index is built with
func (idx *DoctorIndex) Sizes() []int {
	return append([]int(nil), idx.sizes...)
}

// Build replaces the whole index with the given doctors
func (idx *DoctorIndex) Build(doctors []*entities.Doctor) {
	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()
	idx.build(doctors)
}

func (idx *DoctorIndex) build(doctors []*entities.Doctor) {
	next := emptySnapshot()

	for _, d := range doctors {
		if d == nil || d.ID == "" {
			continue
		}
		text := d.SearchableText()
		entry := &Entry{
			Doctor: d,
			Text:   text,
			Grams:  ngram.Sets(text, idx.sizes...),
		}
		if _, dup := next.entries[d.ID]; !dup {
			next.ids = append(next.ids, d.ID)
		}
		next.entries[d.ID] = entry
	}
	sort.Strings(next.ids)

	// Postings are filled from the final entries so a duplicate ID never
	// leaves grams behind from an earlier record.
	for _, id := range next.ids {
		for n, set := range next.entries[id].Grams {
			p := next.postingsFor(idx.key(n))
			for g := range set {
				docs, ok := p[g]
				if !ok {
					docs = make(map[string]struct{})
					p[g] = docs
				}
				docs[id] = struct{}{}
			}
		}
	}

	idx.current.Store(next)
	idx.stale.Store(false)
}

// EnsureBuilt builds the index from load when it is empty or stale.
// Concurrent callers share one build.
func (idx *DoctorIndex) EnsureBuilt(ctx context.Context, load Loader) (bool, error) {
	if !idx.NeedsBuild() {
		return false, nil
	}

	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()

	if !idx.NeedsBuild() {
		return false, nil
	}

	doctors, err := load(ctx)
	if err != nil {
		return false, fmt.Errorf("load doctors for index: %w", err)
	}
	idx.build(doctors)
	return true, nil
}

// NeedsBuild reports whether the next lazy access should rebuild
func (idx *DoctorIndex) NeedsBuild() bool {
	return idx.IsEmpty() || idx.IsStale()
}

// IsEmpty reports whether no doctor is indexed
func (idx *DoctorIndex) IsEmpty() bool {
	return len(idx.current.Load().ids) == 0
}

// IsStale reports whether the index was invalidated since the last build
func (idx *DoctorIndex) IsStale() bool {
	return idx.stale.Load()
}

// Invalidate marks the index stale; readers keep the current snapshot
// until the next rebuild
func (idx *DoctorIndex) Invalidate() {
	idx.stale.Store(true)
}

// Clear drops every entry
func (idx *DoctorIndex) Clear() {
	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()
	idx.current.Store(emptySnapshot())
	idx.stale.Store(false)
}

// Size returns the number of indexed doctors
func (idx *DoctorIndex) Size() int {
	return len(idx.current.Load().ids)
}

// Entry returns the indexed doctor with the given ID
func (idx *DoctorIndex) Entry(id string) (*Entry, bool) {
	e, ok := idx.current.Load().entries[id]
	return e, ok
}

// Entries returns every indexed doctor ordered by ID
func (idx *DoctorIndex) Entries() []*Entry {
	snap := idx.current.Load()
	out := make([]*Entry, 0, len(snap.ids))
	for _, id := range snap.ids {
		out = append(out, snap.entries[id])
	}
	return out
}

// Lookup returns the IDs of doctors whose text produced gram at size n,
// ordered by ID. In merged mode n is ignored.
func (idx *DoctorIndex) Lookup(gram string, n int) []string {
	p := idx.current.Load().inverted[idx.key(n)]
	return sortedIDs(p[gram])
}

// Candidates returns the union of doctors referenced by any query gram,
// ordered by ID
func (idx *DoctorIndex) Candidates(queryGrams map[int]ngram.Set) []string {
	snap := idx.current.Load()
	union := make(map[string]struct{})
	for n, set := range queryGrams {
		p := snap.inverted[idx.key(n)]
		if p == nil {
			continue
		}
		for g := range set {
			for id := range p[g] {
				union[id] = struct{}{}
			}
		}
	}
	return sortedIDs(union)
}

// Stats summarises the current snapshot
func (idx *DoctorIndex) Stats() entities.NgramStatistics {
	snap := idx.current.Load()

	counts := make(map[string]int)
	for _, p := range snap.inverted {
		for g, docs := range p {
			counts[g] += len(docs)
		}
	}

	distribution := make(map[int]int)
	common := make([]entities.NgramCount, 0, len(counts))
	for g, c := range counts {
		distribution[c]++
		common = append(common, entities.NgramCount{Ngram: g, Doctors: c})
	}
	sort.Slice(common, func(i, j int) bool {
		if common[i].Doctors != common[j].Doctors {
			return common[i].Doctors > common[j].Doctors
		}
		return common[i].Ngram < common[j].Ngram
	})
	if len(common) > mostCommonLimit {
		common = common[:mostCommonLimit]
	}

	return entities.NgramStatistics{
		TotalDoctors:      len(snap.ids),
		TotalNgrams:       len(counts),
		NgramDistribution: distribution,
		MostCommonNgrams:  common,
	}
}

func (idx *DoctorIndex) key(n int) int {
	if idx.mode == ModeMerged {
		return mergedKey
	}
	return n
}

func (s *snapshot) postingsFor(key int) postings {
	p, ok := s.inverted[key]
	if !ok {
		p = make(postings)
		s.inverted[key] = p
	}
	return p
}

func emptySnapshot() *snapshot {
	return &snapshot{
		entries:  make(map[string]*Entry),
		ids:      []string{},
		inverted: make(map[int]postings),
	}
}

func sortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
