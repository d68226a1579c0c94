// Package signature implements the content-addressed signature store of
// spec.md §4.2: Lookup/Record/Invalidate with ForceMode, backing the
// executor's skip-on-unchanged-input incremental builds. The in-memory
// index is a map guarded by a sync.RWMutex, with per-key locks sharded over
// a fixed set of mutexes (keylock.go); durability is an append-only
// JSON-lines journal, guarded across
// processes with github.com/gofrs/flock (spec.md §5 "concurrent engine
// invocations sharing a workspace").
package signature

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

// ForceMode controls how Lookup treats an otherwise-valid cache hit
// (spec.md §4.2).
type ForceMode int

const (
	// ForceDefault: honor the cache, skip if the signature matches.
	ForceDefault ForceMode = iota
	// ForceRun: always execute, regardless of cache state.
	ForceRun
	// ForceIgnore: never consult or update the store (always-run,
	// always-untracked).
	ForceIgnore
	// ForceBuildOnly: execute only if no record exists yet; never
	// re-execute an already-recorded target.
	ForceBuildOnly
	// ForceAssert: fail loudly if the cache would have been a miss,
	// instead of silently re-running (used by validation/CI modes).
	ForceAssert
)

// OutputRecord is one output a substep produced, recorded so Lookup can
// verify the output set is still intact before reporting a cache hit
// (spec.md §4.2 "Hit(outputs) only if ... every recorded output still
// exists").
type OutputRecord struct {
	Path   string
	Digest string
}

// Record is one signature entry: the digest of a target's producing
// inputs/environment, and the output set it produced, at the time it was
// last successfully run (spec.md §3 "(substep-key, input-digests,
// output-digests, action-digest, ...)").
type Record struct {
	TargetKey   string
	StepName    string
	InputDigest string // hex sha256 over concatenated input digests + bound vars
	Outputs     []OutputRecord
	Zapped      bool
}

// Store is the signature store. Safe for concurrent use; Lookup/Record take
// a per-key lock (sharded) so concurrent substeps racing on the same
// target serialize correctly; unrelated keys block each other only when
// they hash to the same shard.
type Store struct {
	mu      sync.RWMutex // guards index map structure (not entries)
	index   map[string]Record
	keyLock *keyLocks
	journal *Journal
	log     *zap.Logger
}

// Open opens (creating if absent) the signature journal at journalPath and
// replays it into an in-memory index.
func Open(journalPath string, log *zap.Logger) (*Store, error) {
	j, records, err := openJournal(journalPath)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]Record, len(records))
	for _, r := range records {
		idx[r.TargetKey] = r
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		index:   idx,
		keyLock: newKeyLocks(),
		journal: j,
		log:     log,
	}, nil
}

// Close releases the journal's file lock and handle.
func (s *Store) Close() error {
	return s.journal.Close()
}

// Lookup reports whether the given target/step is already satisfied by an
// unchanged digest and an intact output set, honoring mode. A true result
// means the caller should skip execution; outputs is the recorded output
// set, returned so the caller can surface it as the skipped substep's
// outputs (spec.md invariant "recorded outputs are surfaced as S's
// outputs") instead of recomputing it.
func (s *Store) Lookup(targetKey, stepName, digest string, mode ForceMode) (hit bool, outputs []OutputRecord, err error) {
	if mode == ForceIgnore || mode == ForceRun {
		return false, nil, nil
	}

	unlock := s.keyLock.lock(targetKey)
	defer unlock()

	s.mu.RLock()
	rec, ok := s.index[targetKey]
	s.mu.RUnlock()

	hit = ok && rec.StepName == stepName && rec.InputDigest == digest && !rec.Zapped && outputsIntact(rec.Outputs)

	switch mode {
	case ForceBuildOnly:
		return ok, nil, nil
	case ForceAssert:
		if !hit {
			return false, nil, errCacheMiss{targetKey: targetKey}
		}
		return true, rec.Outputs, nil
	default: // ForceDefault
		if !hit {
			return false, nil, nil
		}
		return true, rec.Outputs, nil
	}
}

// outputsIntact reports whether every output path recorded for a hit still
// exists on disk. A record whose output was deleted since it was last
// produced must miss, or a skip would silently fail to recreate it.
func outputsIntact(outputs []OutputRecord) bool {
	for _, o := range outputs {
		if _, err := os.Stat(o.Path); err != nil {
			return false
		}
	}
	return true
}

// Record persists a fresh signature for targetKey after a successful
// production, both in the in-memory index and the durable journal.
func (s *Store) Record(targetKey, stepName, digest string, outputs []OutputRecord) error {
	unlock := s.keyLock.lock(targetKey)
	defer unlock()

	rec := Record{TargetKey: targetKey, StepName: stepName, InputDigest: digest, Outputs: outputs}
	if err := s.journal.Append(rec); err != nil {
		return err
	}

	s.mu.Lock()
	s.index[targetKey] = rec
	s.mu.Unlock()

	s.log.Debug("signature recorded", zap.String("target", targetKey), zap.String("step", stepName))
	return nil
}

// Invalidate marks any recorded signature for targetKey as zapped (the
// record stays in the index and the journal), so the next Lookup misses,
// except under ForceBuildOnly, which only checks that a record exists
// (used by `zap`, spec.md §4.2).
func (s *Store) Invalidate(targetKey string) error {
	unlock := s.keyLock.lock(targetKey)
	defer unlock()

	s.mu.Lock()
	rec, ok := s.index[targetKey]
	if ok {
		rec.Zapped = true
		s.index[targetKey] = rec
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}
	return s.journal.Append(rec)
}

// errCacheMiss is returned by Lookup under ForceAssert when the store would
// otherwise have been a miss.
type errCacheMiss struct{ targetKey string }

func (e errCacheMiss) Error() string {
	return "signature: assert mode: cache miss for target " + e.targetKey
}
