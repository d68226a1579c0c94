package signature

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Journal is the durable append-only JSON-lines record of every signature
// ever written, advisory-locked across processes with flock so concurrent
// sosflow invocations sharing a workspace (spec.md §5) never interleave
// partial writes.
type Journal struct {
	path string
	file *os.File
	flk  *flock.Flock
}

// openJournal opens (creating if absent) the journal file, takes an
// exclusive cross-process advisory lock for the duration of the Store's
// lifetime, and replays every existing record.
func openJournal(path string) (*Journal, []Record, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("signature: create journal dir: %w", err)
		}
	}

	flk := flock.New(path + ".lock")
	if err := flk.Lock(); err != nil {
		return nil, nil, fmt.Errorf("signature: acquire journal lock: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		flk.Unlock()
		return nil, nil, fmt.Errorf("signature: open journal: %w", err)
	}

	records, err := replay(f)
	if err != nil {
		f.Close()
		flk.Unlock()
		return nil, nil, err
	}

	return &Journal{path: path, file: f, flk: flk}, records, nil
}

func replay(f *os.File) ([]Record, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("signature: seek journal: %w", err)
	}
	var records []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("signature: corrupt journal line %q: %w", line, err)
		}
		records = append(records, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("signature: read journal: %w", err)
	}
	if _, err := f.Seek(0, 2); err != nil {
		return nil, fmt.Errorf("signature: seek journal end: %w", err)
	}
	return records, nil
}

// Append writes one record as a single JSON line and fsyncs it, so a crash
// mid-run leaves the journal truncated but never torn.
func (j *Journal) Append(r Record) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("signature: marshal record: %w", err)
	}
	b = append(b, '\n')
	if _, err := j.file.Write(b); err != nil {
		return fmt.Errorf("signature: append journal: %w", err)
	}
	return j.file.Sync()
}

// Close releases the file handle and the cross-process lock.
func (j *Journal) Close() error {
	cerr := j.file.Close()
	if err := j.flk.Unlock(); err != nil && cerr == nil {
		cerr = err
	}
	return cerr
}
