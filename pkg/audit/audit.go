// Package audit writes the append-only trail of reviewed SQL actions.
//
// Entries are plain UTF-8 text blocks terminated by a fixed marker
// line. Files rotate at 10 MiB with the timestamp embedded in the name,
// so a lexicographic sort of the directory is also a chronological one.
// Every write is fsynced: the record of an action must survive a crash
// immediately after the action.
//
// Logging is best-effort. Log returns its error so the caller can see
// it, but callers on the primary path discard it; an audit failure
// never aborts the operation it records.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	maxFileSize  = 10 << 20
	rotateFormat = "2006-01-02_150405"
	endMarker    = "######AUDIT_END######"
)

// Entry is one immutable audit record. Database and Schema are part of
// the logging contract but are not serialized; the on-disk header block
// carries connection, driver, keywords, approval, action and the
// optional output file.
type Entry struct {
	SQL             string
	MatchedKeywords []string
	Approved        bool
	Action          string
	Connection      string
	Database        string
	Schema          string
	Driver          string
	OutputFile      string
}

// Auditor appends entries to the current audit file, rotating as
// needed. One mutex serializes writers so rotation decisions and byte
// writes are atomic with respect to each other.
type Auditor struct {
	mu          sync.Mutex
	dir         string
	base        string
	ext         string
	path        string
	currentSize int64
}

// New derives the directory, base name and extension from the
// configured log path, then either reuses the most recent matching file
// still under the size threshold or creates a fresh timestamped one.
func New(logFile string) (*Auditor, error) {
	dir := filepath.Dir(logFile)
	filename := filepath.Base(logFile)
	if filename == "." || filename == string(filepath.Separator) {
		filename = "audit.log"
	}

	a := &Auditor{dir: dir}
	if dot := strings.LastIndex(filename, "."); dot > 0 {
		a.base = filename[:dot]
		a.ext = filename[dot:]
	} else {
		a.base = filename
		a.ext = ".log"
	}
	if err := a.openOrCreate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Auditor) openOrCreate() error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create audit directory: %s", a.dir)
	}
	matches, err := filepath.Glob(filepath.Join(a.dir, a.base+"_*"+a.ext))
	if err != nil {
		return errors.Wrap(err, "failed to scan audit directory")
	}
	// Timestamped names sort lexicographically in time order; descending
	// puts the most recent first.
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if info.Size() < maxFileSize {
			a.path = path
			a.currentSize = info.Size()
			return nil
		}
	}
	return a.rotate()
}

// rotate points the auditor at a fresh timestamped file. Called with
// the mutex held (or from New before the auditor is shared).
func (a *Auditor) rotate() error {
	name := a.base + "_" + time.Now().Format(rotateFormat) + a.ext
	path := filepath.Join(a.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to create audit file: %s", path)
	}
	info, err := f.Stat()
	f.Close()
	if err != nil {
		return errors.Wrapf(err, "failed to stat audit file: %s", path)
	}
	a.path = path
	a.currentSize = info.Size()
	return nil
}

// Log appends one entry, rotating first when the current file has
// content and would reach the threshold. The write is flushed and
// fsynced before returning.
func (a *Auditor) Log(e Entry) error {
	entry := render(e)
	size := int64(len(entry))

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.currentSize+size >= maxFileSize && a.currentSize > 0 {
		if err := a.rotate(); err != nil {
			// Keep writing to the oversized file rather than drop the entry.
			a.currentSize += size
			return a.append(entry)
		}
	}
	a.currentSize += size
	return a.append(entry)
}

func (a *Auditor) append(entry []byte) error {
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to open audit file: %s", a.path)
	}
	defer f.Close()
	if _, err := f.Write(entry); err != nil {
		return errors.Wrap(err, "failed to write audit entry")
	}
	if err := f.Sync(); err != nil {
		return errors.Wrap(err, "failed to sync audit file")
	}
	return nil
}

// Path returns the file the next entry will be appended to.
func (a *Auditor) Path() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.path
}

func render(e Entry) []byte {
	keywords := "none"
	if len(e.MatchedKeywords) > 0 {
		keywords = strings.Join(e.MatchedKeywords, ",")
	}
	connection := e.Connection
	if connection == "" {
		connection = "default"
	}
	driver := e.Driver
	if driver == "" {
		driver = "-"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "AUDIT_TIME=%s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "AUDIT_CONNECTION=%s\n", connection)
	fmt.Fprintf(&b, "AUDIT_DRIVER=%s\n", driver)
	fmt.Fprintf(&b, "AUDIT_KEYWORDS=%s\n", keywords)
	fmt.Fprintf(&b, "AUDIT_APPROVED=%s\n", strconv.FormatBool(e.Approved))
	fmt.Fprintf(&b, "AUDIT_ACTION=%s\n", e.Action)
	if e.OutputFile != "" {
		fmt.Fprintf(&b, "AUDIT_OUTPUT_FILE=%s\n", e.OutputFile)
	}
	b.WriteString("AUDIT_SQL=\n")
	b.WriteString(e.SQL)
	if !strings.HasSuffix(e.SQL, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(endMarker + "\n")
	return []byte(b.String())
}
