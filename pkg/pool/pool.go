// Package pool manages the configured database targets: one pooled
// handle per target, an availability flag, and the review/formatter
// instances bound to the target's dialect.
//
// Availability is pessimistic. A target marked unavailable fails
// instantly on borrow with a fixed remediation message; the only way
// back is the status-listing probe. This keeps a dead link from turning
// every tool call into a network timeout.
package pool

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nsxbet/db-mcp/pkg/config"
	"github.com/nsxbet/db-mcp/pkg/logger"
	"github.com/nsxbet/db-mcp/pkg/plugin"
	"github.com/nsxbet/db-mcp/pkg/types"
)

// MsgConnectionUnavailable is the fixed client-facing borrow failure.
// It is deliberately stable text: agent clients pattern-match on it.
const MsgConnectionUnavailable = "Database connection unavailable. " +
	"Please ask the user to check the database connection; after it is available, " +
	"use the list_connections tool to re-validate connectivity."

// validationTimeout bounds the liveness ping during status listing.
const validationTimeout = 2 * time.Second

// Meta is the audit-labeling view of a target.
type Meta struct {
	Database string
	Schema   string
	Driver   string
}

type entry struct {
	cfg       config.ConnectionEntry
	db        *sql.DB
	available bool
	analyzer  plugin.Analyzer
	formatter plugin.Formatter
}

// Pool tracks every configured target. One mutex guards both the
// handle table and the availability flags; probes and borrows from
// concurrent tool calls interleave safely.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	policy  plugin.Policy
	log     logger.Interface
}

// New builds the pool from the loaded configuration. Every target with
// a non-blank name gets analyzer and formatter instances for its
// dialect, connected or not. Targets with a blank URL stay unavailable
// permanently. Construction fails only when no targets are configured
// or no connection at all could be opened; a per-target open failure is
// logged and the target marked unavailable.
func New(cfg *config.Config, log logger.Interface) (*Pool, error) {
	if log == nil {
		log = logger.New()
	}
	policy := plugin.Policy{
		WholeTextMatch: cfg.Review.WholeTextMatch,
		CommandMatch:   cfg.Review.CommandMatch,
	}

	p := &Pool{
		entries: make(map[string]*entry),
		policy:  policy,
		log:     log,
	}
	for _, c := range cfg.Connections {
		if c.Name == "" {
			continue
		}
		e := &entry{
			cfg:       c,
			analyzer:  plugin.NewAnalyzer(c.DBType, policy),
			formatter: plugin.NewFormatter(c.DBType),
		}
		p.entries[c.Name] = e
		p.order = append(p.order, c.Name)
	}
	if len(p.entries) == 0 {
		return nil, errors.New("no database connections configured")
	}

	opened := 0
	for _, name := range p.order {
		e := p.entries[name]
		if strings.TrimSpace(e.cfg.URL) == "" {
			log.Warn("connection has no URL, leaving unavailable", "connection", name)
			continue
		}
		db, err := open(e.cfg)
		if err != nil {
			log.Warn("failed to open connection", "connection", name, logger.Error(err))
			continue
		}
		e.db = db
		e.available = true
		opened++
		log.Info("opened connection", "connection", name, "db_type", plugin.DisplayName(e.cfg.DBType))
	}
	if opened == 0 {
		p.Close()
		return nil, errors.New("no database connections could be opened")
	}
	return p, nil
}

// open creates and validates a handle for the target.
func open(c config.ConnectionEntry) (*sql.DB, error) {
	db, err := sql.Open(c.Driver, c.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open driver %q", c.Driver)
	}
	ctx, cancel := context.WithTimeout(context.Background(), validationTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to validate connection %q", c.Name)
	}
	return db, nil
}

// DB borrows the pooled handle for the named target. A target known to
// be unavailable fails immediately with MsgConnectionUnavailable and no
// network round trip; recovery happens only through ListStatus. A
// missing handle on an otherwise healthy target is created lazily.
func (p *Pool) DB(name string) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[name]
	if !ok {
		return nil, errors.Errorf("unknown connection: %s", name)
	}
	if !e.available {
		return nil, errors.New(MsgConnectionUnavailable)
	}
	if e.db != nil {
		return e.db, nil
	}
	db, err := open(e.cfg)
	if err != nil {
		return nil, err
	}
	e.db = db
	return db, nil
}

// Analyzer returns the review engine bound to the target's dialect, or
// the default engine for an unknown name.
func (p *Pool) Analyzer(name string) plugin.Analyzer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[name]; ok {
		return e.analyzer
	}
	return plugin.NewAnalyzer("", p.policy)
}

// Formatter returns the formatter bound to the target's dialect, or the
// default formatter for an unknown name.
func (p *Pool) Formatter(name string) plugin.Formatter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[name]; ok {
		return e.formatter
	}
	return plugin.NewFormatter("")
}

// Meta returns the audit labels for the target. The driver label falls
// back to the dialect identifier when no driver is configured.
func (p *Pool) Meta(name string) Meta {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[name]
	if !ok {
		return Meta{}
	}
	driver := e.cfg.Driver
	if driver == "" {
		driver = e.cfg.DBType
	}
	return Meta{Database: e.cfg.Database, Schema: e.cfg.Schema, Driver: driver}
}

// MarkUnavailable closes and discards the target's handle and flips it
// to unavailable, so subsequent borrows fast-fail instead of repeating
// a dead link's timeout.
func (p *Pool) MarkUnavailable(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[name]
	if !ok {
		return
	}
	if e.db != nil {
		e.db.Close()
		e.db = nil
	}
	e.available = false
	p.log.Warn("connection marked unavailable", "connection", name)
}

// ListStatus re-probes every target regardless of cached state and
// returns their availability in configuration order. This is the only
// operation that can bring an unavailable target back.
func (p *Pool) ListStatus(ctx context.Context) []types.ConnectionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]types.ConnectionStatus, 0, len(p.order))
	for _, name := range p.order {
		e := p.entries[name]
		statuses = append(statuses, types.ConnectionStatus{
			Name:      name,
			Available: p.probe(ctx, e),
			DBType:    plugin.DisplayName(e.cfg.DBType),
		})
	}
	return statuses
}

// probe is called with the pool lock held.
func (p *Pool) probe(ctx context.Context, e *entry) bool {
	if strings.TrimSpace(e.cfg.URL) == "" {
		e.available = false
		return false
	}
	if e.db == nil {
		db, err := open(e.cfg)
		if err != nil {
			p.log.Warn("connection probe failed", "connection", e.cfg.Name, logger.Error(err))
			e.available = false
			return false
		}
		e.db = db
		e.available = true
		return true
	}

	pingCtx, cancel := context.WithTimeout(ctx, validationTimeout)
	defer cancel()
	if err := e.db.PingContext(pingCtx); err != nil {
		// Discard the handle so the next probe starts clean.
		p.log.Warn("connection validation failed", "connection", e.cfg.Name, logger.Error(err))
		e.db.Close()
		e.db = nil
		e.available = false
		return false
	}
	e.available = true
	return true
}

// Names returns the configured target names in configuration order.
func (p *Pool) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Close releases every open handle.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e.db != nil {
			e.db.Close()
			e.db = nil
		}
		e.available = false
	}
}

// connectionErrorMarks are the message fragments that classify a driver
// failure as connectivity loss rather than a statement error. The scan
// is textual on purpose: driver error taxonomies are not uniform across
// dialects, but their connectivity messages are recognizable.
var connectionErrorMarks = []string{
	"ora-12541", "ora-12514", "ora-12154", "ora-12170",
	"ora-03113", "ora-01012", "ora-12560", "ora-17002",
	"tns:", "no listener",
	"connection closed", "connection is closed", "connection has been closed",
	"connection reset", "connection refused",
	"broken pipe", "i/o error", "i/o timeout",
	"driver: bad connection", "invalid connection",
	"eof",
}

// IsConnectionError reports whether the error, anywhere along its
// unwrap chain, looks like a lost-connectivity failure.
func IsConnectionError(err error) bool {
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		msg := strings.ToLower(e.Error())
		for _, mark := range connectionErrorMarks {
			if strings.Contains(msg, mark) {
				return true
			}
		}
	}
	return false
}
