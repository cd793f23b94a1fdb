// Package plugin is the dialect registry: it binds a configured db_type
// to an Analyzer and a Formatter implementation.
//
// The registry always has a dependency-free default (pkg/analyzer and
// pkg/formatter). Dialect backends register themselves from an init
// function and are selected by blank-importing their package:
//
//	import _ "github.com/nsxbet/db-mcp/pkg/plugin/mysql"
//
// An unknown or empty dialect resolves to the default backend, so the
// core stays fully functional with no dialect plugin present.
package plugin

import (
	"strings"
	"sync"

	"github.com/nsxbet/db-mcp/pkg/analyzer"
	"github.com/nsxbet/db-mcp/pkg/formatter"
	"github.com/nsxbet/db-mcp/pkg/types"
)

// Analyzer produces a review verdict for arbitrary SQL text.
// Implementations must be safe for concurrent use.
type Analyzer interface {
	Analyze(sql string) *types.AnalysisResult
}

// Formatter renders SQL for human display. FormatHTMLPreserveLayout must
// colorize without re-flowing layout; it is used when the original text
// has to be shown verbatim.
type Formatter interface {
	Format(sql string) string
	FormatHTML(sql string) string
	FormatHTMLPreserveLayout(sql string) string
}

// Policy is the review policy handed to analyzer factories.
type Policy struct {
	WholeTextMatch []string
	CommandMatch   []string
}

// Backend is one registered dialect implementation.
type Backend struct {
	NewAnalyzer  func(policy Policy) Analyzer
	NewFormatter func() Formatter
}

var (
	mu       sync.RWMutex
	backends = make(map[string]Backend)
)

// Register installs a backend under a dialect key. Called from plugin
// init functions; later registrations for the same key win.
func Register(dialect string, b Backend) {
	mu.Lock()
	defer mu.Unlock()
	backends[normalizeDialect(dialect)] = b
}

// NewAnalyzer returns the analyzer for the dialect, falling back to the
// default engine when the dialect is empty or unregistered.
func NewAnalyzer(dialect string, policy Policy) Analyzer {
	mu.RLock()
	b, ok := backends[normalizeDialect(dialect)]
	mu.RUnlock()
	if ok && b.NewAnalyzer != nil {
		return b.NewAnalyzer(policy)
	}
	return analyzer.New(policy.WholeTextMatch, policy.CommandMatch)
}

// NewFormatter returns the formatter for the dialect, falling back to
// the default formatter.
func NewFormatter(dialect string) Formatter {
	mu.RLock()
	b, ok := backends[normalizeDialect(dialect)]
	mu.RUnlock()
	if ok && b.NewFormatter != nil {
		return b.NewFormatter()
	}
	return formatter.New()
}

// dialectAliases maps config spellings to registry keys.
var dialectAliases = map[string]string{
	"sql_server": "sqlserver",
	"pg":         "postgresql",
	"postgres":   "postgresql",
	"mariadb":    "mysql",
}

func normalizeDialect(dialect string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(dialect)), "-", "_")
	if alias, ok := dialectAliases[key]; ok {
		return alias
	}
	return key
}

// DisplayName is the dialect label shown by the status listing: the
// user's spelling, lower-cased, or "sql" when unset.
func DisplayName(dialect string) string {
	d := strings.ToLower(strings.TrimSpace(dialect))
	if d == "" {
		return "sql"
	}
	return d
}
