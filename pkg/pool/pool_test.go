package pool

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"sync/atomic"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/db-mcp/pkg/config"
)

// countingDriver counts physical connection attempts so tests can prove
// that a fast-failed borrow performs no network round trip.
type countingDriver struct {
	opens   atomic.Int32
	failing atomic.Bool
}

func (d *countingDriver) Open(string) (driver.Conn, error) {
	d.opens.Add(1)
	if d.failing.Load() {
		return nil, pkgerrors.New("dial tcp 127.0.0.1:3306: connection refused")
	}
	return nopConn{}, nil
}

type nopConn struct{}

func (nopConn) Prepare(string) (driver.Stmt, error) { return nil, pkgerrors.New("not supported") }
func (nopConn) Close() error                        { return nil }
func (nopConn) Begin() (driver.Tx, error)           { return nil, pkgerrors.New("not supported") }

var testDriver = &countingDriver{}

func init() {
	sql.Register("poolfake", testDriver)
}

func testConfig(url string) *config.Config {
	return &config.Config{
		Connections: []config.ConnectionEntry{
			{Name: "main", Driver: "poolfake", DBType: "mysql", URL: url, Database: "app", Schema: "public"},
		},
		Review: config.ReviewConfig{CommandMatch: []string{"drop table"}},
	}
}

func TestNew_NoConnectionsConfigured(t *testing.T) {
	_, err := New(&config.Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database connections configured")
}

func TestNew_AllOpensFail(t *testing.T) {
	testDriver.failing.Store(true)
	defer testDriver.failing.Store(false)

	_, err := New(testConfig("dsn"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could be opened")
}

func TestNew_BlankURLStaysUnavailable(t *testing.T) {
	cfg := testConfig("dsn")
	cfg.Connections = append(cfg.Connections, config.ConnectionEntry{
		Name: "spare", Driver: "poolfake", DBType: "postgresql",
	})
	p, err := New(cfg, nil)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.DB("spare")
	require.Error(t, err)
	assert.Equal(t, MsgConnectionUnavailable, err.Error())

	statuses := p.ListStatus(context.Background())
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Available)
	assert.False(t, statuses[1].Available)
}

func TestDB_FastFailWithoutNetworkCall(t *testing.T) {
	p, err := New(testConfig("dsn"), nil)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.DB("main")
	require.NoError(t, err)

	p.MarkUnavailable("main")
	before := testDriver.opens.Load()

	_, err = p.DB("main")
	require.Error(t, err)
	assert.Equal(t, MsgConnectionUnavailable, err.Error())
	assert.Equal(t, before, testDriver.opens.Load(), "fast-fail must not touch the driver")
}

func TestListStatus_IsTheRecoveryPath(t *testing.T) {
	p, err := New(testConfig("dsn"), nil)
	require.NoError(t, err)
	defer p.Close()

	p.MarkUnavailable("main")
	_, err = p.DB("main")
	require.Error(t, err)

	statuses := p.ListStatus(context.Background())
	require.Len(t, statuses, 1)
	assert.Equal(t, "main", statuses[0].Name)
	assert.Equal(t, "mysql", statuses[0].DBType)
	assert.True(t, statuses[0].Available)

	_, err = p.DB("main")
	assert.NoError(t, err, "a successful probe restores borrowing")
}

func TestDB_UnknownName(t *testing.T) {
	p, err := New(testConfig("dsn"), nil)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.DB("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown connection")
}

func TestMeta(t *testing.T) {
	p, err := New(testConfig("dsn"), nil)
	require.NoError(t, err)
	defer p.Close()

	m := p.Meta("main")
	assert.Equal(t, "app", m.Database)
	assert.Equal(t, "public", m.Schema)
	assert.Equal(t, "poolfake", m.Driver)
}

func TestAnalyzerAndFormatterBoundPerTarget(t *testing.T) {
	p, err := New(testConfig("dsn"), nil)
	require.NoError(t, err)
	defer p.Close()

	a := p.Analyzer("main")
	require.NotNil(t, a)
	assert.True(t, a.Analyze("DROP TABLE t").IsDangerous)

	f := p.Formatter("main")
	require.NotNil(t, f)
	assert.Contains(t, f.Format("select 1"), "SELECT")

	// Unknown names still get the default engine.
	assert.NotNil(t, p.Analyzer("nope"))
	assert.NotNil(t, p.Formatter("nope"))
}

func TestIsConnectionError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{pkgerrors.New("dial tcp: connection refused"), true},
		{pkgerrors.New("write: broken pipe"), true},
		{pkgerrors.New("read tcp: i/o timeout"), true},
		{pkgerrors.New("driver: bad connection"), true},
		{pkgerrors.New("ORA-12541: TNS:no listener"), true},
		{io.ErrUnexpectedEOF, true},
		{pkgerrors.Wrap(pkgerrors.New("connection reset by peer"), "query failed"), true},
		{pkgerrors.New("syntax error at or near SELEC"), false},
		{pkgerrors.New("duplicate key value violates unique constraint"), false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsConnectionError(c.err), "%v", c.err)
	}
}
