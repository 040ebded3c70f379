package meta

import (
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xorm.io/xorm"
	"xorm.io/xorm/schemas"
)

var engine *xorm.Engine

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "formrel-meta")
	if err != nil {
		panic(err)
	}
	engine, err = xorm.NewEngine("sqlite3", filepath.Join(dir, "meta.db"))
	if err != nil {
		panic(err)
	}
	for _, s := range []string{
		"CREATE TABLE customers (customer_id INTEGER PRIMARY KEY, first_name VARCHAR(64), last_name VARCHAR(64))",
		"INSERT INTO customers VALUES (1, 'Ada', 'Lovelace'), (2, 'Alan', 'Turing')",
	} {
		if _, err = engine.Exec(s); err != nil {
			panic(err)
		}
	}
	code := m.Run()
	_ = engine.Close()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type countingSource struct {
	SchemaSource
	calls int
}

func (s *countingSource) DBMetas() ([]*schemas.Table, error) {
	s.calls++
	return s.SchemaSource.DBMetas()
}

func TestSchemaCache(t *testing.T) {
	cache, err := NewSchemaCache(0, 0)
	require.NoError(t, err)
	src := &countingSource{SchemaSource: engine}

	ok, err := cache.HasColumn(src, "customers", "first_name")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = cache.HasColumn(src, "customers", "name")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, src.calls)

	_, err = cache.Table(src, "nothing")
	assert.ErrorIs(t, err, ErrTableNotFound)

	cache.Invalidate(src)
	_, err = cache.Table(src, "customers")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)

	_, err = cache.Table(nil, "customers")
	assert.ErrorIs(t, err, ErrNilParameter)
}

func TestModel_Find(t *testing.T) {
	m := NewModel("customers", "customers", "customer_id")
	row, err := m.Find(engine, engine.DriverName(), 2)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, row.Exists())
	assert.Equal(t, int64(2), cast.ToInt64(row.Key()))
	first, _ := row.Attribute("first_name")
	assert.Equal(t, "Alan", cast.ToString(first))

	row, err = m.Find(engine, engine.DriverName(), 99)
	assert.NoError(t, err)
	assert.Nil(t, row)

	_, err = m.Find(engine, engine.DriverName(), nil)
	assert.ErrorIs(t, err, ErrNilParameter)

	_, err = NewModel("nothing", "nothing", "id").Find(engine, engine.DriverName(), 1)
	assert.Error(t, err)
}

func TestModel_Describe(t *testing.T) {
	cache, err := NewSchemaCache(2, 0)
	require.NoError(t, err)
	m := NewModel("customers", "customers", "customer_id").SetSortOrder("last_name")

	jm, err := m.Describe(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, jm.Attrs)
	assert.Equal(t, []string{"customer_id"}, jm.PrimaryKeys)
	assert.Equal(t, "last_name", jm.Sorted)

	jm, err = m.Describe(cache, engine)
	require.NoError(t, err)
	names := make([]string, 0, len(jm.Attrs))
	for _, a := range jm.Attrs {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"customer_id", "first_name", "last_name"}, names)
	assert.NotEmpty(t, jm.Attrs[1].Type)

	_, err = NewModel("nothing", "nothing", "id").Describe(cache, engine)
	assert.ErrorIs(t, err, ErrTableNotFound)
}
