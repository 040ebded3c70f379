package meta

import (
	"fmt"

	"github.com/everpan/formrel/pkg/entity"
	"github.com/everpan/formrel/pkg/relation"
)

// Executor 执行查询，*xorm.Engine 和 *xorm.Session 都满足
type Executor interface {
	QueryInterface(sqlOrArgs ...interface{}) ([]map[string]interface{}, error)
}

// Fetch 执行关系查询，返回原始行
func Fetch(exec Executor, q *relation.Query) ([]map[string]interface{}, error) {
	r, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	return Exec(exec, r)
}

// Exec 执行已生成的语句
func Exec(exec Executor, r *relation.SQLResult) ([]map[string]interface{}, error) {
	args := make([]interface{}, 0, len(r.Args)+1)
	args = append(args, r.SQL)
	args = append(args, r.Args...)
	return exec.QueryInterface(args...)
}

// FetchRows 执行查询并把结果包装为本模型的已持久化记录
func (m *Model) FetchRows(exec Executor, q *relation.Query) (entity.Collection, error) {
	rows, err := Fetch(exec, q)
	if err != nil {
		return nil, err
	}
	c := make(entity.Collection, 0, len(rows))
	for _, row := range rows {
		r := m.NewRow(row)
		r.Persisted = true
		c = append(c, r)
	}
	return c, nil
}

// Find 按主键加载记录，不存在时返回 nil
func (m *Model) Find(exec Executor, dialect string, key any) (*entity.Row, error) {
	if key == nil {
		return nil, ErrNilParameter
	}
	q := relation.NewQuery(dialect, m).WhereKey(key)
	c, err := m.FetchRows(exec, q)
	if err != nil {
		return nil, fmt.Errorf("find %s(%v): %w", m.name, key, err)
	}
	if len(c) == 0 {
		return nil, nil
	}
	return c[0].(*entity.Row), nil
}
