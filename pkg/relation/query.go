package relation

import (
	"strings"

	"xorm.io/builder"
)

// Join 查询中的一个连接
type Join struct {
	Type  string // LEFT / INNER
	Table string
	Cond  builder.Cond
}

// Query 限定在目标模型上的查询，组成部分分开保存，最终由 ToSQL 交给 xorm builder
type Query struct {
	dialect string
	model   Model
	selects []string
	conds   []builder.Cond
	joins   []*Join
	orders  []string
	err     error
}

// NewQuery 创建目标模型上不带任何关系约束的查询
func NewQuery(dialect string, m Model) *Query {
	return &Query{dialect: dialect, model: m}
}

func (q *Query) Model() Model {
	return q.model
}

func (q *Query) Dialect() string {
	return q.dialect
}

// QualifyColumn 为列加上表名前缀，已带前缀或是表达式的原样返回
func (q *Query) QualifyColumn(col string) string {
	if strings.ContainsAny(col, ".( ") {
		return col
	}
	return q.model.TableName() + "." + col
}

// Select 替换查询列
func (q *Query) Select(cols ...string) *Query {
	q.selects = append(q.selects[:0], cols...)
	return q
}

func (q *Query) Selects() []string {
	return q.selects
}

// Where 以操作符添加条件，操作符见 Cond
func (q *Query) Where(col, op string, val any) *Query {
	cond, err := Cond(q.QualifyColumn(col), op, val)
	if err != nil {
		if q.err == nil {
			q.err = err
		}
		return q
	}
	return q.WhereCond(cond)
}

// WhereKey 限定为主键等于 key 的记录
func (q *Query) WhereKey(key any) *Query {
	return q.WhereCond(builder.Eq{q.QualifyColumn(q.model.KeyName()): key})
}

// WhereCond 直接添加 builder 条件
func (q *Query) WhereCond(cond builder.Cond) *Query {
	if cond != nil && cond.IsValid() {
		q.conds = append(q.conds, cond)
	}
	return q
}

// OrderByRaw 追加原始排序表达式
func (q *Query) OrderByRaw(expr string) *Query {
	if expr = strings.TrimSpace(expr); expr != "" {
		q.orders = append(q.orders, expr)
	}
	return q
}

func (q *Query) Orders() []string {
	return q.orders
}

// Join 添加连接
func (q *Query) Join(joinType, table string, cond builder.Cond) *Query {
	q.joins = append(q.joins, &Join{Type: joinType, Table: table, Cond: cond})
	return q
}

// Joins 当前的连接列表
func (q *Query) Joins() []*Join {
	return q.joins
}

// ClearJoins 移除全部连接
func (q *Query) ClearJoins() *Query {
	q.joins = nil
	return q
}

// Err 构建过程中记录的第一个错误
func (q *Query) Err() error {
	return q.err
}

// ToSQL 生成查询语句
func (q *Query) ToSQL() (*SQLResult, error) {
	if q.err != nil {
		return nil, q.err
	}
	cols := q.selects
	if len(cols) == 0 {
		cols = []string{"*"}
	}
	b := builder.Dialect(q.dialect).Select(cols...).From(q.model.TableName())
	for _, j := range q.joins {
		b.Join(j.Type, j.Table, j.Cond)
	}
	if len(q.conds) > 0 {
		b.Where(builder.And(q.conds...))
	}
	if len(q.orders) > 0 {
		b.OrderBy(strings.Join(q.orders, ", "))
	}
	sql, args, err := b.ToSQL()
	if err != nil {
		return nil, err
	}
	return &SQLResult{SQL: sql, Args: args}, nil
}
