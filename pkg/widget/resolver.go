// Package widget 把模型上的关系解析为选择控件的选项列表
package widget

import (
	"fmt"

	"github.com/everpan/formrel/pkg/entity"
	"github.com/everpan/formrel/pkg/entity/meta"
	"github.com/everpan/formrel/pkg/location"
	"github.com/everpan/formrel/pkg/relation"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Resolver 每个请求构建一个，不保存跨请求的状态
type Resolver struct {
	models   *meta.Registry
	exec     meta.Executor
	dialect  string
	location location.Context
	schemas  *meta.SchemaCache
	source   meta.SchemaSource
	logger   *zap.Logger
}

type ResolverOption func(*Resolver)

// WithLocation 设置门店上下文
func WithLocation(ctx location.Context) ResolverOption {
	return func(r *Resolver) {
		r.location = ctx
	}
}

// WithSchema 用表结构判断 nameFrom 列是否可用
func WithSchema(cache *meta.SchemaCache, src meta.SchemaSource) ResolverOption {
	return func(r *Resolver) {
		r.schemas, r.source = cache, src
	}
}

func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func NewResolver(models *meta.Registry, exec meta.Executor, dialect string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		models:  models,
		exec:    exec,
		dialect: dialect,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan 解析完成、尚未执行的候选查询
type Plan struct {
	Field  *Field
	Query  *relation.Query
	Target *meta.Model
	opts   *Options
}

// Resolve 解析 owner 上名为 field 的关系字段，返回选择形式、选项、选中值和占位文本
func (r *Resolver) Resolve(owner entity.Record, field string, opts *Options) (*Field, error) {
	p, err := r.Plan(owner, field, opts)
	if err != nil {
		return nil, err
	}
	if p.Field.Options, err = r.options(p.Query, p.Target, p.opts); err != nil {
		return nil, err
	}
	return p.Field, nil
}

// Plan 构建候选查询并读取当前值，不执行候选查询
func (r *Resolver) Plan(owner entity.Record, field string, opts *Options) (*Plan, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	attr := field
	if opts.RelationFrom != "" {
		attr = opts.RelationFrom
	}
	model, attribute, err := entity.ResolveModelAttribute(owner, attr, r.loadNested)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelationNotFound, err)
	}
	ownerModel, err := r.models.Model(model.ModelName())
	if err != nil || !ownerModel.HasRelation(attribute) {
		return nil, fmt.Errorf("%w: model '%s' does not contain a definition for '%s'",
			ErrRelationNotFound, owner.ModelName(), attr)
	}
	desc, target, err := r.models.Related(ownerModel.Name(), attribute)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelationNotFound, err)
	}

	q, err := desc.NewQuery(r.dialect, model, ownerModel, target, relation.NoConstraints)
	if err != nil {
		return nil, err
	}
	location.ApplyScope(q, target, r.location)

	f := &Field{
		Name:     field,
		Relation: attribute,
		Mode:     ModeOf(desc.Kind),
	}

	if opts.Order != "" {
		q.OrderByRaw(opts.Order)
	} else if order, ok := target.Sorted(); ok {
		q.OrderByRaw(order)
	}

	current := opts.CurrentValue
	if current == nil && model.Exists() {
		if current, err = r.loadValue(model, ownerModel, desc, target); err != nil {
			return nil, err
		}
	}
	f.Value = NormalizeValue(current)
	f.Placeholder = opts.Placeholder
	if f.Placeholder == "" {
		f.Placeholder = opts.EmptyOption
	}

	// 同类型的关系不能指向自己
	if model.Exists() && model.ModelName() == target.Name() {
		q.Where(target.KeyName(), "<>", model.Key())
	}

	// 多对多关系为遍历连接了中间表，候选列表不需要这些连接
	q.ClearJoins()

	if opts.Scope != "" {
		scope, ok := target.Scope(opts.Scope)
		if !ok {
			return nil, fmt.Errorf("%w: '%s' on model '%s'", ErrScopeNotFound, opts.Scope, target.Name())
		}
		if scoped := scope(q, model); scoped != nil {
			q = scoped
		}
	}
	return &Plan{Field: f, Query: q, Target: target, opts: opts}, nil
}

// options 执行查询并提取 key/label
func (r *Resolver) options(q *relation.Query, target *meta.Model, opts *Options) (*OptionList, error) {
	keyName := target.KeyName()
	nameFrom := opts.nameFrom()
	if opts.SQLSelect != "" {
		nameFrom = SelectionColumn
		q.Select(q.QualifyColumn(keyName)+" AS "+keyName, opts.SQLSelect+" AS "+SelectionColumn)
	} else if !r.columnUsable(target, nameFrom) {
		r.logger.Warn("label column not found, fallback to key",
			zap.String("model", target.Name()), zap.String("nameFrom", nameFrom))
		nameFrom = keyName
	}

	sqlResult, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	r.logger.Debug("relation options", zap.String("model", target.Name()),
		zap.String("sql", sqlResult.SQL), zap.Any("args", sqlResult.Args))
	rows, err := meta.Exec(r.exec, sqlResult)
	if err != nil {
		return nil, fmt.Errorf("query options of '%s': %w", target.Name(), err)
	}

	list := NewOptionList()
	for _, row := range rows {
		key := normalizeKey(row[keyName])
		label, ok := row[nameFrom]
		if !ok {
			label = key
		}
		list.Set(key, cast.ToString(label))
	}
	return list, nil
}

func (r *Resolver) columnUsable(target *meta.Model, col string) bool {
	if r.schemas == nil || r.source == nil {
		return true
	}
	ok, err := r.schemas.HasColumn(r.source, target.TableName(), col)
	if err != nil {
		// 表结构未知时交给查询结果判断
		return true
	}
	return ok
}

// loadValue 读取已关联的记录，单值关系返回主键
func (r *Resolver) loadValue(owner entity.Record, ownerModel *meta.Model, desc *relation.Descriptor, target *meta.Model) (any, error) {
	linked, err := r.linked(owner, ownerModel, desc, target)
	if err != nil {
		return nil, err
	}
	if desc.Kind.Singular() {
		if len(linked) == 0 {
			return nil, nil
		}
		return normalizeKey(linked[0].Key()), nil
	}
	for _, rec := range linked {
		if row, ok := rec.(*entity.Row); ok {
			row.Set(row.KeyName, normalizeKey(row.Key()))
		}
	}
	return linked, nil
}

func (r *Resolver) linked(owner entity.Record, ownerModel *meta.Model, desc *relation.Descriptor, target *meta.Model) (entity.Collection, error) {
	q, err := desc.NewQuery(r.dialect, owner, ownerModel, target, relation.Constrained)
	if err != nil {
		return nil, err
	}
	if order, ok := target.Sorted(); ok {
		q.OrderByRaw(order)
	}
	c, err := target.FetchRows(r.exec, q)
	if err != nil {
		return nil, fmt.Errorf("load '%s' of '%s': %w", desc.Name, ownerModel.Name(), err)
	}
	return c, nil
}

// loadNested 嵌套字段名中未加载的单值关系，从数据库加载；不存在时给出新记录
func (r *Resolver) loadNested(owner entity.Record, name string) (entity.Record, error) {
	ownerModel, err := r.models.Model(owner.ModelName())
	if err != nil {
		return nil, err
	}
	desc, target, err := r.models.Related(ownerModel.Name(), name)
	if err != nil {
		return nil, err
	}
	if !desc.Kind.Singular() {
		return nil, fmt.Errorf("nested attribute '%s' of '%s' is a %s relation", name, ownerModel.Name(), desc.Kind)
	}
	if !owner.Exists() {
		return target.NewRow(nil), nil
	}
	c, err := r.linked(owner, ownerModel, desc, target)
	if err != nil {
		return nil, err
	}
	if len(c) == 0 {
		return target.NewRow(nil), nil
	}
	return c[0], nil
}

func normalizeKey(key any) any {
	if b, ok := key.([]byte); ok {
		return string(b)
	}
	return key
}
