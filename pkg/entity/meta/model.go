package meta

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/everpan/formrel/pkg/entity"
	"github.com/everpan/formrel/pkg/relation"
	"github.com/samber/lo"
)

// Common errors
var (
	ErrNilParameter  = errors.New("nil parameter provided")
	ErrModelNotFound = errors.New("model not found")
	ErrModelExists   = errors.New("model already registered")
)

// ScopeFunc 命名查询条件，参数为所属记录
type ScopeFunc func(q *relation.Query, owner entity.Record) *relation.Query

// Model 模型元数据：表、主键、关系、命名 scope、默认排序以及门店（location）能力
type Model struct {
	name       string
	table      string
	key        string
	morphClass string

	relations map[string]*relation.Descriptor
	scopes    map[string]ScopeFunc

	sortOrder    string // 默认排序，对应 sorted scope
	isLocation   bool   // 模型本身就是门店
	locationable bool   // 记录可以挂在门店下
}

func NewModel(name, table, key string) *Model {
	return &Model{
		name:      name,
		table:     table,
		key:       key,
		relations: make(map[string]*relation.Descriptor),
		scopes:    make(map[string]ScopeFunc),
	}
}

func (m *Model) Name() string      { return m.name }
func (m *Model) TableName() string { return m.table }
func (m *Model) KeyName() string   { return m.key }

// MorphClass 多态关系中记录类型列的取值，默认为模型名
func (m *Model) MorphClass() string {
	if m.morphClass != "" {
		return m.morphClass
	}
	return m.name
}

func (m *Model) SetMorphClass(class string) *Model {
	m.morphClass = class
	return m
}

// AddRelation 注册关系，同名覆盖
func (m *Model) AddRelation(d *relation.Descriptor) *Model {
	m.relations[d.Name] = d
	return m
}

func (m *Model) HasRelation(name string) bool {
	_, ok := m.relations[name]
	return ok
}

func (m *Model) Relation(name string) (*relation.Descriptor, bool) {
	d, ok := m.relations[name]
	return d, ok
}

// RelationNames 已注册的关系名，已排序
func (m *Model) RelationNames() []string {
	names := lo.Keys(m.relations)
	slices.Sort(names)
	return names
}

func (m *Model) AddScope(name string, fn ScopeFunc) *Model {
	m.scopes[name] = fn
	return m
}

func (m *Model) Scope(name string) (ScopeFunc, bool) {
	fn, ok := m.scopes[name]
	return fn, ok
}

// SetSortOrder 设置默认排序
func (m *Model) SetSortOrder(order string) *Model {
	m.sortOrder = order
	return m
}

// Sorted 默认排序，没有时 ok 为 false
func (m *Model) Sorted() (string, bool) {
	return m.sortOrder, m.sortOrder != ""
}

func (m *Model) SetLocation(is bool) *Model {
	m.isLocation = is
	return m
}

func (m *Model) IsLocation() bool {
	return m.isLocation
}

func (m *Model) SetLocationable(b bool) *Model {
	m.locationable = b
	return m
}

func (m *Model) Locationable() bool {
	return m.locationable
}

// NewRow 创建本模型下未持久化的记录
func (m *Model) NewRow(values map[string]any) *entity.Row {
	return entity.NewRow(m.name, m.key, values)
}

// Registry 按名称管理模型
type Registry struct {
	mu     sync.RWMutex
	models map[string]*Model
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*Model)}
}

// Register 注册模型，关系的目标模型可以稍后注册
func (r *Registry) Register(m *Model) error {
	if m == nil || m.name == "" || m.table == "" || m.key == "" {
		return ErrNilParameter
	}
	for _, d := range m.relations {
		if err := d.Verify(); err != nil {
			return fmt.Errorf("model '%s': %w", m.name, err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[m.name]; ok {
		return fmt.Errorf("%w: %s", ErrModelExists, m.name)
	}
	r.models[m.name] = m
	return nil
}

// MustRegister 注册失败时 panic，用于 init 中的静态模型
func (r *Registry) MustRegister(models ...*Model) {
	for _, m := range models {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Model(name string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	return m, nil
}

// HasRelation 模型上是否定义了该关系
func (r *Registry) HasRelation(model, attribute string) bool {
	m, err := r.Model(model)
	if err != nil {
		return false
	}
	return m.HasRelation(attribute)
}

// Related 返回关系描述和目标模型
func (r *Registry) Related(model, attribute string) (*relation.Descriptor, *Model, error) {
	m, err := r.Model(model)
	if err != nil {
		return nil, nil, err
	}
	d, ok := m.Relation(attribute)
	if !ok {
		return nil, nil, fmt.Errorf("model '%s' has no relation '%s'", model, attribute)
	}
	target, err := r.Model(d.Target)
	if err != nil {
		return nil, nil, err
	}
	return d, target, nil
}

// RelatedPath 沿嵌套路径查找最后一段的关系，中间各段必须是单值关系
func (r *Registry) RelatedPath(model string, path []string) (*relation.Descriptor, *Model, error) {
	if len(path) == 0 {
		return nil, nil, fmt.Errorf("model '%s': empty relation path", model)
	}
	var (
		d      *relation.Descriptor
		target *Model
		err    error
	)
	for i, name := range path {
		if d, target, err = r.Related(model, name); err != nil {
			return nil, nil, err
		}
		if i < len(path)-1 && !d.Kind.Singular() {
			return nil, nil, fmt.Errorf("nested attribute '%s' of '%s' is a %s relation", name, model, d.Kind)
		}
		model = target.Name()
	}
	return d, target, nil
}
