package entity

import (
	"github.com/samber/lo"
)

// Record 一条实体记录（数据行），由所属模型名、主键和属性组成
type Record interface {
	// ModelName 记录所属模型，同名即同类型
	ModelName() string
	// Key 主键值，未持久化的记录可以为 nil
	Key() any
	// Exists 记录是否已持久化
	Exists() bool
	// Attribute 读取属性，嵌套记录也通过属性返回
	Attribute(name string) (any, bool)
}

// Row 以 map 承载属性的记录
type Row struct {
	Model     string
	KeyName   string
	Values    map[string]any
	Persisted bool
}

func NewRow(model, keyName string, values map[string]any) *Row {
	if values == nil {
		values = make(map[string]any)
	}
	return &Row{Model: model, KeyName: keyName, Values: values}
}

func (r *Row) ModelName() string {
	return r.Model
}

func (r *Row) Key() any {
	if r.Values == nil {
		return nil
	}
	return r.Values[r.KeyName]
}

func (r *Row) Exists() bool {
	return r.Persisted
}

func (r *Row) Attribute(name string) (any, bool) {
	if r.Values == nil {
		return nil, false
	}
	v, ok := r.Values[name]
	return v, ok
}

// Set 设置属性，返回自身便于链式调用
func (r *Row) Set(name string, val any) *Row {
	if r.Values == nil {
		r.Values = make(map[string]any)
	}
	r.Values[name] = val
	return r
}

// Collection 一组关联记录，顺序即加载顺序
type Collection []Record

// Keys 按顺序取出主键
func (c Collection) Keys() []any {
	return lo.Map(c, func(r Record, _ int) any {
		return r.Key()
	})
}
