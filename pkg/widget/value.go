package widget

import (
	"reflect"

	"github.com/everpan/formrel/pkg/entity"
)

// NormalizeValue 把字段当前值规整为选中的 key
// 记录集合 -> 按顺序的主键；单条记录 -> 主键；空字符串、空数组 -> nil；其余原样返回
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case entity.Collection:
		if len(x) == 0 {
			return nil
		}
		return x.Keys()
	case []entity.Record:
		return NormalizeValue(entity.Collection(x))
	case entity.Record:
		return x.Key()
	case string:
		if x == "" {
			return nil
		}
		return x
	}
	if isEmptyList(v) {
		return nil
	}
	return v
}

// SaveValue 提交值的处理；ok 为 false 表示字段不参与保存（禁用或隐藏）
func SaveValue(opts *Options, value any) (v any, ok bool) {
	if opts != nil && (opts.Disabled || opts.Hidden) {
		return nil, false
	}
	if s, isStr := value.(string); isStr && s == "" {
		return nil, true
	}
	if isEmptyList(value) {
		return nil, true
	}
	return value, true
}

func isEmptyList(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}
