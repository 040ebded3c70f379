package widget

import (
	"fmt"

	"github.com/everpan/formrel/pkg/relation"
	"github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// SelectionMode 选择控件的形式
type SelectionMode int

const (
	// Single 单选（radio），可以不选
	Single SelectionMode = iota
	// Multiple 多选（checkbox）
	Multiple
)

// ModeOf 由关系类型决定选择形式
func ModeOf(k relation.Kind) SelectionMode {
	if k.Singular() {
		return Single
	}
	return Multiple
}

func (m SelectionMode) String() string {
	switch m {
	case Single:
		return "radio"
	case Multiple:
		return "checkbox"
	}
	return fmt.Sprintf("SelectionMode(%d)", int(m))
}

func (m SelectionMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Option 一个选项
type Option struct {
	Key   any    `json:"key"`
	Label string `json:"label"`
}

// OptionList 有序的 key -> label 映射，重复的 key 保留首次出现的位置、取最后的 label
type OptionList struct {
	items []*Option
	index map[string]int
}

func NewOptionList() *OptionList {
	return &OptionList{index: make(map[string]int)}
}

func indexKey(key any) string {
	return cast.ToString(key)
}

func (l *OptionList) Set(key any, label string) {
	k := indexKey(key)
	if i, ok := l.index[k]; ok {
		l.items[i].Label = label
		return
	}
	l.index[k] = len(l.items)
	l.items = append(l.items, &Option{Key: key, Label: label})
}

func (l *OptionList) Len() int {
	return len(l.items)
}

func (l *OptionList) Items() []*Option {
	return l.items
}

func (l *OptionList) Keys() []any {
	keys := make([]any, len(l.items))
	for i, o := range l.items {
		keys[i] = o.Key
	}
	return keys
}

func (l *OptionList) Has(key any) bool {
	_, ok := l.index[indexKey(key)]
	return ok
}

func (l *OptionList) Label(key any) (string, bool) {
	i, ok := l.index[indexKey(key)]
	if !ok {
		return "", false
	}
	return l.items[i].Label, true
}

func (l *OptionList) MarshalJSON() ([]byte, error) {
	if l.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.items)
}

// Field 渲染选择控件所需的全部数据
type Field struct {
	Name        string        `json:"name"`
	Relation    string        `json:"relation"`
	Mode        SelectionMode `json:"mode"`
	Options     *OptionList   `json:"options"`
	Value       any           `json:"value"`
	Placeholder string        `json:"placeholder,omitempty"`
}
