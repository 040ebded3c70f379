package meta

import (
	"slices"
	"strings"

	"github.com/samber/lo"
	"xorm.io/xorm/schemas"
)

type Attr struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Comment  string `json:"comment,omitempty"`
	Length1  int64  `json:"length1,omitempty"`
	Length2  int64  `json:"length2,omitempty"`
	Nullable bool   `json:"nullable"`
}

type RelationInfo struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

// JModel 模型的 JSON 描述，列信息来自数据库中的实际表结构
type JModel struct {
	Model        string          `json:"model"`
	Table        string          `json:"table"`
	PrimaryKeys  []string        `json:"primary_keys"`
	Attrs        []*Attr         `json:"attrs"`
	Relations    []*RelationInfo `json:"relations"`
	Scopes       []string        `json:"scopes,omitempty"`
	Sorted       string          `json:"sorted,omitempty"`
	IsLocation   bool            `json:"is_location,omitempty"`
	Locationable bool            `json:"locationable,omitempty"`
}

func (attr *Attr) FromColumn(col *schemas.Column) {
	attr.Name = col.Name
	attr.Type = strings.ToLower(col.SQLType.Name)
	attr.Comment = strings.TrimSpace(col.Comment)
	attr.Length1 = col.SQLType.DefaultLength
	attr.Length2 = col.SQLType.DefaultLength2
	attr.Nullable = col.Nullable
}

// Describe 生成模型描述；cache 为 nil 时不含列信息
func (m *Model) Describe(cache *SchemaCache, src SchemaSource) (*JModel, error) {
	jm := &JModel{
		Model:        m.name,
		Table:        m.table,
		PrimaryKeys:  []string{m.key},
		IsLocation:   m.isLocation,
		Locationable: m.locationable,
	}
	jm.Sorted, _ = m.Sorted()
	for _, name := range m.RelationNames() {
		d := m.relations[name]
		jm.Relations = append(jm.Relations, &RelationInfo{Name: d.Name, Kind: d.Kind.String(), Target: d.Target})
	}
	if len(m.scopes) > 0 {
		jm.Scopes = lo.Keys(m.scopes)
		slices.Sort(jm.Scopes)
	}
	if cache == nil || src == nil {
		return jm, nil
	}
	table, err := cache.Table(src, m.table)
	if err != nil {
		return nil, err
	}
	if pks := table.PrimaryKeys; len(pks) > 0 {
		jm.PrimaryKeys = pks
	}
	for _, col := range table.Columns() {
		attr := &Attr{}
		attr.FromColumn(col)
		jm.Attrs = append(jm.Attrs, attr)
	}
	return jm, nil
}
