package relation

import (
	"errors"
	"fmt"
)

// Kind 定义模型之间的关系类型
type Kind int

const (
	BelongsTo Kind = iota
	HasOne
	HasMany
	BelongsToMany
	MorphToMany
	MorphedByMany
)

var kindNames = map[Kind]string{
	BelongsTo:     "belongsTo",
	HasOne:        "hasOne",
	HasMany:       "hasMany",
	BelongsToMany: "belongsToMany",
	MorphToMany:   "morphToMany",
	MorphedByMany: "morphedByMany",
}

var ErrInvalidDescriptor = errors.New("invalid relation descriptor")

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind 按名称解析关系类型，名称与 String 一致
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown relation kind '%s'", s)
}

// Singular 关联的一端最多一条记录
func (k Kind) Singular() bool {
	return k == BelongsTo || k == HasOne
}

// ThroughPivot 需要中间表的关系
func (k Kind) ThroughPivot() bool {
	return k == BelongsToMany || k == MorphToMany || k == MorphedByMany
}

// Model 关系两端模型需要提供的信息
type Model interface {
	Name() string
	TableName() string
	KeyName() string
	MorphClass() string
}

// SQLResult 定义 SQL 查询结果
type SQLResult struct {
	SQL  string
	Args []interface{}
}

// Descriptor 定义模型上的一个命名关系
type Descriptor struct {
	Name   string // 关系名，即所属模型上的属性名
	Kind   Kind   // 关系类型
	Target string // 目标模型名

	// belongsTo: 所属记录上的外键; hasOne/hasMany: 目标表上的外键
	ForeignKey string
	// belongsTo: 目标表被引用的键; hasOne/hasMany: 所属记录的本地键; 默认主键
	OwnerKey string

	JoinTable       string // 中间表
	ForeignPivotKey string // 中间表中指向所属记录的列
	RelatedPivotKey string // 中间表中指向目标记录的列
	MorphName       string // 多态名，列为 {MorphName}_id / {MorphName}_type
}

// NewDescriptor 创建一个关系描述
func NewDescriptor(name string, kind Kind, target string) *Descriptor {
	return &Descriptor{Name: name, Kind: kind, Target: target}
}

// SetForeignKey 设置外键
func (d *Descriptor) SetForeignKey(key string) *Descriptor {
	d.ForeignKey = key
	return d
}

// SetOwnerKey 设置引用键
func (d *Descriptor) SetOwnerKey(key string) *Descriptor {
	d.OwnerKey = key
	return d
}

// SetJoinTable 设置连接表（用于多对多关系）
func (d *Descriptor) SetJoinTable(table, foreignPivotKey, relatedPivotKey string) *Descriptor {
	d.JoinTable = table
	d.ForeignPivotKey = foreignPivotKey
	d.RelatedPivotKey = relatedPivotKey
	return d
}

// SetMorphName 设置多态名（morphToMany / morphedByMany）
func (d *Descriptor) SetMorphName(name string) *Descriptor {
	d.MorphName = name
	return d
}

func (d *Descriptor) morphIdColumn() string {
	return d.MorphName + "_id"
}

func (d *Descriptor) morphTypeColumn() string {
	return d.MorphName + "_type"
}

// Verify 检查描述是否完整
func (d *Descriptor) Verify() error {
	if d == nil {
		return fmt.Errorf("%w: nil", ErrInvalidDescriptor)
	}
	if d.Name == "" || d.Target == "" {
		return fmt.Errorf("%w: name and target are required", ErrInvalidDescriptor)
	}
	switch d.Kind {
	case BelongsTo, HasOne, HasMany:
		if d.ForeignKey == "" {
			return fmt.Errorf("%w: '%s' requires a foreign key", ErrInvalidDescriptor, d.Name)
		}
	case BelongsToMany:
		if d.JoinTable == "" || d.ForeignPivotKey == "" || d.RelatedPivotKey == "" {
			return fmt.Errorf("%w: '%s' requires join table and pivot keys", ErrInvalidDescriptor, d.Name)
		}
	case MorphToMany:
		if d.JoinTable == "" || d.MorphName == "" || d.RelatedPivotKey == "" {
			return fmt.Errorf("%w: '%s' requires join table, morph name and related pivot key", ErrInvalidDescriptor, d.Name)
		}
	case MorphedByMany:
		if d.JoinTable == "" || d.MorphName == "" || d.ForeignPivotKey == "" {
			return fmt.Errorf("%w: '%s' requires join table, morph name and foreign pivot key", ErrInvalidDescriptor, d.Name)
		}
	default:
		return fmt.Errorf("%w: unknown kind %v", ErrInvalidDescriptor, d.Kind)
	}
	return nil
}
