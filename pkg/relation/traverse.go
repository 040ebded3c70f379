package relation

import (
	"fmt"

	"github.com/everpan/formrel/pkg/entity"
	"xorm.io/builder"
)

// Constraint 关系查询的约束方式
type Constraint int

const (
	// NoConstraints 枚举目标模型的全部候选记录
	NoConstraints Constraint = iota
	// Constrained 仅取与所属记录已关联的记录
	Constrained
)

// NewQuery 从所属记录出发，构建目标模型上的关系查询
// 多对多关系总会连接中间表；NoConstraints 模式只是不加所属记录的条件
func (d *Descriptor) NewQuery(dialect string, owner entity.Record, ownerModel, related Model, mode Constraint) (*Query, error) {
	if err := d.Verify(); err != nil {
		return nil, err
	}
	q := NewQuery(dialect, related)
	switch d.Kind {
	case BelongsTo:
		if mode == Constrained {
			fk, _ := owner.Attribute(d.ForeignKey)
			q.WhereCond(builder.Eq{q.QualifyColumn(d.ownerKey(related)): fk})
		}
	case HasOne, HasMany:
		if mode == Constrained {
			q.WhereCond(builder.Eq{q.QualifyColumn(d.ForeignKey): d.localValue(owner)})
		}
	case BelongsToMany:
		q.Join("INNER", d.JoinTable, pivotJoin(d.JoinTable, d.RelatedPivotKey, q.QualifyColumn(related.KeyName())))
		if mode == Constrained {
			q.WhereCond(builder.Eq{d.JoinTable + "." + d.ForeignPivotKey: owner.Key()})
		}
	case MorphToMany:
		q.Join("INNER", d.JoinTable, pivotJoin(d.JoinTable, d.RelatedPivotKey, q.QualifyColumn(related.KeyName())))
		if mode == Constrained {
			q.WhereCond(builder.Eq{
				d.JoinTable + "." + d.morphIdColumn():   owner.Key(),
				d.JoinTable + "." + d.morphTypeColumn(): ownerModel.MorphClass(),
			})
		}
	case MorphedByMany:
		joinCond := builder.And(
			pivotJoin(d.JoinTable, d.morphIdColumn(), q.QualifyColumn(related.KeyName())),
			builder.Eq{d.JoinTable + "." + d.morphTypeColumn(): related.MorphClass()},
		)
		q.Join("INNER", d.JoinTable, joinCond)
		if mode == Constrained {
			q.WhereCond(builder.Eq{d.JoinTable + "." + d.ForeignPivotKey: owner.Key()})
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %v", ErrInvalidDescriptor, d.Kind)
	}
	if mode == Constrained && d.Kind.ThroughPivot() {
		q.Select(related.TableName() + ".*")
	}
	return q, nil
}

func (d *Descriptor) ownerKey(related Model) string {
	if d.OwnerKey != "" {
		return d.OwnerKey
	}
	return related.KeyName()
}

func (d *Descriptor) localValue(owner entity.Record) any {
	if d.OwnerKey != "" {
		v, _ := owner.Attribute(d.OwnerKey)
		return v
	}
	return owner.Key()
}

func pivotJoin(table, pivotCol, relatedCol string) builder.Cond {
	return builder.Expr(table + "." + pivotCol + " = " + relatedCol)
}
