// Package location 按当前门店限制关系查询的候选记录
package location

import (
	"fmt"

	"github.com/everpan/formrel/pkg/entity/meta"
	"github.com/everpan/formrel/pkg/relation"
	"xorm.io/builder"
)

// 门店与可挂载记录之间的多态中间表
const (
	PivotTable      = "locationables"
	PivotLocation   = "location_id"
	PivotMorphId    = "locationable_id"
	PivotMorphType  = "locationable_type"
	MorphName       = "locationable"
	DefaultHeaderID = "X-Location-Id"
)

// Context 当前请求的门店上下文
type Context interface {
	// IsActive 是否限定在某个门店下
	IsActive() bool
	// CurrentID 当前门店主键
	CurrentID() any
}

// Static 固定门店的上下文，ID 为 nil 时不生效
type Static struct {
	ID any
}

func (s Static) IsActive() bool {
	return s.ID != nil
}

func (s Static) CurrentID() any {
	return s.ID
}

// ApplyScope 按门店上下文限制查询
// 目标即门店模型时只保留当前门店；可挂载模型保留挂在当前门店或未挂任何门店的记录
func ApplyScope(q *relation.Query, target *meta.Model, ctx Context) {
	if ctx == nil || !ctx.IsActive() {
		return
	}
	if target.IsLocation() {
		q.WhereKey(ctx.CurrentID())
		return
	}
	if !target.Locationable() {
		return
	}
	q.WhereCond(HasOrDoesntHaveLocation(target, ctx.CurrentID()))
}

// HasOrDoesntHaveLocation 记录挂在 id 门店下，或者没有挂任何门店
func HasOrDoesntHaveLocation(m *meta.Model, id any) builder.Cond {
	owned := fmt.Sprintf("SELECT 1 FROM %[1]s WHERE %[1]s.%[2]s = %[3]s.%[4]s AND %[1]s.%[5]s = ?",
		PivotTable, PivotMorphId, m.TableName(), m.KeyName(), PivotMorphType)
	return builder.Or(
		builder.Expr("NOT EXISTS ("+owned+")", m.MorphClass()),
		builder.Expr("EXISTS ("+owned+" AND "+PivotTable+"."+PivotLocation+" = ?)", m.MorphClass(), id),
	)
}
