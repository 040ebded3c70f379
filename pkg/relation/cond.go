package relation

import (
	"fmt"
	"strings"

	"xorm.io/builder"
)

// Cond 把 (列, 操作符, 值) 转为 builder 条件
func Cond(col, op string, val any) (builder.Cond, error) {
	var cond builder.Cond
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "=", "eq":
		cond = builder.Eq{col: val}
	case "<>", "!=", "ne":
		cond = builder.Neq{col: val}
	case "<", "lt":
		cond = builder.Lt{col: val}
	case "<=", "lte":
		cond = builder.Lte{col: val}
	case ">", "gt":
		cond = builder.Gt{col: val}
	case ">=", "gte":
		cond = builder.Gte{col: val}
	case "like":
		cond = builder.Like{col, fmt.Sprintf("%v", val)}
	case "in":
		cond = builder.In(col, val)
	case "not in", "notin":
		cond = builder.NotIn(col, val)
	case "isnull":
		cond = builder.IsNull{col}
	case "notnull":
		cond = builder.NotNull{col}
	case "between":
		bv, ok := val.([]any)
		if !ok || len(bv) < 2 {
			return nil, fmt.Errorf("between vals must be array, and len gte two")
		}
		cond = builder.Between{Col: col, LessVal: bv[0], MoreVal: bv[1]}
	default:
		return nil, fmt.Errorf("unsupported operator '%s' on '%s'", op, col)
	}
	return cond, nil
}
