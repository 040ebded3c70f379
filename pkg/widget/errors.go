package widget

import "errors"

var (
	// ErrRelationNotFound 字段不对应模型上定义的任何关系
	ErrRelationNotFound = errors.New("relation not found")
	// ErrScopeNotFound 配置的 scope 在目标模型上不存在
	ErrScopeNotFound = errors.New("scope not found")
)
