package entity

import (
	"fmt"
	"strings"
)

// NameToPath 把 HTML 数组形式的字段名拆为路径
// "address[country]" -> [address country], "a.b" -> [a b], 末尾的 "[]" 忽略
func NameToPath(name string) []string {
	name = strings.ReplaceAll(name, "]", "")
	name = strings.ReplaceAll(name, "[", ".")
	var path []string
	for _, p := range strings.Split(name, ".") {
		p = strings.TrimSpace(p)
		if p != "" {
			path = append(path, p)
		}
	}
	return path
}

// NestedLoader 在嵌套属性未加载时提供记录
type NestedLoader func(owner Record, name string) (Record, error)

// ResolveModelAttribute 解析嵌套字段名，返回最终的所属记录和属性名
func ResolveModelAttribute(r Record, name string, load NestedLoader) (Record, string, error) {
	path := NameToPath(name)
	if len(path) == 0 {
		return nil, "", fmt.Errorf("empty attribute name")
	}
	owner := r
	for _, part := range path[:len(path)-1] {
		if owner == nil {
			return nil, "", fmt.Errorf("attribute '%s': nil record before '%s'", name, part)
		}
		next, err := nestedRecord(owner, part, load)
		if err != nil {
			return nil, "", err
		}
		owner = next
	}
	return owner, path[len(path)-1], nil
}

func nestedRecord(owner Record, part string, load NestedLoader) (Record, error) {
	if v, ok := owner.Attribute(part); ok && v != nil {
		if nested, ok := v.(Record); ok {
			return nested, nil
		}
		return nil, fmt.Errorf("attribute '%s' of '%s' is %T, not a record", part, owner.ModelName(), v)
	}
	if load == nil {
		return nil, fmt.Errorf("attribute '%s' of '%s' not loaded", part, owner.ModelName())
	}
	return load(owner, part)
}
