package config

import (
	"fmt"

	"github.com/everpan/formrel/pkg/widget"
	"github.com/spf13/viper"
)

// FieldKey 字段配置在 viper 中的键
func FieldKey(model, field string) string {
	return fmt.Sprintf("fields.%s.%s", model, field)
}

// FieldOptions 读取 fields.<model>.<field> 下的关系字段配置，未配置时返回默认配置
func FieldOptions(model, field string) (*widget.Options, error) {
	opts := widget.DefaultOptions()
	key := FieldKey(model, field)
	if !viper.IsSet(key) {
		return opts, nil
	}
	if err := viper.UnmarshalKey(key, opts); err != nil {
		return nil, fmt.Errorf("decode field '%s': %w", key, err)
	}
	if opts.NameFrom == "" {
		opts.NameFrom = widget.DefaultNameFrom
	}
	return opts, nil
}
