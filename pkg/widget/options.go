package widget

// DefaultNameFrom 默认的显示列
const DefaultNameFrom = "name"

// SelectionColumn sqlSelect 表达式结果的虚拟列名
const SelectionColumn = "selection"

// Options 关系字段的配置，可以从 viper 的 fields.<model>.<field> 解码
type Options struct {
	// RelationFrom 字段名与关系名不一致时指定关系名
	RelationFrom string `mapstructure:"relationFrom" json:"relationFrom,omitempty"`
	NameFrom     string `mapstructure:"nameFrom" json:"nameFrom,omitempty"`
	// SQLSelect 原始 SQL 表达式作为显示文本，优先于 NameFrom
	SQLSelect   string `mapstructure:"select" json:"select,omitempty"`
	EmptyOption string `mapstructure:"emptyOption" json:"emptyOption,omitempty"`
	Scope       string `mapstructure:"scope" json:"scope,omitempty"`
	Order       string `mapstructure:"order" json:"order,omitempty"`
	Placeholder string `mapstructure:"placeholder" json:"placeholder,omitempty"`
	Disabled    bool   `mapstructure:"disabled" json:"disabled,omitempty"`
	Hidden      bool   `mapstructure:"hidden" json:"hidden,omitempty"`

	// CurrentValue 字段的当前值；为 nil 且记录已存在时从数据库加载已关联的记录
	CurrentValue any `mapstructure:"-" json:"-"`
}

func DefaultOptions() *Options {
	return &Options{NameFrom: DefaultNameFrom}
}

func (o *Options) nameFrom() string {
	if o.NameFrom == "" {
		return DefaultNameFrom
	}
	return o.NameFrom
}

// Clone 浅拷贝，用于在共享的字段配置上设置单次请求的当前值
func (o *Options) Clone() *Options {
	c := *o
	return &c
}
