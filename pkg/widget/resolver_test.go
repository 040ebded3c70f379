package widget

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/everpan/formrel/pkg/entity"
	"github.com/everpan/formrel/pkg/entity/meta"
	"github.com/everpan/formrel/pkg/location"
	"github.com/everpan/formrel/pkg/relation"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xorm.io/xorm"
)

var (
	engine *xorm.Engine
	models *meta.Registry
)

var schema = []string{
	"CREATE TABLE locations (location_id INTEGER PRIMARY KEY, name TEXT)",
	"CREATE TABLE staffs (staff_id INTEGER PRIMARY KEY, name TEXT, manager_id INTEGER)",
	"CREATE TABLE customers (customer_id INTEGER PRIMARY KEY, first_name TEXT, last_name TEXT)",
	"CREATE TABLE addresses (address_id INTEGER PRIMARY KEY, customer_id INTEGER, city TEXT)",
	"CREATE TABLE orders (order_id INTEGER PRIMARY KEY, customer_id INTEGER, location_id INTEGER)",
	"CREATE TABLE categories (category_id INTEGER PRIMARY KEY, name TEXT, priority INTEGER, status INTEGER)",
	"CREATE TABLE menus (menu_id INTEGER PRIMARY KEY, name TEXT)",
	"CREATE TABLE menu_categories (menu_id INTEGER, category_id INTEGER)",
	"CREATE TABLE locationables (location_id INTEGER, locationable_id INTEGER, locationable_type TEXT)",

	"INSERT INTO locations VALUES (1, 'Downtown'), (2, 'Airport')",
	"INSERT INTO staffs VALUES (4, 'Ann', NULL), (5, 'Bob', 4), (7, 'Cid', NULL), (9, 'Dan', 5)",
	"INSERT INTO locationables VALUES (1, 4, 'staffs'), (2, 5, 'staffs'), (2, 9, 'staffs')",
	"INSERT INTO customers VALUES (1, 'Ada', 'Lovelace'), (2, 'Alan', 'Turing')",
	"INSERT INTO addresses VALUES (1, 1, 'London'), (2, 1, 'Paris'), (3, 2, 'Bletchley')",
	"INSERT INTO orders VALUES (10, 2, 1)",
	"INSERT INTO categories VALUES (1, 'Drinks', 2, 1), (2, 'Mains', 1, 1), (3, 'Desserts', 1, 0), (4, 'Burgers', 3, 1)",
	"INSERT INTO menus VALUES (1, 'Latte'), (2, 'Burger')",
	"INSERT INTO menu_categories VALUES (1, 1), (2, 2), (2, 4)",
}

func testModels() *meta.Registry {
	locationsOf := relation.NewDescriptor("locations", relation.MorphToMany, "locations").
		SetJoinTable(location.PivotTable, "", location.PivotLocation).
		SetMorphName(location.MorphName)
	reg := meta.NewRegistry()
	reg.MustRegister(
		meta.NewModel("locations", "locations", "location_id").
			SetLocation(true).
			AddRelation(relation.NewDescriptor("staffs", relation.MorphedByMany, "staffs").
				SetJoinTable(location.PivotTable, location.PivotLocation, "").
				SetMorphName(location.MorphName)),
		meta.NewModel("staffs", "staffs", "staff_id").
			SetLocationable(true).
			AddRelation(locationsOf).
			AddRelation(relation.NewDescriptor("manager", relation.BelongsTo, "staffs").SetForeignKey("manager_id")),
		meta.NewModel("customers", "customers", "customer_id").
			AddRelation(relation.NewDescriptor("addresses", relation.HasMany, "addresses").SetForeignKey("customer_id")).
			AddRelation(relation.NewDescriptor("primaryAddress", relation.HasOne, "addresses").SetForeignKey("customer_id")),
		meta.NewModel("addresses", "addresses", "address_id"),
		meta.NewModel("orders", "orders", "order_id").
			AddRelation(relation.NewDescriptor("customer", relation.BelongsTo, "customers").SetForeignKey("customer_id")).
			AddRelation(relation.NewDescriptor("location", relation.BelongsTo, "locations").SetForeignKey("location_id")),
		meta.NewModel("categories", "categories", "category_id").
			SetSortOrder("priority, name").
			AddScope("isEnabled", func(q *relation.Query, _ entity.Record) *relation.Query {
				return q.Where("status", "=", 1)
			}),
		meta.NewModel("menus", "menus", "menu_id").
			AddRelation(relation.NewDescriptor("categories", relation.BelongsToMany, "categories").
				SetJoinTable("menu_categories", "menu_id", "category_id")),
	)
	return reg
}

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "formrel-widget")
	if err != nil {
		panic(err)
	}
	engine, err = xorm.NewEngine("sqlite3", filepath.Join(dir, "widget.db"))
	if err != nil {
		panic(err)
	}
	for _, s := range schema {
		if _, err = engine.Exec(s); err != nil {
			panic(err)
		}
	}
	models = testModels()
	code := m.Run()
	_ = engine.Close()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func newTestResolver(opts ...ResolverOption) *Resolver {
	return NewResolver(models, engine, engine.DriverName(), opts...)
}

func find(t *testing.T, model string, key any) *entity.Row {
	m, err := models.Model(model)
	require.NoError(t, err)
	row, err := m.Find(engine, engine.DriverName(), key)
	require.NoError(t, err)
	require.NotNil(t, row)
	return row
}

func newRow(t *testing.T, model string) *entity.Row {
	m, err := models.Model(model)
	require.NoError(t, err)
	return m.NewRow(nil)
}

func keysOf(l *OptionList) []int64 {
	keys := make([]int64, 0, l.Len())
	for _, k := range l.Keys() {
		keys = append(keys, cast.ToInt64(k))
	}
	return keys
}

func int64s(v any) []int64 {
	keys, _ := v.([]any)
	out := make([]int64, 0, len(keys))
	for _, k := range keys {
		out = append(out, cast.ToInt64(k))
	}
	return out
}

func labelsOf(l *OptionList) []string {
	labels := make([]string, 0, l.Len())
	for _, o := range l.Items() {
		labels = append(labels, o.Label)
	}
	return labels
}

func TestResolve_Mode(t *testing.T) {
	tests := []struct {
		model string
		field string
		want  SelectionMode
	}{
		{"orders", "customer", Single},
		{"customers", "primaryAddress", Single},
		{"customers", "addresses", Multiple},
		{"menus", "categories", Multiple},
		{"staffs", "locations", Multiple},
		{"locations", "staffs", Multiple},
	}
	r := newTestResolver()
	for _, tt := range tests {
		t.Run(tt.model+"."+tt.field, func(t *testing.T) {
			f, err := r.Resolve(newRow(t, tt.model), tt.field, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Mode)
			assert.Nil(t, f.Value)
		})
	}
}

func TestResolve_SQLSelect(t *testing.T) {
	opts := &Options{
		NameFrom:  "first_name",
		SQLSelect: "CONCAT(first_name,' ',last_name)",
		Order:     "customer_id",
	}
	f, err := newTestResolver().Resolve(newRow(t, "orders"), "customer", opts)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, keysOf(f.Options))
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, labelsOf(f.Options))
}

func TestResolve_NameFrom(t *testing.T) {
	cache, err := meta.NewSchemaCache(4, 0)
	require.NoError(t, err)
	tests := []struct {
		name     string
		nameFrom string
		opts     []ResolverOption
		want     []string
	}{
		{"column", "city", nil, []string{"London", "Paris", "Bletchley"}},
		{"missing_column_by_schema", "street", []ResolverOption{WithSchema(cache, engine)}, []string{"1", "2", "3"}},
		{"missing_column_by_rows", "street", nil, []string{"1", "2", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &Options{NameFrom: tt.nameFrom, Order: "address_id"}
			f, err := newTestResolver(tt.opts...).Resolve(newRow(t, "customers"), "addresses", opts)
			require.NoError(t, err)
			assert.Equal(t, []int64{1, 2, 3}, keysOf(f.Options))
			assert.Equal(t, tt.want, labelsOf(f.Options))
		})
	}
}

func TestResolve_CurrentValue(t *testing.T) {
	r := newTestResolver()
	tests := []struct {
		name    string
		current any
		want    any
	}{
		{"collection", entity.Collection{
			entity.NewRow("categories", "category_id", map[string]any{"category_id": 4}),
			entity.NewRow("categories", "category_id", map[string]any{"category_id": 7}),
			entity.NewRow("categories", "category_id", map[string]any{"category_id": 9}),
		}, []any{4, 7, 9}},
		{"empty_string", "", nil},
		{"empty_list", []any{}, nil},
		{"scalar", 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := r.Resolve(newRow(t, "menus"), "categories", &Options{CurrentValue: tt.current})
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Value)
		})
	}
}

func TestResolve_LoadValue(t *testing.T) {
	r := newTestResolver()

	f, err := r.Resolve(find(t, "orders", 10), "customer", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cast.ToInt64(f.Value))

	f, err = r.Resolve(find(t, "menus", 2), "categories", nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, int64s(f.Value))

	f, err = r.Resolve(find(t, "staffs", 4), "locations", nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, int64s(f.Value))

	f, err = r.Resolve(find(t, "locations", 2), "staffs", &Options{Order: "staff_id"})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5, 7, 9}, keysOf(f.Options))
	assert.ElementsMatch(t, []int64{5, 9}, int64s(f.Value))

	// 新记录不加载
	f, err = r.Resolve(newRow(t, "menus"), "categories", nil)
	require.NoError(t, err)
	assert.Nil(t, f.Value)
}

func TestResolve_SelfExclusion(t *testing.T) {
	r := newTestResolver()
	f, err := r.Resolve(find(t, "staffs", 5), "manager", &Options{Order: "staff_id"})
	require.NoError(t, err)
	assert.False(t, f.Options.Has(5))
	assert.Equal(t, []int64{4, 7, 9}, keysOf(f.Options))
	assert.Equal(t, int64(4), cast.ToInt64(f.Value))

	// 未持久化的记录不排除
	f, err = r.Resolve(newRow(t, "staffs"), "manager", &Options{Order: "staff_id"})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5, 7, 9}, keysOf(f.Options))
}

func TestPlan_StripJoins(t *testing.T) {
	r := newTestResolver()
	tests := []struct {
		model string
		key   int64
		field string
	}{
		{"menus", 2, "categories"},
		{"staffs", 4, "locations"},
		{"locations", 2, "staffs"},
	}
	for _, tt := range tests {
		t.Run(tt.model+"."+tt.field, func(t *testing.T) {
			p, err := r.Plan(find(t, tt.model, tt.key), tt.field, nil)
			require.NoError(t, err)
			assert.Empty(t, p.Query.Joins())
		})
	}

	f, err := r.Resolve(find(t, "menus", 2), "categories", nil)
	require.NoError(t, err)
	// 按默认排序 priority, name 列出全部分类
	assert.Equal(t, []int64{3, 2, 1, 4}, keysOf(f.Options))
}

func TestResolve_Scope(t *testing.T) {
	r := newTestResolver()
	f, err := r.Resolve(newRow(t, "menus"), "categories", &Options{Scope: "isEnabled"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 4}, keysOf(f.Options))

	f, err = r.Resolve(newRow(t, "menus"), "categories", &Options{Scope: "isArchived"})
	assert.ErrorIs(t, err, ErrScopeNotFound)
	assert.Nil(t, f)
}

func TestResolve_Order(t *testing.T) {
	f, err := newTestResolver().Resolve(newRow(t, "menus"), "categories", &Options{Order: "name DESC"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mains", "Drinks", "Desserts", "Burgers"}, labelsOf(f.Options))
}

func TestResolve_Location(t *testing.T) {
	tests := []struct {
		name  string
		model string
		field string
		order string
		ctx   location.Context
		want  []int64
	}{
		{"inactive", "orders", "location", "location_id", location.Static{}, []int64{1, 2}},
		{"pin_location", "orders", "location", "location_id", location.Static{ID: int64(2)}, []int64{2}},
		{"not_locationable", "orders", "customer", "customer_id", location.Static{ID: int64(1)}, []int64{1, 2}},
		{"has_or_doesnt_have_1", "staffs", "manager", "staff_id", location.Static{ID: int64(1)}, []int64{4, 7}},
		{"has_or_doesnt_have_2", "staffs", "manager", "staff_id", location.Static{ID: int64(2)}, []int64{5, 7, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(WithLocation(tt.ctx))
			opts := &Options{Order: tt.order}
			f, err := r.Resolve(newRow(t, tt.model), tt.field, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keysOf(f.Options))
		})
	}
}

func TestResolve_Nested(t *testing.T) {
	r := newTestResolver()
	f, err := r.Resolve(find(t, "orders", 10), "customer[addresses]", &Options{NameFrom: "city", Order: "address_id"})
	require.NoError(t, err)
	assert.Equal(t, "addresses", f.Relation)
	assert.Equal(t, Multiple, f.Mode)
	assert.Equal(t, []int64{3}, int64s(f.Value))
	assert.Equal(t, []string{"London", "Paris", "Bletchley"}, labelsOf(f.Options))

	// 未持久化的订单给出空的客户
	f, err = r.Resolve(newRow(t, "orders"), "customer[addresses]", nil)
	require.NoError(t, err)
	assert.Nil(t, f.Value)

	// 多值关系不能作为嵌套路径
	_, err = r.Resolve(find(t, "customers", 1), "addresses[customer]", nil)
	assert.ErrorIs(t, err, ErrRelationNotFound)
}

func TestResolve_RelationFromAndPlaceholder(t *testing.T) {
	r := newTestResolver()
	f, err := r.Resolve(newRow(t, "orders"), "client", &Options{
		RelationFrom: "customer",
		EmptyOption:  "-- none --",
	})
	require.NoError(t, err)
	assert.Equal(t, "client", f.Name)
	assert.Equal(t, "customer", f.Relation)
	assert.Equal(t, "-- none --", f.Placeholder)

	f, err = r.Resolve(newRow(t, "orders"), "customer", &Options{
		Placeholder: "Choose",
		EmptyOption: "-- none --",
	})
	require.NoError(t, err)
	assert.Equal(t, "Choose", f.Placeholder)
}

func TestResolve_NotFound(t *testing.T) {
	r := newTestResolver()
	tests := []struct {
		name  string
		owner entity.Record
		field string
	}{
		{"unknown_attribute", entity.NewRow("orders", "order_id", nil), "nonexistent_attr"},
		{"unknown_model", entity.NewRow("nothing", "id", nil), "customer"},
		{"empty_name", entity.NewRow("orders", "order_id", nil), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := r.Resolve(tt.owner, tt.field, &Options{})
			assert.ErrorIs(t, err, ErrRelationNotFound)
			assert.Nil(t, f)
		})
	}
}
