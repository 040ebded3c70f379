// Package admin 后台的模型及其关系定义
package admin

import (
	"github.com/everpan/formrel/pkg/entity"
	"github.com/everpan/formrel/pkg/entity/meta"
	"github.com/everpan/formrel/pkg/location"
	"github.com/everpan/formrel/pkg/relation"
)

func isEnabled(col string) meta.ScopeFunc {
	return func(q *relation.Query, _ entity.Record) *relation.Query {
		return q.Where(col, "=", 1)
	}
}

func locationsOf(morphName string) *relation.Descriptor {
	return relation.NewDescriptor("locations", relation.MorphToMany, "locations").
		SetJoinTable(location.PivotTable, "", location.PivotLocation).
		SetMorphName(morphName)
}

// NewRegistry 注册全部后台模型
func NewRegistry() *meta.Registry {
	locations := meta.NewModel("locations", "locations", "location_id").
		SetLocation(true).
		SetSortOrder("location_name").
		AddScope("isEnabled", isEnabled("location_status")).
		AddRelation(relation.NewDescriptor("staffs", relation.MorphedByMany, "staffs").
			SetJoinTable(location.PivotTable, location.PivotLocation, "").
			SetMorphName(location.MorphName))

	staffs := meta.NewModel("staffs", "staffs", "staff_id").
		SetLocationable(true).
		AddScope("isEnabled", isEnabled("staff_status")).
		AddRelation(locationsOf(location.MorphName)).
		AddRelation(relation.NewDescriptor("manager", relation.BelongsTo, "staffs").SetForeignKey("manager_id"))

	customers := meta.NewModel("customers", "customers", "customer_id").
		AddScope("isEnabled", isEnabled("status")).
		AddRelation(relation.NewDescriptor("addresses", relation.HasMany, "addresses").SetForeignKey("customer_id"))

	addresses := meta.NewModel("addresses", "addresses", "address_id").
		AddRelation(relation.NewDescriptor("customer", relation.BelongsTo, "customers").SetForeignKey("customer_id"))

	categories := meta.NewModel("categories", "categories", "category_id").
		SetLocationable(true).
		SetSortOrder("priority, name").
		AddScope("isEnabled", isEnabled("status")).
		AddRelation(relation.NewDescriptor("parent", relation.BelongsTo, "categories").SetForeignKey("parent_id")).
		AddRelation(relation.NewDescriptor("menus", relation.BelongsToMany, "menus").
			SetJoinTable("menu_categories", "category_id", "menu_id"))

	menus := meta.NewModel("menus", "menus", "menu_id").
		SetLocationable(true).
		AddScope("isEnabled", isEnabled("menu_status")).
		AddRelation(relation.NewDescriptor("categories", relation.BelongsToMany, "categories").
			SetJoinTable("menu_categories", "menu_id", "category_id")).
		AddRelation(locationsOf(location.MorphName))

	orders := meta.NewModel("orders", "orders", "order_id").
		AddRelation(relation.NewDescriptor("customer", relation.BelongsTo, "customers").SetForeignKey("customer_id")).
		AddRelation(relation.NewDescriptor("location", relation.BelongsTo, "locations").SetForeignKey("location_id"))

	reg := meta.NewRegistry()
	reg.MustRegister(locations, staffs, customers, addresses, categories, menus, orders)
	return reg
}
