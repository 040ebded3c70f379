package admin

import (
	"fmt"

	"github.com/everpan/formrel/pkg/core"
	"xorm.io/xorm"
)

type Location struct {
	LocationId     int64  `xorm:"pk autoincr"`
	LocationName   string `xorm:"varchar(128) notnull"`
	LocationStatus int    `xorm:"default 1"`
}

func (l *Location) TableName() string { return "locations" }

type Staff struct {
	StaffId     int64  `xorm:"pk autoincr"`
	StaffName   string `xorm:"varchar(128) notnull"`
	StaffEmail  string `xorm:"varchar(128)"`
	ManagerId   int64  `xorm:"index"`
	StaffStatus int    `xorm:"default 1"`
}

func (s *Staff) TableName() string { return "staffs" }

type Customer struct {
	CustomerId int64  `xorm:"pk autoincr"`
	FirstName  string `xorm:"varchar(64)"`
	LastName   string `xorm:"varchar(64)"`
	Email      string `xorm:"varchar(128)"`
	Status     int    `xorm:"default 1"`
}

func (c *Customer) TableName() string { return "customers" }

type Address struct {
	AddressId  int64  `xorm:"pk autoincr"`
	CustomerId int64  `xorm:"index"`
	Address1   string `xorm:"'address_1' varchar(255)"`
	City       string `xorm:"varchar(128)"`
}

func (a *Address) TableName() string { return "addresses" }

type Category struct {
	CategoryId int64  `xorm:"pk autoincr"`
	Name       string `xorm:"varchar(128) notnull"`
	ParentId   int64  `xorm:"index"`
	Priority   int    `xorm:"default 0"`
	Status     int    `xorm:"default 1"`
}

func (c *Category) TableName() string { return "categories" }

type Menu struct {
	MenuId     int64   `xorm:"pk autoincr"`
	MenuName   string  `xorm:"varchar(255) notnull"`
	MenuPrice  float64 `xorm:"decimal(15,4)"`
	MenuStatus int     `xorm:"default 1"`
}

func (m *Menu) TableName() string { return "menus" }

type MenuCategory struct {
	MenuId     int64 `xorm:"pk"`
	CategoryId int64 `xorm:"pk"`
}

func (m *MenuCategory) TableName() string { return "menu_categories" }

// Locationable 门店与可挂载记录之间的多态中间表
type Locationable struct {
	LocationId       int64  `xorm:"pk"`
	LocationableId   int64  `xorm:"pk"`
	LocationableType string `xorm:"pk varchar(64)"`
}

func (l *Locationable) TableName() string { return "locationables" }

type Order struct {
	OrderId         int64  `xorm:"pk autoincr"`
	CustomerId      int64  `xorm:"index"`
	LocationId      int64  `xorm:"index"`
	OrderType       string `xorm:"varchar(32)"`
	OrderTimeIsAsap bool   `xorm:"notnull default 0"`
	Status          int    `xorm:"default 0"`
}

func (o *Order) TableName() string { return "orders" }

var tables = []interface{}{
	new(Location), new(Staff), new(Customer), new(Address), new(Category),
	new(Menu), new(MenuCategory), new(Locationable), new(Order),
}

// InitTables 同步后台模型的数据表
func InitTables(engine *xorm.Engine) error {
	for _, t := range tables {
		if err := engine.Sync2(t); err != nil {
			return fmt.Errorf("failed to sync table %T: %w", t, err)
		}
	}
	return nil
}

func init() {
	core.RegisterInitTableFunction(InitTables)
}
