package core

import (
	"fmt"
	"sync"

	"github.com/everpan/formrel/pkg/config"
	"github.com/spf13/viper"
	"xorm.io/xorm"
)

type Tenant struct {
	TenantIdx   uint32 `json:"tenant_idx" xorm:"pk autoincr"`
	TenantUid   string `json:"tenant_uid" xorm:"unique"` //uuid
	Name        string `json:"name"`
	Driver      string `json:"driver"`
	DataSource  string `json:"data_source"`
	Environment string `json:"environment"` // host test normal
	Status      int    `json:"status"`
}

func (t *Tenant) TableName() string {
	return "formrel_tenant"
}

func InitTenantTable(engine *xorm.Engine) error {
	if err := engine.Sync2(new(Tenant)); err != nil {
		return err
	}
	has, err := engine.Exist(&Tenant{TenantUid: DefaultTenant.TenantUid})
	if err != nil || has {
		return err
	}
	_, err = engine.Insert(DefaultTenant)
	return err
}

func init() {
	RegisterInitTableFunction(InitTenantTable)
	viper.SetDefault("tenant.default.driver", DefaultTenant.Driver)
	viper.SetDefault("tenant.default.data-source", DefaultTenant.DataSource)
	viper.SetDefault("tenant.http-header-key", TenantHeader)
	config.RegisterReloadConfigFunc(ReloadTenantConfig)
}

func ReloadTenantConfig() error {
	DefaultTenant.Driver = viper.GetString("tenant.default.driver")
	DefaultTenant.DataSource = viper.GetString("tenant.default.data-source")
	TenantHeader = viper.GetString("tenant.http-header-key")
	tenantCache.Store(DefaultTenant.TenantUid, DefaultTenant)
	return nil
}

var (
	DefaultTenant = &Tenant{
		TenantIdx:  1,
		TenantUid:  "69515562-5192-49aa-b223-b0953d83c887",
		Name:       "default",
		Driver:     "sqlite3",
		DataSource: "/tmp/formrel_tenant.db",
		Status:     1,
	}
	TenantHeader = "X-Tenant-UID"
	tenantCache  = sync.Map{}
)

func GetFromCache(uid string) *Tenant {
	if v, ok := tenantCache.Load(uid); ok {
		return v.(*Tenant)
	}
	return nil
}

func GetFromDBThenCached(uid string, engine *xorm.Engine) (*Tenant, error) {
	if engine == nil {
		return DefaultTenant, nil
	}
	t := &Tenant{TenantUid: uid, Status: 1}
	has, err := engine.Get(t)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("tenant:%s not exist or status != 1", uid)
	}
	tenantCache.Store(uid, t)
	return t, nil
}
