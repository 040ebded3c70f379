package core

import (
	"sync"

	"github.com/everpan/formrel/pkg/location"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"xorm.io/xorm"
)

type Context struct {
	fb         *fiber.Ctx
	engine     *xorm.Engine
	tenant     *Tenant
	locationId any
}

var (
	LocationHeader = location.DefaultHeaderID
	ctxPool        = sync.Pool{New: func() interface{} { return &Context{} }}
)

func init() {
	viper.SetDefault("location.http-header-key", LocationHeader)
}

type HandleFunc func(c *Context) error

func AcquireContext() *Context {
	return ctxPool.Get().(*Context)
}

func ReleaseContext(c *Context) {
	c.fb, c.engine, c.tenant, c.locationId = nil, nil, nil, nil
	ctxPool.Put(c)
}

func (c *Context) Fiber() *fiber.Ctx {
	return c.fb
}

func (c *Context) Engine() *xorm.Engine {
	return c.engine
}

func (c *Context) Tenant() *Tenant {
	return c.tenant
}

// Session 绑定请求上下文的会话，取消请求即取消查询
func (c *Context) Session() *xorm.Session {
	return c.engine.Context(c.fb.UserContext())
}

// QueryInterface 每次查询使用新的会话
func (c *Context) QueryInterface(sqlOrArgs ...interface{}) ([]map[string]interface{}, error) {
	return c.Session().QueryInterface(sqlOrArgs...)
}

// IsActive 请求是否限定在某个门店
func (c *Context) IsActive() bool {
	return c.locationId != nil
}

// CurrentID 当前门店主键
func (c *Context) CurrentID() any {
	return c.locationId
}

func (c *Context) FromFiber(fb *fiber.Ctx) error {
	c.fb = fb
	tenantUid := fb.Get(TenantHeader, DefaultTenant.TenantUid)
	c.tenant = GetFromCache(tenantUid)
	if c.tenant == nil {
		c.tenant = DefaultTenant
	}
	c.locationId = parseLocationId(fb.Get(viper.GetString("location.http-header-key")))
	var err error
	c.engine, err = GetEngine(c.tenant.Driver, c.tenant.DataSource)
	return err
}

func parseLocationId(s string) any {
	if s == "" {
		return nil
	}
	if id, err := cast.ToInt64E(s); err == nil {
		return id
	}
	return s
}

func HandlerExec(fb *fiber.Ctx, handler HandleFunc) error {
	c := AcquireContext()
	defer ReleaseContext(c)
	if err := c.FromFiber(fb); err != nil {
		return err
	}
	return handler(c)
}
