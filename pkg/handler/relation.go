package handler

import (
	"errors"
	"fmt"
	"sync"

	"github.com/everpan/formrel/pkg/admin"
	"github.com/everpan/formrel/pkg/config"
	"github.com/everpan/formrel/pkg/core"
	"github.com/everpan/formrel/pkg/entity"
	"github.com/everpan/formrel/pkg/entity/meta"
	"github.com/everpan/formrel/pkg/event"
	"github.com/everpan/formrel/pkg/widget"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var routes = []*core.Route{
	{
		Path:    "/model/:model",
		Handler: getModel,
		Method:  fiber.MethodGet,
	},
	{
		Path:    "/relation/:model/:field",
		Handler: getRelation,
		Method:  fiber.MethodGet,
	},
	{
		Path:    "/relation/:model/:field/save",
		Handler: saveRelation,
		Method:  fiber.MethodPost,
	},
}

var (
	Models = admin.NewRegistry()

	schemaOnce  sync.Once
	schemaCache *meta.SchemaCache

	bus event.Publisher
)

// SetEventBus 设置后，提交的关系字段值会发布 relation.saved 事件
func SetEventBus(p event.Publisher) {
	bus = p
}

func init() {
	core.RegisterRouter(routes)
}

func schemas() *meta.SchemaCache {
	schemaOnce.Do(func() {
		c, err := meta.NewSchemaCache(viper.GetInt("schema.cache-size"), meta.DefaultCacheTTL)
		if err != nil {
			config.GetLogger().Error("create schema cache", zap.Error(err))
			return
		}
		schemaCache = c
	})
	return schemaCache
}

// loadOwner 按 key 参数加载所属记录，没有 key 时为新记录
func loadOwner(c *core.Context, m *meta.Model) (entity.Record, error) {
	key := c.Fiber().Query("key")
	if key == "" {
		return m.NewRow(nil), nil
	}
	row, err := m.Find(c, c.Engine().DriverName(), key)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("%s '%s' not found", m.Name(), key)
	}
	return row, nil
}

func newResolver(c *core.Context) *widget.Resolver {
	opts := []widget.ResolverOption{
		widget.WithLocation(c),
		widget.WithLogger(config.GetLogger()),
	}
	if sc := schemas(); sc != nil {
		opts = append(opts, widget.WithSchema(sc, c.Engine()))
	}
	return widget.NewResolver(Models, c, c.Engine().DriverName(), opts...)
}

func getRelation(c *core.Context) error {
	modelName, field := c.Fiber().Params("model"), c.Fiber().Params("field")
	m, err := Models.Model(modelName)
	if err != nil {
		return c.SendBadRequestError(err)
	}
	owner, err := loadOwner(c, m)
	if err != nil {
		return c.SendBadRequestError(err)
	}
	opts, err := config.FieldOptions(modelName, field)
	if err != nil {
		return c.SendBadRequestError(err)
	}
	f, err := newResolver(c).Resolve(owner, field, opts)
	if err != nil {
		if errors.Is(err, widget.ErrRelationNotFound) || errors.Is(err, widget.ErrScopeNotFound) {
			return c.SendBadRequestError(err)
		}
		config.GetLogger().Error("resolve relation", zap.String("model", modelName),
			zap.String("field", field), zap.Error(err))
		return c.SendJSON(-1, err.Error(), nil)
	}
	return c.SendSuccess(f)
}

type saveBody struct {
	Value any `json:"value"`
}

type saveResult struct {
	Field string `json:"field"`
	Save  bool   `json:"save"`
	Value any    `json:"value"`
}

func saveRelation(c *core.Context) error {
	modelName, field := c.Fiber().Params("model"), c.Fiber().Params("field")
	opts, err := config.FieldOptions(modelName, field)
	if err != nil {
		return c.SendBadRequestError(err)
	}
	attr := field
	if opts.RelationFrom != "" {
		attr = opts.RelationFrom
	}
	if _, _, err = Models.RelatedPath(modelName, entity.NameToPath(attr)); err != nil {
		return c.SendBadRequestError(fmt.Errorf("%w: model '%s' does not contain a definition for '%s': %v",
			widget.ErrRelationNotFound, modelName, attr, err))
	}
	body := &saveBody{}
	if err = c.Fiber().BodyParser(body); err != nil {
		return c.SendBadRequestError(err)
	}
	v, ok := widget.SaveValue(opts, body.Value)
	if ok && bus != nil {
		publishSaved(c, modelName, field, v)
	}
	return c.SendSuccess(&saveResult{Field: field, Save: ok, Value: v})
}

func getModel(c *core.Context) error {
	m, err := Models.Model(c.Fiber().Params("model"))
	if err != nil {
		return c.SendBadRequestError(err)
	}
	jm, err := m.Describe(schemas(), c.Engine())
	if err != nil {
		return c.SendBadRequestError(err)
	}
	return c.SendSuccess(jm)
}

func publishSaved(c *core.Context, model, field string, value any) {
	evt, err := event.NewEvent(event.TypeRelationSaved, model, map[string]any{
		"tenant": c.Tenant().TenantUid,
		"key":    c.Fiber().Query("key"),
		"field":  field,
		"value":  value,
	})
	if err == nil {
		err = bus.Publish(c.Fiber().UserContext(), event.TopicRelation, evt)
	}
	if err != nil {
		config.GetLogger().Warn("publish relation saved", zap.String("model", model),
			zap.String("field", field), zap.Error(err))
	}
}
