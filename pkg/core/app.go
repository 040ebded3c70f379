package core

import (
	"github.com/everpan/formrel/pkg/config"
	"github.com/goccy/go-json"
	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func CreateApp() *fiber.App {
	app := fiber.New(fiber.Config{
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
		// 嵌套字段名中的 [ ] 通常会被编码
		UnescapePath: true,
	})
	logger := config.GetLogger()
	app.Use(fiberzap.New(fiberzap.Config{Logger: logger}))
	Use(app)
	for _, r := range app.GetRoutes() {
		logger.Debug("route", zap.String("method", r.Method), zap.String("path", r.Path))
	}
	return app
}
