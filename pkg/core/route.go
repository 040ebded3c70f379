package core

import (
	"github.com/gofiber/fiber/v2"
)

type Route struct {
	Path     string
	Handler  HandleFunc
	Method   string
	Children []*Route
}

var allRoute []*Route

func RegisterRouter(routes []*Route) {
	allRoute = append(allRoute, routes...)
}

func apply(router fiber.Router, routes []*Route) {
	for _, route := range routes {
		route := route
		if route.Children != nil {
			apply(router.Group(route.Path), route.Children)
			continue
		}
		handler := func(c *fiber.Ctx) error {
			return HandlerExec(c, route.Handler)
		}
		if len(route.Method) > 0 {
			router.Add(route.Method, route.Path, handler)
		} else {
			router.Group(route.Path, handler)
		}
	}
}

func Use(app *fiber.App) {
	router := app.Group("/api/v1")
	apply(router, allRoute)
}
