package router

import (
	"context"

	"chat_sync_service/internal/api/handlers"
	"chat_sync_service/internal/chat/app"
	"chat_sync_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes 註冊 bridge 路由，/metrics 與健康檢查不需要 token
func RegisterRoutes(r *fiber.App, roomHandler *handlers.RoomHandler, chatWebsocket *app.ChatWebsocketHandler) {
	r.Get("/", handlers.ConnectCheck)
	r.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	r.Post("/debug", handlers.DebugLogFlag)

	jwt := middlewares.JWTMiddleware()

	r.Get("/rooms", jwt, roomHandler.ListRooms)
	r.Post("/rooms", jwt, roomHandler.CreateRoom)
	r.Post("/rooms/:id/images", jwt, roomHandler.UploadImage)

	r.Get("/ws", jwt, upgradeOnly, websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))
}

func upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
