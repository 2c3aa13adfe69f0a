package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"chat_sync_service/internal/auth"
	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/notification"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/middlewares"
	"chat_sync_service/pkg/token"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const pingInterval = 30 * time.Second

// ChatWebsocketHandler 每條連線一個 client：自己的 SyncEngine、SendPipeline 與通知 Gate
type ChatWebsocketHandler struct {
	remote   domain.RemoteStore
	perms    notification.PermissionStore
	prompter notification.Prompter
	window   int
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	remote domain.RemoteStore,
	perms notification.PermissionStore,
	prompter notification.Prompter,
	window int,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		remote:   remote,
		perms:    perms,
		prompter: prompter,
		window:   window,
	}
}

// wsClient state of one websocket connection
type wsClient struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex

	claims  *token.Claims
	session *auth.Session
	gate    *notification.Gate
	engine  *SyncEngine
	sender  *SendPipeline
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	claims, ok := conn.Locals(middlewares.TokenClaims).(*token.Claims)
	if !ok {
		closeWebSocketConnection(conn, websocket.ClosePolicyViolation, "missing claims")
		return
	}

	c := h.newClient(conn, claims)
	logger.Log.Info("websocket open", zap.String("conn_id", c.id), zap.String("member_id", claims.MemberID))

	ticker := time.NewTicker(pingInterval)
	ctxClose, cancel := context.WithCancel(ctx)

	defer func() {
		ticker.Stop()
		cancel()
		// 先關連線，Exit 等待中的 push 才不會卡在寫入
		conn.Close()
		c.engine.Exit("")
		c.session.SignOut()
		logger.Log.Info("websocket close", zap.String("conn_id", c.id), zap.String("member_id", claims.MemberID))
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Debug("websocket close frame", zap.String("conn_id", c.id), zap.Int("code", code), zap.String("text", text))
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		logger.Log.Debug("received pong", zap.String("conn_id", c.id))
		return nil
	})

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := c.write(websocket.PingMessage, []byte("ping")); err != nil {
					logger.Log.Warn("ping failed", zap.String("conn_id", c.id), zap.Error(err))
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Debug("connection closed", zap.String("conn_id", c.id), zap.Error(err))
			} else {
				//直接斷線 1006
				logger.Log.Warn("websocket read error", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		h.execWebsocketAction(ctxClose, c, mt, message)
	}
}

func (h *ChatWebsocketHandler) newClient(conn *websocket.Conn, claims *token.Claims) *wsClient {
	c := &wsClient{
		id:      uuid.NewString(),
		conn:    conn,
		claims:  claims,
		session: auth.NewSession(),
	}
	c.session.SignInClaims(claims)

	c.gate = notification.NewGate(h.perms, claims.MemberID, h.prompter,
		notification.SinkFunc(func(_ context.Context, n domain.Notification) error {
			return c.push(domain.NotifyMessage, map[string]interface{}{
				"text":       n.Text,
				"room_id":    n.RoomID,
				"message_id": n.MessageID,
				"deep_link":  notification.DeepLink(n.RoomID, n.MessageID),
			})
		}),
	)
	c.gate.OnOpened(func(roomID, messageID string) {
		_ = c.push(domain.OpenRoom, map[string]interface{}{
			"room_id":    roomID,
			"message_id": messageID,
		})
	})

	c.engine = NewSyncEngine(h.remote, c.gate,
		WithWindowSize(h.window),
		WithChangeListener(func(s Snapshot) {
			_ = c.push(domain.Messages, map[string]interface{}{
				"room_id":      s.RoomID,
				"state":        s.State.String(),
				"messages":     domain.NewMessageViews(s.Messages),
				"fully_loaded": s.FullyLoaded,
			})
		}),
		WithErrorListener(func(roomID string, err error) {
			action := "error"
			if errors.Is(err, domain.ErrSubscriptionLost) {
				action = string(domain.SubscriptionLostPush)
			}
			c.send(domain.WSResponse{
				Action:  action,
				Payload: map[string]interface{}{"room_id": roomID},
				Error:   err.Error(),
				Code:    domain.ErrorCode(err),
			})
		}),
	)
	c.sender = NewSendPipeline(h.remote, c.gate, c.session)
	return c
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, c *wsClient, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, c, msg)

	//! close ping pong fiber會自動處理，故需使用setHandler處理
	default:
		c.sendError("unsupported message type", "")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, c *wsClient, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		logger.Log.Warn("json unmarshal error", zap.String("conn_id", c.id), zap.Error(err))
		c.sendError("invalid request", "")
		return
	}

	resp := domain.WSResponse{Action: req.Action, Payload: map[string]interface{}{}}
	var err error
	switch domain.Action(req.Action) {
	//進入聊天室，歷史訊息經由 messages push 送出
	case domain.EnterRoom:
		err = c.engine.Enter(ctx, req.RoomID)
		resp.Payload["room_id"] = req.RoomID

	//離開聊天室
	case domain.LeaveRoom:
		c.engine.Exit(req.RoomID)
		resp.Payload["room_id"] = req.RoomID

	//載入更早的訊息
	case domain.LoadMore:
		err = c.engine.LoadMore(ctx)
		resp.Payload["fully_loaded"] = c.engine.IsFullyLoaded()

	case domain.Refresh:
		err = c.engine.Refresh(ctx)

	//傳送訊息，送出者經由訂閱看到自己的訊息
	case domain.SendMessage:
		err = c.sender.Send(ctx, req.RoomID, req.Content, c.claims.PhotoURL, req.ImageMessageURL)
		resp.Payload["room_id"] = req.RoomID

	//點開通知，link 優先
	case domain.OpenNotification:
		if req.Link != "" {
			err = c.gate.OpenDeepLink(req.Link)
		} else if req.RoomID == "" {
			err = domain.ErrInvalidDeepLink
		} else {
			c.gate.Open(req.RoomID, req.MessageID)
		}

	case domain.SetNotificationPermission:
		err = c.gate.SetPermission(ctx, req.Granted)
		resp.Payload["granted"] = req.Granted

	default:
		c.sendError("unknown action", "")
		return
	}

	if err != nil {
		resp.Error = err.Error()
		resp.Code = domain.ErrorCode(err)
		logger.Log.Warn("websocket action failed",
			zap.String("conn_id", c.id),
			zap.String("member_id", c.claims.MemberID),
			zap.String("action", req.Action),
			zap.Error(err),
		)
	} else {
		resp.Success = true
	}
	c.send(resp)
}

// push server initiated message
func (c *wsClient) push(action domain.Action, payload map[string]interface{}) error {
	return c.send(domain.WSResponse{Action: string(action), Success: true, Payload: payload})
}

// send - 發送 JSON 給前端
func (c *wsClient) send(resp domain.WSResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("marshal response", zap.String("action", resp.Action), zap.Error(err))
		return err
	}
	if err := c.write(websocket.TextMessage, b); err != nil {
		logger.Log.Warn("write message error", zap.String("conn_id", c.id), zap.Error(err))
		return err
	}
	return nil
}

func (c *wsClient) sendError(errorMsg, code string) {
	_ = c.send(domain.WSResponse{
		Action: "error",
		Error:  errorMsg,
		Code:   code,
	})
}

func (c *wsClient) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

func closeWebSocketConnection(conn *websocket.Conn, code int, reason string) {
	if err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason)); err != nil {
		logger.Log.Warn("failed to send close message", zap.Error(err))
	}
	conn.Close()
}
