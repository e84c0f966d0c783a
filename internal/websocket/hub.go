package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"scanguard-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "billing_ws_events"

// Hub fans subscription-change pushes out to connected clients. An account
// may hold several connections (dashboard tabs, CLI watch); pushes go to all
// of them. Redis pub/sub carries pushes across instances so the webhook can
// land on any replica.
type Hub struct {
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb    *redis.Client
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.AccountID] = append(h.clients[client.AccountID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"account_id": client.AccountID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.AccountID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.AccountID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.AccountID]) == 0 {
					delete(h.clients, client.AccountID)
					h.logger.Info("Hub", "Client fully unregistered", map[string]interface{}{"account_id": client.AccountID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// NotifyAccount pushes a payload to every connection the account holds, on
// this instance directly and on other instances via Redis.
func (h *Hub) NotifyAccount(accountId string, payload interface{}) {
	accountUUID, err := uuid.Parse(accountId)
	if err != nil {
		h.logger.Warn("Hub", "Notify with bad account id", map[string]interface{}{"account_id": accountId})
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("Hub", "Notify payload not serializable", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliverLocal(accountUUID, data)

	if h.rdb != nil {
		envelope, _ := json.Marshal(map[string]interface{}{
			"target_account_id": accountId,
			"message":           json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), clusterChannel, envelope)
	}
}

func (h *Hub) deliverLocal(accountId uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := h.clients[accountId]
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			// The unregister handler in Run is the only closer of Send; a
			// slow consumer just gets handed over for removal.
			h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"account_id": accountId})
			h.unregister <- client
		}
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var envelope struct {
			TargetAccountID string          `json:"target_account_id"`
			Message         json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			h.logger.Warn("Hub", "Unreadable cluster message", map[string]interface{}{"error": err.Error()})
			continue
		}

		accountId, err := uuid.Parse(envelope.TargetAccountID)
		if err != nil {
			continue
		}
		h.deliverLocal(accountId, envelope.Message)
	}
}
