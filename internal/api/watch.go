package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/pmendes/restaurante-client/pkg/models"
)

// StatusUpdate is one order status transition pushed by the backend.
type StatusUpdate struct {
	OrderID int                `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
}

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WatchOrders subscribes to the backend's status stream and delivers every
// transition on the returned channel until the context is cancelled or the
// connection drops. The channel is closed on exit; callers that only care
// about one order filter by OrderID themselves.
func (c *Client) WatchOrders(ctx context.Context) (<-chan StatusUpdate, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to status stream: %w", err)
	}

	c.logger.WithField("url", wsURL).Info("Watching order status stream")

	updates := make(chan StatusUpdate)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(updates)
		defer conn.Close()

		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if ctx.Err() == nil {
					c.logger.WithError(err).Warn("Status stream closed")
				}
				return
			}

			if msg.Type != "order_status" {
				continue
			}

			var update StatusUpdate
			if err := json.Unmarshal(msg.Data, &update); err != nil {
				c.logger.WithError(err).Warn("Skipping malformed status update")
				continue
			}

			select {
			case updates <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates, nil
}
