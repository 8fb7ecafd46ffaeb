package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/coder/websocket"
)

// ChangeEvent is one row-change notification from the backend's realtime
// feed. The feed is advisory: consumers use it to trigger a pull, never as
// a source of record.
type ChangeEvent struct {
	Table    string `json:"table"`
	Action   string `json:"action"`
	EntityID string `json:"entity_id"`
}

// reconnectDelay paces reconnection attempts after a dropped feed.
const reconnectDelay = 5 * time.Second

// Subscribe connects to the backend's realtime change feed and delivers
// events on the returned channel until ctx is canceled. Dropped
// connections are re-dialed transparently; events arriving while
// disconnected are lost, which is acceptable because the feed only nudges
// a full reconciliation pass.
func (c *Client) Subscribe(ctx context.Context) (<-chan ChangeEvent, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/realtime/v1/changes"

	events := make(chan ChangeEvent)

	go func() {
		defer close(events)

		for {
			if err := c.readFeed(ctx, wsURL, events); err != nil {
				if ctx.Err() != nil {
					return
				}

				c.logger.Warn("realtime feed dropped, reconnecting",
					slog.String("error", err.Error()),
					slog.Duration("delay", reconnectDelay),
				)
			}

			if err := timeSleep(ctx, reconnectDelay); err != nil {
				return
			}
		}
	}()

	return events, nil
}

// readFeed dials the feed once and pumps events until the connection
// fails or ctx is canceled.
func (c *Client) readFeed(ctx context.Context, wsURL string, events chan<- ChangeEvent) error {
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPClient: c.httpClient,
		HTTPHeader: map[string][]string{
			"Authorization": {"Bearer " + c.serviceKey},
			"apikey":        {c.serviceKey},
		},
	})
	if err != nil {
		return fmt.Errorf("backend: dial realtime feed: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c.logger.Debug("realtime feed connected")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("backend: read realtime feed: %w", err)
		}

		var event ChangeEvent
		if err := json.Unmarshal(data, &event); err != nil {
			c.logger.Warn("skipping malformed feed event", slog.String("error", err.Error()))

			continue
		}

		select {
		case events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
