// Package ws exposes the fan-out broker over a WebSocket endpoint.
package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/hazardwatch/alert-engine/internal/broker"
	"github.com/hazardwatch/alert-engine/internal/domain"
)

// subscribeFrame is the only client-to-server message. Sending another one
// replaces the connection's filter.
type subscribeFrame struct {
	Action     string   `json:"action"`
	Categories []string `json:"categories"`
	GeoCell    string   `json:"geoCell"`
}

// filters parses the frame's hazard-type and geo-cell filters.
func (f subscribeFrame) filters() ([]domain.HazardType, *domain.GeoCell, error) {
	hazards := make([]domain.HazardType, 0, len(f.Categories))
	for _, c := range f.Categories {
		h, err := domain.ParseHazardType(c)
		if err != nil {
			return nil, nil, err
		}
		hazards = append(hazards, h)
	}

	var cell *domain.GeoCell
	if f.GeoCell != "" {
		parsed, err := domain.ParseGeoCell(f.GeoCell)
		if err != nil {
			return nil, nil, err
		}
		cell = &parsed
	}
	return hazards, cell, nil
}

// Handler upgrades connections and bridges them to the broker. Pushes are
// one-way: the client only ever sends subscribe frames, the server only ever
// sends alert events, and there are no acknowledgements.
type Handler struct {
	broker *broker.Broker
	logger *slog.Logger
}

// NewHandler creates the WebSocket handler over the given broker.
func NewHandler(b *broker.Broker, logger *slog.Logger) *Handler {
	return &Handler{broker: b, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	connID := uuid.NewString()
	defer h.broker.Unsubscribe(connID)
	defer conn.CloseNow()

	h.logger.Debug("websocket connected", "conn_id", connID)
	h.serve(r.Context(), conn, connID)
	h.logger.Debug("websocket disconnected", "conn_id", connID)
}

// serve pumps events to the client until it disconnects. A resubscribe frame
// swaps in a fresh event channel; the broker closes the old one, which shows
// up here as a closed-channel read and is ignored.
func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, connID string) {
	subs := make(chan *broker.Subscription, 1)
	readErr := make(chan error, 1)
	go h.readLoop(ctx, conn, connID, subs, readErr)

	var events chan broker.Event
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-readErr:
			if websocket.CloseStatus(err) == -1 {
				h.logger.Debug("websocket read ended", "conn_id", connID, "error", err)
			}
			return
		case sub := <-subs:
			events = sub.C
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := wsjson.Write(ctx, conn, event); err != nil {
				h.logger.Debug("websocket write failed", "conn_id", connID, "error", err)
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, connID string, subs chan<- *broker.Subscription, readErr chan<- error) {
	for {
		var frame subscribeFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			readErr <- err
			return
		}
		if frame.Action != "subscribe" {
			h.logger.Warn("ignoring unknown frame action", "conn_id", connID, "action", frame.Action)
			continue
		}
		hazards, cell, err := frame.filters()
		if err != nil {
			h.logger.Warn("ignoring invalid subscribe frame", "conn_id", connID, "error", err)
			continue
		}
		select {
		case subs <- h.broker.Subscribe(connID, hazards, cell):
		case <-ctx.Done():
			readErr <- fmt.Errorf("connection context done: %w", ctx.Err())
			return
		}
	}
}
