package serverapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"

	"github.com/xiheling1/mask/internal/geom"
	"github.com/xiheling1/mask/internal/model"
	"github.com/xiheling1/mask/internal/table"
)

// dragMessage is one client frame on the drag socket.
type dragMessage struct {
	Op        string  `json:"op"` // begin | move | end | cancel
	SessionID string  `json:"sessionId,omitempty"`
	CardID    string  `json:"cardId,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// dragReply is the server's answer to one drag frame.
type dragReply struct {
	OK        bool                 `json:"ok"`
	Op        string               `json:"op"`
	SessionID string               `json:"sessionId,omitempty"`
	Result    *table.DragEndResult `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// handleDragSocket serves the live drag protocol: one websocket per client,
// JSON frames in both directions. The same drag manager backs the HTTP
// commands, so a drag started over the socket can be ended over HTTP.
func (a *App) handleDragSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // dev: skip origin check
	})
	if err != nil {
		a.Logger.ErrorContext(ctx, "drag socket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				errors.Is(err, context.Canceled) {
				return
			}
			a.Logger.DebugContext(ctx, "drag socket closed", "err", err)
			return
		}

		var msg dragMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			a.writeDragReply(ctx, conn, dragReply{Op: msg.Op, Error: "invalid json"})
			continue
		}

		a.writeDragReply(ctx, conn, a.handleDragFrame(msg))
	}
}

func (a *App) handleDragFrame(msg dragMessage) dragReply {
	pos := geom.Point{X: msg.X, Y: msg.Y}

	switch msg.Op {
	case "begin":
		s := a.Drags.Begin(model.CardID(msg.CardID), pos)
		if s == nil {
			return dragReply{Op: msg.Op, Error: "cannot drag card: " + msg.CardID}
		}
		return dragReply{OK: true, Op: msg.Op, SessionID: s.ID}
	case "move":
		if !a.Drags.Move(msg.SessionID, pos) {
			return dragReply{Op: msg.Op, Error: "drag session not found"}
		}
		return dragReply{OK: true, Op: msg.Op, SessionID: msg.SessionID}
	case "end":
		res, ok := a.Drags.End(msg.SessionID, pos)
		if !ok {
			return dragReply{Op: msg.Op, Error: "drag session not found"}
		}
		return dragReply{OK: true, Op: msg.Op, SessionID: msg.SessionID, Result: &res}
	case "cancel":
		if !a.Drags.Cancel(msg.SessionID) {
			return dragReply{Op: msg.Op, Error: "drag session not found"}
		}
		return dragReply{OK: true, Op: msg.Op, SessionID: msg.SessionID}
	default:
		return dragReply{Op: msg.Op, Error: "unknown op: " + msg.Op}
	}
}

func (a *App) writeDragReply(ctx context.Context, conn *websocket.Conn, reply dragReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		a.Logger.ErrorContext(ctx, "drag reply marshal failed", "err", err)
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		a.Logger.DebugContext(ctx, "drag reply write failed", "err", err)
	}
}

func writeJSONBody(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}
