package table

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/xiheling1/mask/internal/geom"
	"github.com/xiheling1/mask/internal/model"
)

// Handler handles table-related HTTP requests.
type Handler struct {
	registry *Registry
	drags    *DragManager
}

// NewHandler creates a new table handler.
func NewHandler(registry *Registry, drags *DragManager) *Handler {
	return &Handler{
		registry: registry,
		drags:    drags,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(out)
}

// StateResponse is the response for GET /api/table/state.
type StateResponse struct {
	Cards []CardView `json:"cards"`
}

// GET /api/table/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}

	writeJSON(w, 200, StateResponse{Cards: h.registry.Snapshot()})
}

// CommandRequest is the request body for POST /api/table/cmd.
type CommandRequest struct {
	Cmd  string         `json:"cmd"`
	Args map[string]any `json:"args"`
}

// CommandResponse is the response for POST /api/table/cmd.
type CommandResponse struct {
	OK    bool   `json:"ok"`
	Patch any    `json:"patch,omitempty"`
	Error string `json:"error,omitempty"`
}

// POST /api/table/cmd
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, 405, "method not allowed")
		return
	}

	var req CommandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, 400, "invalid json")
		return
	}

	patch, err := h.executeCommand(req.Cmd, req.Args)
	if err != nil {
		writeJSON(w, 400, CommandResponse{
			OK:    false,
			Error: err.Error(),
		})
		return
	}

	writeJSON(w, 200, CommandResponse{
		OK:    true,
		Patch: patch,
	})
}

// executeCommand dispatches the command to the appropriate handler.
func (h *Handler) executeCommand(cmd string, args map[string]any) (any, error) {
	switch cmd {
	case "card.spawn":
		return h.cmdCardSpawn(args)
	case "card.move":
		return h.cmdCardMove(args)
	case "card.remove":
		return h.cmdCardRemove(args)
	case "card.attach":
		return h.cmdCardAttach(args)
	case "card.detach":
		return h.cmdCardDetach(args)
	case "slot.find":
		return h.cmdSlotFind(args)
	case "drag.begin":
		return h.cmdDragBegin(args)
	case "drag.move":
		return h.cmdDragMove(args)
	case "drag.end":
		return h.cmdDragEnd(args)
	case "drag.cancel":
		return h.cmdDragCancel(args)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

// Helper to get string from args
func getString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required field: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %s must be a string", key)
	}
	return s, nil
}

// Helper to get float from args (JSON numbers are float64)
func getFloat(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing required field: %s", key)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("field %s must be a number", key)
	}
	return f, nil
}

// Helper to get int from args
func getInt(args map[string]any, key string) (int, error) {
	f, err := getFloat(args, key)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// Helper to get optional int with default
func getIntOr(args map[string]any, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	f, ok := v.(float64)
	if !ok {
		return def
	}
	return int(f)
}

// Helper to get optional string.
func getStringOr(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func getPoint(args map[string]any) (geom.Point, error) {
	x, err := getFloat(args, "x")
	if err != nil {
		return geom.Point{}, err
	}
	y, err := getFloat(args, "y")
	if err != nil {
		return geom.Point{}, err
	}
	return geom.Point{X: x, Y: y}, nil
}

// card.spawn { name, effect, soulCost, imageRef, x, y }
func (h *Handler) cmdCardSpawn(args map[string]any) (any, error) {
	name, err := getString(args, "name")
	if err != nil {
		return nil, err
	}
	effect, err := getInt(args, "effect")
	if err != nil {
		return nil, err
	}
	pos, err := getPoint(args)
	if err != nil {
		return nil, err
	}

	spec := model.CardSpec{
		Name:     name,
		Effect:   effect,
		SoulCost: getIntOr(args, "soulCost", 0),
		ImageRef: getStringOr(args, "imageRef"),
	}
	card := h.registry.Spawn(spec, pos)

	return map[string]any{
		"card": card,
	}, nil
}

// card.move { cardId, x, y }
func (h *Handler) cmdCardMove(args map[string]any) (any, error) {
	cardID, err := getString(args, "cardId")
	if err != nil {
		return nil, err
	}
	pos, err := getPoint(args)
	if err != nil {
		return nil, err
	}

	if h.registry.Card(model.CardID(cardID)) == nil {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	}
	h.registry.MoveCard(model.CardID(cardID), pos)

	return map[string]any{
		"cardId": cardID,
		"pos":    pos,
	}, nil
}

// card.remove { cardId }
func (h *Handler) cmdCardRemove(args map[string]any) (any, error) {
	cardID, err := getString(args, "cardId")
	if err != nil {
		return nil, err
	}

	if h.registry.Card(model.CardID(cardID)) == nil {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	}
	h.registry.OnCardRemoved(model.CardID(cardID))

	return map[string]any{
		"removedCard": cardID,
	}, nil
}

// card.attach { hostId, slot, cardId }
func (h *Handler) cmdCardAttach(args map[string]any) (any, error) {
	hostID, err := getString(args, "hostId")
	if err != nil {
		return nil, err
	}
	slot, err := getInt(args, "slot")
	if err != nil {
		return nil, err
	}
	cardID, err := getString(args, "cardId")
	if err != nil {
		return nil, err
	}

	res, ok := h.registry.Attach(model.CardID(hostID), slot, model.CardID(cardID))
	if !ok {
		return nil, fmt.Errorf("%w: %s to slot %d of %s", ErrCannotAttach, cardID, slot, hostID)
	}

	return map[string]any{
		"attach": res,
	}, nil
}

// card.detach { cardId }
func (h *Handler) cmdCardDetach(args map[string]any) (any, error) {
	cardID, err := getString(args, "cardId")
	if err != nil {
		return nil, err
	}

	res, ok := h.registry.Detach(model.CardID(cardID))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAttached, cardID)
	}

	return map[string]any{
		"detach": res,
	}, nil
}

// slot.find { x, y, excluding }
func (h *Handler) cmdSlotFind(args map[string]any) (any, error) {
	pos, err := getPoint(args)
	if err != nil {
		return nil, err
	}
	excluding := getStringOr(args, "excluding")

	ref, found := h.registry.FindNearestFreeSlot(pos, model.CardID(excluding))

	return map[string]any{
		"found": found,
		"slot":  ref,
	}, nil
}

// drag.begin { cardId, x, y }
func (h *Handler) cmdDragBegin(args map[string]any) (any, error) {
	cardID, err := getString(args, "cardId")
	if err != nil {
		return nil, err
	}
	pos, err := getPoint(args)
	if err != nil {
		return nil, err
	}

	s := h.drags.Begin(model.CardID(cardID), pos)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrCannotDrag, cardID)
	}

	return map[string]any{
		"session": s,
	}, nil
}

// drag.move { sessionId, x, y }
func (h *Handler) cmdDragMove(args map[string]any) (any, error) {
	sessionID, err := getString(args, "sessionId")
	if err != nil {
		return nil, err
	}
	pos, err := getPoint(args)
	if err != nil {
		return nil, err
	}

	if !h.drags.Move(sessionID, pos) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	return map[string]any{
		"sessionId": sessionID,
		"pos":       pos,
	}, nil
}

// drag.end { sessionId, x, y }
func (h *Handler) cmdDragEnd(args map[string]any) (any, error) {
	sessionID, err := getString(args, "sessionId")
	if err != nil {
		return nil, err
	}
	pos, err := getPoint(args)
	if err != nil {
		return nil, err
	}

	res, ok := h.drags.End(sessionID, pos)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	return map[string]any{
		"result": res,
	}, nil
}

// drag.cancel { sessionId }
func (h *Handler) cmdDragCancel(args map[string]any) (any, error) {
	sessionID, err := getString(args, "sessionId")
	if err != nil {
		return nil, err
	}

	if !h.drags.Cancel(sessionID) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	return map[string]any{
		"cancelled": sessionID,
	}, nil
}
