package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cardroom/platform/internal/domain"
	"github.com/cardroom/platform/internal/engine"
	"github.com/cardroom/platform/internal/repository"
)

// TableRunner is the slice of the engine the table endpoints use.
type TableRunner interface {
	JoinTable(ctx context.Context, tableID, gameType string, playerID uuid.UUID, seat, pos int) (*domain.TableState, error)
	PlaceBet(ctx context.Context, tableID, gameType string, playerID uuid.UUID, seat, pos int, amount int64, playerSeed string) (*domain.TableState, error)
	RemoveBet(ctx context.Context, tableID, gameType string, playerID uuid.UUID, seat, pos int) (*domain.TableState, error)
	StartHand(ctx context.Context, tableID, gameType string, playerID uuid.UUID) (*domain.TableState, error)
	PlayerDecision(ctx context.Context, tableID, gameType string, playerID uuid.UUID, seat, pos int, action string) (*domain.TableState, error)
	GetPublicState(ctx context.Context, tableID, gameType string) (*engine.PublicTableState, error)
}

// PlayerEnsurer registers first-seen players in the wallet.
type PlayerEnsurer interface {
	EnsurePlayer(ctx context.Context, db repository.DBTX, playerID uuid.UUID, currency string) (*domain.Player, error)
}

// TableHandler exposes the table actions over HTTP. Every mutation responds
// with the redacted table view; the full state never crosses the wire.
type TableHandler struct {
	runner   TableRunner
	players  PlayerEnsurer
	db       repository.DBTX
	currency string
}

// NewTableHandler creates a new TableHandler. Players unknown to the wallet
// are created on first action with a zero balance in the given currency.
func NewTableHandler(runner TableRunner, players PlayerEnsurer, db repository.DBTX, currency string) *TableHandler {
	return &TableHandler{runner: runner, players: players, db: db, currency: currency}
}

func tableParams(r *http.Request) (tableID, gameType string) {
	return chi.URLParam(r, "tableID"), chi.URLParam(r, "gameType")
}

type joinRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
	Seat     int       `json:"seat"`
	Pos      int       `json:"pos"`
}

// Join handles POST /tables/{gameType}/{tableID}/join.
func (h *TableHandler) Join(w http.ResponseWriter, r *http.Request) {
	tableID, gameType := tableParams(r)
	var req joinRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if req.PlayerID == uuid.Nil {
		RespondError(w, domain.ErrValidation("player_id is required"))
		return
	}

	if _, err := h.players.EnsurePlayer(r.Context(), h.db, req.PlayerID, h.currency); err != nil {
		RespondError(w, err)
		return
	}

	state, err := h.runner.JoinTable(r.Context(), tableID, gameType, req.PlayerID, req.Seat, req.Pos)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, engine.Redact(state))
}

type betRequest struct {
	PlayerID   uuid.UUID `json:"player_id"`
	Seat       int       `json:"seat"`
	Pos        int       `json:"pos"`
	Amount     int64     `json:"amount"`
	PlayerSeed string    `json:"player_seed,omitempty"`
}

// PlaceBet handles POST /tables/{gameType}/{tableID}/bets.
func (h *TableHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	tableID, gameType := tableParams(r)
	var req betRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if req.PlayerID == uuid.Nil {
		RespondError(w, domain.ErrValidation("player_id is required"))
		return
	}

	if _, err := h.players.EnsurePlayer(r.Context(), h.db, req.PlayerID, h.currency); err != nil {
		RespondError(w, err)
		return
	}

	state, err := h.runner.PlaceBet(r.Context(), tableID, gameType, req.PlayerID, req.Seat, req.Pos, req.Amount, req.PlayerSeed)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, engine.Redact(state))
}

// RemoveBet handles POST /tables/{gameType}/{tableID}/bets/remove.
func (h *TableHandler) RemoveBet(w http.ResponseWriter, r *http.Request) {
	tableID, gameType := tableParams(r)
	var req joinRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if req.PlayerID == uuid.Nil {
		RespondError(w, domain.ErrValidation("player_id is required"))
		return
	}

	state, err := h.runner.RemoveBet(r.Context(), tableID, gameType, req.PlayerID, req.Seat, req.Pos)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, engine.Redact(state))
}

type startRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

// StartHand handles POST /tables/{gameType}/{tableID}/start.
func (h *TableHandler) StartHand(w http.ResponseWriter, r *http.Request) {
	tableID, gameType := tableParams(r)
	var req startRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if req.PlayerID == uuid.Nil {
		RespondError(w, domain.ErrValidation("player_id is required"))
		return
	}

	state, err := h.runner.StartHand(r.Context(), tableID, gameType, req.PlayerID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, engine.Redact(state))
}

type decisionRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
	Seat     int       `json:"seat"`
	Pos      int       `json:"pos"`
	Action   string    `json:"action"`
}

// Decide handles POST /tables/{gameType}/{tableID}/decisions.
func (h *TableHandler) Decide(w http.ResponseWriter, r *http.Request) {
	tableID, gameType := tableParams(r)
	var req decisionRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if req.PlayerID == uuid.Nil {
		RespondError(w, domain.ErrValidation("player_id is required"))
		return
	}
	if req.Action == "" {
		RespondError(w, domain.ErrValidation("action is required"))
		return
	}

	state, err := h.runner.PlayerDecision(r.Context(), tableID, gameType, req.PlayerID, req.Seat, req.Pos, req.Action)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, engine.Redact(state))
}

// GetState handles GET /tables/{gameType}/{tableID}.
func (h *TableHandler) GetState(w http.ResponseWriter, r *http.Request) {
	tableID, gameType := tableParams(r)
	pub, err := h.runner.GetPublicState(r.Context(), tableID, gameType)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, pub)
}
