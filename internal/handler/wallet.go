package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardroom/platform/internal/domain"
	"github.com/cardroom/platform/internal/ledger"
	"github.com/cardroom/platform/internal/repository"
)

// WalletHandler handles balance and transaction-history endpoints.
type WalletHandler struct {
	players      repository.PlayerRepository
	transactions repository.TransactionRepository
	pool         *pgxpool.Pool
	ledger       *ledger.Engine
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(
	players repository.PlayerRepository,
	transactions repository.TransactionRepository,
	pool *pgxpool.Pool,
	ldg *ledger.Engine,
) *WalletHandler {
	return &WalletHandler{players: players, transactions: transactions, pool: pool, ledger: ldg}
}

func playerIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "playerID"))
	if err != nil {
		return uuid.Nil, domain.ErrValidation("invalid player id")
	}
	return id, nil
}

// balanceResponse is the shape of GET /wallet/{playerID}/balance.
type balanceResponse struct {
	PlayerID uuid.UUID `json:"player_id"`
	Balance  int64     `json:"balance"`
	Currency string    `json:"currency"`
}

// GetBalance handles GET /wallet/{playerID}/balance.
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	playerID, err := playerIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	player, err := h.players.FindByID(r.Context(), h.pool, playerID)
	if err != nil {
		RespondError(w, domain.ErrInternal("find player", err))
		return
	}
	if player == nil {
		RespondError(w, domain.ErrNotFound("player", playerID.String()))
		return
	}

	RespondJSON(w, http.StatusOK, balanceResponse{
		PlayerID: player.ID,
		Balance:  player.Balance,
		Currency: player.Currency,
	})
}

// txListResponse wraps a list of transactions.
type txListResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
}

// GetTransactions handles GET /wallet/{playerID}/transactions.
func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	playerID, err := playerIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	txs, err := h.transactions.ListByPlayer(r.Context(), h.pool, playerID, limit)
	if err != nil {
		RespondError(w, domain.ErrInternal("list transactions", err))
		return
	}
	RespondJSON(w, http.StatusOK, txListResponse{Transactions: txs})
}

// GetHandTransactions handles GET /wallet/hands/{tableID}/{handID}. It lists
// every ledger entry a hand produced, in posting order, for audit and
// support tooling.
func (h *WalletHandler) GetHandTransactions(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")
	handID := chi.URLParam(r, "handID")
	if err := domain.ValidateTableID(tableID); err != nil {
		RespondError(w, domain.ErrValidation(err.Error()))
		return
	}

	prefix := tableID + ":" + handID + ":"
	txs, err := h.transactions.ListByCorrelationPrefix(r.Context(), h.pool, prefix)
	if err != nil {
		RespondError(w, domain.ErrInternal("list hand transactions", err))
		return
	}
	RespondJSON(w, http.StatusOK, txListResponse{Transactions: txs})
}

type adjustRequest struct {
	PlayerID      uuid.UUID       `json:"player_id"`
	Amount        int64           `json:"amount"`
	CorrelationID string          `json:"correlation_id"`
	Reason        string          `json:"reason"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

// AdminAdjust handles POST /admin/wallet/adjust: a signed manual correction
// with its own idempotency key.
func (h *WalletHandler) AdminAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if req.PlayerID == uuid.Nil {
		RespondError(w, domain.ErrValidation("player_id is required"))
		return
	}
	if req.CorrelationID == "" {
		RespondError(w, domain.ErrValidation("correlation_id is required"))
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		RespondError(w, domain.ErrInternal("begin transaction", err))
		return
	}
	defer tx.Rollback(r.Context())

	result, err := h.ledger.ExecuteAdminAdjust(r.Context(), tx, ledger.AdminAdjustParams{
		PlayerID:      req.PlayerID,
		Amount:        req.Amount,
		CorrelationID: req.CorrelationID,
		Reason:        req.Reason,
		Metadata:      req.Metadata,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		RespondError(w, domain.ErrInternal("commit transaction", err))
		return
	}

	status := http.StatusCreated
	if result.Idempotent {
		status = http.StatusOK
	}
	RespondJSON(w, status, result)
}
