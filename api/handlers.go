package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/BurstFinance/burst/core/amount"
	"github.com/BurstFinance/burst/core/ledger"
	"github.com/BurstFinance/burst/crypto/address"
	"github.com/BurstFinance/burst/custody"
	"github.com/BurstFinance/burst/storage"
)

// Request bodies for mutating endpoints. Caller identifies the account
// the operation runs as; authorization happens inside the engine.

type transferRequest struct {
	Caller string        `json:"caller"`
	To     string        `json:"to"`
	Amount amount.Amount `json:"amount"`
}

type mintRequest struct {
	Caller  string        `json:"caller"`
	Account string        `json:"account"`
	Amount  amount.Amount `json:"amount"`
}

type burnRequest struct {
	Caller string        `json:"caller"`
	Amount amount.Amount `json:"amount"`
}

type stakeRequest struct {
	Caller string        `json:"caller"`
	Asset  string        `json:"asset,omitempty"`
	Amount amount.Amount `json:"amount"`
}

type buySlotRequest struct {
	Caller  string        `json:"caller"`
	Index   int           `json:"index"`
	Payment amount.Amount `json:"payment"`
}

type batchMintRequest struct {
	Caller   string          `json:"caller"`
	Pool     ledger.PoolKind `json:"pool"`
	Accounts []string        `json:"accounts"`
	Amounts  []amount.Amount `json:"amounts"`
}

type harvestRequest struct {
	Caller string          `json:"caller"`
	Pool   ledger.PoolKind `json:"pool"`
}

type callerRequest struct {
	Caller string `json:"caller"`
}

type adminRequest struct {
	Caller  string `json:"caller"`
	Account string `json:"account"`
}

type custodyRequest struct {
	Caller  string        `json:"caller"`
	Asset   string        `json:"asset"`
	Account string        `json:"account"`
	Amount  amount.Amount `json:"amount"`
}

// Account queries

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"address": addr,
		"balance": s.engine.BalanceOf(addr),
	})
}

func (s *Server) getStake(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	asset := ledger.NativeAsset()
	if id := r.URL.Query().Get("asset"); id != "" {
		asset = ledger.ExternalAsset(id)
	}

	pos := s.engine.StakeBalanceOf(asset, addr)
	s.writeJSON(w, map[string]interface{}{
		"asset":   asset.String(),
		"account": pos.Account,
		"amount":  pos.Amount,
	})
}

func (s *Server) getRewards(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	pending := make(map[string]amount.Amount)
	for _, kind := range ledger.PoolKinds() {
		amt, err := s.engine.PendingReward(kind, addr)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		pending[kind.String()] = amt
	}

	s.writeJSON(w, map[string]interface{}{
		"address": addr,
		"pending": pending,
	})
}

func (s *Server) getIsAdmin(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"address": addr,
		"admin":   s.engine.IsAdmin(addr),
	})
}

// Market queries

func (s *Server) getSlots(w http.ResponseWriter, r *http.Request) {
	slots := s.engine.Slots()
	s.writeJSON(w, map[string]interface{}{
		"slots": slots,
		"count": len(slots),
	})
}

func (s *Server) getSlot(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		s.writeError(w, "invalid slot index", http.StatusBadRequest)
		return
	}

	slot, err := s.engine.GetSlot(index)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"index": index,
		"slot":  slot,
	})
}

// Balance operations

func (s *Server) postTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !s.decode(w, r, &req) {
		return
	}

	ev, err := s.engine.Transfer(req.Caller, req.To, req.Amount)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeEvent(w, ev)
}

func (s *Server) postMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if !s.decode(w, r, &req) {
		return
	}

	ev, err := s.engine.MintTo(req.Caller, req.Account, req.Amount)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeEvent(w, ev)
}

func (s *Server) postBurn(w http.ResponseWriter, r *http.Request) {
	var req burnRequest
	if !s.decode(w, r, &req) {
		return
	}

	ev, err := s.engine.Burn(req.Caller, req.Amount)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeEvent(w, ev)
}

// Stake operations

func (s *Server) postStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if !s.decode(w, r, &req) {
		return
	}

	ev, err := s.engine.Stake(assetFromID(req.Asset), req.Caller, req.Amount)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeEvent(w, ev)
}

func (s *Server) postWithdrawStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if !s.decode(w, r, &req) {
		return
	}

	ev, err := s.engine.WithdrawStake(assetFromID(req.Asset), req.Caller, req.Amount)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeEvent(w, ev)
}

// Market operations

func (s *Server) postBuySlot(w http.ResponseWriter, r *http.Request) {
	var req buySlotRequest
	if !s.decode(w, r, &req) {
		return
	}

	ev, err := s.engine.BuySlot(req.Caller, req.Index, req.Payment)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeEvent(w, ev)
}

// Reward operations

func (s *Server) postBatchMint(w http.ResponseWriter, r *http.Request) {
	var req batchMintRequest
	if !s.decode(w, r, &req) {
		return
	}

	ev, err := s.engine.BatchMint(req.Caller, req.Pool, req.Accounts, req.Amounts)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeEvent(w, ev)
}

func (s *Server) postHarvest(w http.ResponseWriter, r *http.Request) {
	var req harvestRequest
	if !s.decode(w, r, &req) {
		return
	}

	events, err := s.engine.Harvest(req.Pool, req.Caller)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	typed := make([]map[string]interface{}, 0, len(events))
	for _, ev := range events {
		typed = append(typed, map[string]interface{}{
			"type":  ev.Type(),
			"event": ev,
		})
	}
	s.writeJSON(w, map[string]interface{}{"events": typed})
}

func (s *Server) postCompound(w http.ResponseWriter, r *http.Request) {
	var req callerRequest
	if !s.decode(w, r, &req) {
		return
	}

	ev, err := s.engine.Compound(req.Caller)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeEvent(w, ev)
}

// Admin registry

func (s *Server) getAdmins(w http.ResponseWriter, r *http.Request) {
	admins := s.engine.Admins()
	s.writeJSON(w, map[string]interface{}{
		"owner":  s.engine.Owner(),
		"admins": admins,
		"count":  len(admins),
	})
}

func (s *Server) postSetAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !s.decode(w, r, &req) {
		return
	}

	ev, err := s.engine.SetAdmin(req.Caller, req.Account)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeEvent(w, ev)
}

func (s *Server) postRemoveAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if !s.decode(w, r, &req) {
		return
	}

	ev, err := s.engine.RemoveAdmin(req.Caller, req.Account)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeEvent(w, ev)
}

// Operating mode

func (s *Server) postStopMining(w http.ResponseWriter, r *http.Request) {
	var req callerRequest
	if !s.decode(w, r, &req) {
		return
	}

	ev, err := s.engine.StopMining(req.Caller)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeEvent(w, ev)
}

func (s *Server) postResumeMining(w http.ResponseWriter, r *http.Request) {
	var req callerRequest
	if !s.decode(w, r, &req) {
		return
	}

	ev, err := s.engine.ResumeMining(req.Caller)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeEvent(w, ev)
}

// Custody

func (s *Server) getHoldings(w http.ResponseWriter, r *http.Request) {
	if s.custody == nil {
		s.writeError(w, "custody not available", http.StatusNotFound)
		return
	}

	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	holdings := make(map[string]amount.Amount)
	for _, id := range s.custody.Assets() {
		amt, err := s.custody.Holdings(id, addr)
		if err != nil {
			s.writeCustodyError(w, err)
			return
		}
		holdings[id] = amt
	}

	s.writeJSON(w, map[string]interface{}{
		"address":  addr,
		"holdings": holdings,
	})
}

func (s *Server) getAssets(w http.ResponseWriter, r *http.Request) {
	if s.custody == nil {
		s.writeError(w, "custody not available", http.StatusNotFound)
		return
	}

	assets := s.custody.Assets()
	pools := make(map[string]amount.Amount, len(assets))
	for _, id := range assets {
		amt, err := s.custody.PoolBalance(id)
		if err != nil {
			s.writeCustodyError(w, err)
			return
		}
		pools[id] = amt
	}

	s.writeJSON(w, map[string]interface{}{
		"assets": assets,
		"pools":  pools,
	})
}

func (s *Server) postDeposit(w http.ResponseWriter, r *http.Request) {
	if s.custody == nil {
		s.writeError(w, "custody not available", http.StatusNotFound)
		return
	}

	var req custodyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !s.engine.IsAdmin(req.Caller) {
		s.writeError(w, "caller is not an admin", http.StatusForbidden)
		return
	}

	if err := s.custody.Deposit(req.Asset, req.Account, req.Amount); err != nil {
		s.writeCustodyError(w, err)
		return
	}

	amt, err := s.custody.Holdings(req.Asset, req.Account)
	if err != nil {
		s.writeCustodyError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"asset":    req.Asset,
		"account":  req.Account,
		"holdings": amt,
	})
}

func (s *Server) postWithdraw(w http.ResponseWriter, r *http.Request) {
	if s.custody == nil {
		s.writeError(w, "custody not available", http.StatusNotFound)
		return
	}

	var req custodyRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.custody.Withdraw(req.Asset, req.Caller, req.Amount); err != nil {
		s.writeCustodyError(w, err)
		return
	}

	amt, err := s.custody.Holdings(req.Asset, req.Caller)
	if err != nil {
		s.writeCustodyError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"asset":    req.Asset,
		"account":  req.Caller,
		"holdings": amt,
	})
}

// Event journal

func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, "event journal not available", http.StatusNotFound)
		return
	}

	var from uint64
	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		parsed, err := strconv.ParseUint(fromStr, 10, 64)
		if err != nil {
			s.writeError(w, "invalid from sequence", http.StatusBadRequest)
			return
		}
		from = parsed
	}

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	entries, err := s.store.Events(from, limit)
	if err != nil {
		s.writeError(w, "failed to read journal", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []storage.JournalEntry{}
	}

	s.writeJSON(w, map[string]interface{}{
		"events": entries,
		"count":  len(entries),
	})
}

// Status

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.engine.GetStatus())
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"active":    s.engine.IsActive(),
		"timestamp": time.Now().Unix(),
	})
}

// Helpers

func assetFromID(id string) ledger.AssetRef {
	if id == "" {
		return ledger.NativeAsset()
	}
	return ledger.ExternalAsset(id)
}

// pathAddress extracts and validates the {address} path variable.
func (s *Server) pathAddress(w http.ResponseWriter, r *http.Request) (string, bool) {
	addr := mux.Vars(r)["address"]
	if err := address.Validate(addr); err != nil {
		s.writeError(w, "invalid address", http.StatusBadRequest)
		return "", false
	}
	return addr, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) writeEvent(w http.ResponseWriter, ev ledger.Event) {
	s.writeJSON(w, map[string]interface{}{
		"type":  ev.Type(),
		"event": ev,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}

// writeEngineError maps engine sentinel errors onto HTTP status codes.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrInvalidIndex),
		errors.Is(err, ledger.ErrUnknownPool):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrLengthMismatch),
		errors.Is(err, amount.ErrOverflow),
		errors.Is(err, amount.ErrUnderflow):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientStake),
		errors.Is(err, ledger.ErrPriceMismatch),
		errors.Is(err, ledger.ErrTransferFailed),
		errors.Is(err, ledger.ErrAlreadyStopped),
		errors.Is(err, ledger.ErrAlreadyActive):
		status = http.StatusConflict
	}

	s.writeError(w, err.Error(), status)
}

// writeCustodyError maps custody ledger errors onto HTTP status codes.
func (s *Server) writeCustodyError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, custody.ErrUnknownAsset):
		status = http.StatusNotFound
	case errors.Is(err, custody.ErrAssetExists),
		errors.Is(err, custody.ErrInsufficientHoldings):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, amount.ErrOverflow):
		status = http.StatusBadRequest
	}

	s.writeError(w, err.Error(), status)
}
