package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/tolelom/fullnode/bank"
	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/crypto"
	"github.com/tolelom/fullnode/indexer"
	"github.com/tolelom/fullnode/ledger"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	store   *ledger.Store
	mempool *core.Mempool
	exec    *bank.Executor
	indexer *indexer.Indexer
}

// NewHandler creates an RPC Handler.
func NewHandler(store *ledger.Store, mempool *core.Mempool, exec *bank.Executor, idx *indexer.Indexer) *Handler {
	return &Handler{store: store, mempool: mempool, exec: exec, indexer: idx}
}

// Dispatch routes an RPC request to the correct method. Method names
// follow spec.md §6's external interface table.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "getTransactionCount":
		return okResponse(req.ID, h.store.Len())

	case "getBalance":
		return h.getBalance(req)

	case "getLastId":
		return h.getLastID(req)

	case "sendTransaction":
		return h.sendTransaction(req)

	case "getSignatureStatus":
		return h.getSignatureStatus(req)

	case "requestAirdrop":
		return h.requestAirdrop(req)

	case "getMempoolSize":
		return okResponse(req.ID, h.mempool.Size())

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) getBalance(req Request) Response {
	var params struct {
		Pubkey string `json:"pubkey"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	pub, err := crypto.PubKeyFromHex(params.Pubkey)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	balance, err := h.exec.GetBalance(pub)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"pubkey": params.Pubkey, "balance": balance})
}

func (h *Handler) getLastID(req Request) Response {
	n := h.store.Len()
	if n == 0 {
		return errResponse(req.ID, CodeInternalError, "ledger is empty")
	}
	e, err := h.store.Read(n - 1)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]string{"last_id": e.ID.String()})
}

func (h *Handler) sendTransaction(req Request) Response {
	var wire struct {
		Data string `json:"data"` // hex-encoded core.Transaction.Encode() output
	}
	if err := json.Unmarshal(req.Params, &wire); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	raw, err := hex.DecodeString(wire.Data)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	tx, err := core.Decode(raw)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if err := h.mempool.Add(tx); err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]string{"signature": tx.ID().String()})
}

func (h *Handler) getSignatureStatus(req Request) Response {
	var params struct {
		Signature string `json:"signature"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	id, err := crypto.DigestFromHex(params.Signature)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if _, ok := h.mempool.Get(id); ok {
		return okResponse(req.ID, map[string]string{"status": "pending"})
	}
	if h.indexer != nil {
		if confirmed, err := h.indexer.HasSignature(id); err == nil && confirmed {
			return okResponse(req.ID, map[string]string{"status": "confirmed"})
		}
	}
	return okResponse(req.ID, map[string]string{"status": "unknown"})
}

func (h *Handler) requestAirdrop(req Request) Response {
	var params struct {
		Pubkey string `json:"pubkey"`
		Amount uint64 `json:"amount"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	pub, err := crypto.PubKeyFromHex(params.Pubkey)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if err := h.exec.Credit(pub, params.Amount); err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	if err := h.exec.Commit(); err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"pubkey": params.Pubkey, "credited": params.Amount})
}
