package card

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wfunc/tournament-client/logger"
	"github.com/wfunc/tournament-client/models"
	"github.com/wfunc/tournament-client/state"
)

// Ledger writes never fail a flight; the chain is the source of truth.

func (c *Card) recordSubmitted(ctx context.Context, fl flow, account common.Address, hash common.Hash) {
	if c.deps.Ledger == nil {
		return
	}
	record := models.TxRecord{
		Hash:       hash.Hex(),
		Kind:       string(fl.kind),
		Tournament: c.Address().Hex(),
		Account:    account.Hex(),
		Status:     models.TxPending,
	}
	if fl.amount != nil {
		record.Amount = fl.amount.String()
	}
	if err := c.deps.Ledger.RecordSubmitted(ctx, record); err != nil {
		logger.Log.Errorf("Ledger: record %s %s: %v", fl.kind, hash.Hex(), err)
	}
}

func (c *Card) recordOutcome(ctx context.Context, hash common.Hash, outcome state.Phase, cause error) {
	if c.deps.Ledger == nil {
		return
	}
	var reason string
	if cause != nil {
		reason = cause.Error()
	}
	if err := c.deps.Ledger.RecordOutcome(ctx, hash.Hex(), txStatus(outcome), reason); err != nil {
		logger.Log.Errorf("Ledger: resolve %s: %v", hash.Hex(), err)
	}
}

func txStatus(outcome state.Phase) models.TxStatus {
	switch outcome {
	case state.PhaseConfirmed:
		return models.TxConfirmed
	case state.PhaseRejected:
		return models.TxRejected
	default:
		return models.TxReverted
	}
}
