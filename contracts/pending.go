package contracts

import (
	"context"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/wfunc/tournament-client/logger"
	"github.com/wfunc/tournament-client/session"
)

// Pending is a submitted transaction.
type Pending interface {
	Hash() common.Hash
	// Wait blocks until the transaction is mined. It returns nil when confirmed and
	// a *RevertError when the receipt reports failure.
	Wait(ctx context.Context) error
}

type pendingTx struct {
	tx      *types.Transaction
	backend session.Backend
}

func (p *pendingTx) Hash() common.Hash {
	return p.tx.Hash()
}

func (p *pendingTx) Wait(ctx context.Context) error {
	receipt, err := bind.WaitMined(ctx, p.backend, p.tx)
	if err != nil {
		return classify(err)
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return nil
	}
	return &RevertError{TxHash: p.tx.Hash(), Reason: p.replayReason(ctx, receipt)}
}

// replayReason re-executes the failed call at its block to recover the revert
// reason. Best effort: an empty string means the node would not say.
func (p *pendingTx) replayReason(ctx context.Context, receipt *types.Receipt) string {
	from, err := types.Sender(types.LatestSignerForChainID(p.tx.ChainId()), p.tx)
	if err != nil {
		return ""
	}
	msg := ethereum.CallMsg{
		From:  from,
		To:    p.tx.To(),
		Gas:   p.tx.Gas(),
		Value: p.tx.Value(),
		Data:  p.tx.Data(),
	}
	_, err = p.backend.CallContract(ctx, msg, receipt.BlockNumber)
	if err == nil {
		return ""
	}
	reason, _ := revertReason(err)
	logger.Log.Debugf("Replayed reverted tx %s: %v", p.tx.Hash().Hex(), err)
	return reason
}
