package contracts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/wfunc/tournament-client/wallet"
)

var (
	ErrNoSigner              = errors.New("write handle requires a signer")
	ErrContractRevert        = errors.New("contract reverted")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// RevertError is a chain-level rejection. Reason is whatever the contract said and
// may be empty.
type RevertError struct {
	TxHash common.Hash
	Reason string
	Err    error
}

func (e *RevertError) Error() string {
	var b strings.Builder
	b.WriteString("execution reverted")
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.TxHash != (common.Hash{}) {
		fmt.Fprintf(&b, " (tx %s)", e.TxHash.Hex())
	}
	return b.String()
}

func (e *RevertError) Unwrap() error {
	return e.Err
}

func (e *RevertError) Is(target error) bool {
	switch target {
	case ErrContractRevert:
		return true
	case ErrInsufficientAllowance:
		return strings.Contains(strings.ToLower(e.Reason), "allowance")
	}
	return false
}

// classify maps node and wallet errors onto the package taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if wallet.IsUserRejected(err) {
		if errors.Is(err, wallet.ErrUserRejected) {
			return err
		}
		return fmt.Errorf("%w: %v", wallet.ErrUserRejected, err)
	}
	var revert *RevertError
	if errors.As(err, &revert) {
		return err
	}
	if reason, ok := revertReason(err); ok {
		return &RevertError{Reason: reason, Err: err}
	}
	return err
}

const revertMarker = "execution reverted"

// revertReason digs the Error(string) payload out of a node error, falling back to
// the text after "execution reverted".
func revertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, decodeErr := hexutil.Decode(s); decodeErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason, true
				}
			}
		}
	}

	msg := err.Error()
	i := strings.Index(msg, revertMarker)
	if i < 0 {
		return "", false
	}
	reason := strings.TrimSpace(msg[i+len(revertMarker):])
	reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
	return reason, true
}
