// Package wallet obtains a signing identity and a read-only chain connection from
// the injected wallet provider.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/wfunc/tournament-client/logger"
	"github.com/wfunc/tournament-client/session"
)

var (
	ErrNoWallet     = errors.New("no injected wallet provider")
	ErrUserRejected = errors.New("user rejected the request")
)

// codeUserRejected is the EIP-1193 "user rejected request" provider error.
const codeUserRejected = 4001

// ChainBackend is a read-only chain connection that also knows its chain id.
type ChainBackend interface {
	session.Backend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Provider is the injected wallet boundary, shaped after EIP-1193.
type Provider interface {
	// RequestAccounts may prompt the user (eth_requestAccounts).
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts never prompts (eth_accounts).
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Transactor(account common.Address, chainID *big.Int) (*bind.TransactOpts, error)
	SignMessage(ctx context.Context, account common.Address, msg []byte) ([]byte, error)
	Backend() session.Backend
}

// IsUserRejected reports whether err means the user declined a prompt.
func IsUserRejected(err error) bool {
	if errors.Is(err, ErrUserRejected) {
		return true
	}
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeUserRejected
}

// normalize maps provider rejections onto ErrUserRejected.
func normalize(err error) error {
	if err == nil || errors.Is(err, ErrUserRejected) {
		return err
	}
	if IsUserRejected(err) {
		return fmt.Errorf("%w: %v", ErrUserRejected, err)
	}
	return err
}

// Connector 钱包连接器
type Connector struct {
	provider Provider
	backend  session.Backend
}

// NewConnector wraps provider. A nil provider is allowed; Connect then fails with
// ErrNoWallet while Backend still serves read-only calls.
func NewConnector(provider Provider, backend session.Backend) *Connector {
	if backend == nil && provider != nil {
		backend = provider.Backend()
	}
	return &Connector{provider: provider, backend: backend}
}

// Backend is the read-only connection usable without a wallet.
func (c *Connector) Backend() session.Backend {
	return c.backend
}

func (c *Connector) Provider() Provider {
	return c.provider
}

// Connect asks the wallet for an account and builds a signing session. It is a
// user initiated action; failures are returned, never retried.
func (c *Connector) Connect(ctx context.Context) (*session.WalletSession, error) {
	if c.provider == nil {
		return nil, ErrNoWallet
	}

	accounts, err := c.provider.RequestAccounts(ctx)
	if err != nil {
		return nil, normalize(err)
	}
	if len(accounts) == 0 {
		return nil, ErrUserRejected
	}
	return c.sessionFor(ctx, accounts[0])
}

func (c *Connector) sessionFor(ctx context.Context, account common.Address) (*session.WalletSession, error) {
	chainID, err := c.provider.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("wallet: read chain id: %w", err)
	}

	signer, err := c.provider.Transactor(account, chainID)
	if err != nil {
		return nil, normalize(err)
	}

	provider := c.provider
	signMessage := func(ctx context.Context, msg []byte) ([]byte, error) {
		sig, err := provider.SignMessage(ctx, account, msg)
		return sig, normalize(err)
	}

	sess := session.NewWalletSession(account, chainID, signer, signMessage, c.provider.Backend())
	logger.Log.Infof("Wallet connected: account %s on chain %s, session %s", account.Hex(), chainID, sess.GetID())
	return sess, nil
}
