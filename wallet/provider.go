package wallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/wfunc/tournament-client/config"
	"github.com/wfunc/tournament-client/session"
)

type RequestKind string

const (
	RequestAccounts    RequestKind = "eth_requestAccounts"
	RequestTransaction RequestKind = "eth_sendTransaction"
	RequestMessage     RequestKind = "personal_sign"
)

// Request is what the user is asked to approve.
type Request struct {
	Kind    RequestKind
	Account common.Address
	To      *common.Address
	Data    []byte
	Message []byte
}

// ConfirmFunc stands in for the wallet's approval prompt.
type ConfirmFunc func(req Request) bool

func AutoConfirm(Request) bool { return true }

// PromptConfirm asks on out and reads y/N from in.
func PromptConfirm(in io.Reader, out io.Writer) ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(req Request) bool {
		switch req.Kind {
		case RequestTransaction:
			to := "contract creation"
			if req.To != nil {
				to = req.To.Hex()
			}
			fmt.Fprintf(out, "Sign transaction from %s to %s (%d bytes calldata)? [y/N] ", req.Account.Hex(), to, len(req.Data))
		case RequestMessage:
			fmt.Fprintf(out, "Sign message as %s?\n%s\n[y/N] ", req.Account.Hex(), req.Message)
		default:
			fmt.Fprintf(out, "Connect account %s? [y/N] ", req.Account.Hex())
		}
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}

// injected is a local stand-in for a browser wallet: one account, one signing key.
type injected struct {
	backend       ChainBackend
	account       common.Address
	signHash      func(hash []byte) ([]byte, error)
	newTransactor func(chainID *big.Int) (*bind.TransactOpts, error)
	confirm       ConfirmFunc
}

// NewKeyProvider serves the account behind a hex encoded private key.
func NewKeyProvider(backend ChainBackend, hexKey string, confirm ConfirmFunc) (Provider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("wallet: parse private key: %w", err)
	}
	return &injected{
		backend: backend,
		account: crypto.PubkeyToAddress(key.PublicKey),
		signHash: func(hash []byte) ([]byte, error) {
			return crypto.Sign(hash, key)
		},
		newTransactor: func(chainID *big.Int) (*bind.TransactOpts, error) {
			return bind.NewKeyedTransactorWithChainID(key, chainID)
		},
		confirm: orAuto(confirm),
	}, nil
}

// NewKeystoreProvider unlocks one account of a go-ethereum keystore directory.
func NewKeystoreProvider(backend ChainBackend, dir, address, passphrase string, confirm ConfirmFunc) (Provider, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("wallet: keystore account %q is not an address", address)
	}
	ks := keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
	account, err := ks.Find(accounts.Account{Address: common.HexToAddress(address)})
	if err != nil {
		return nil, fmt.Errorf("wallet: find keystore account: %w", err)
	}
	if err := ks.Unlock(account, passphrase); err != nil {
		return nil, fmt.Errorf("wallet: unlock keystore account: %w", err)
	}
	return &injected{
		backend: backend,
		account: account.Address,
		signHash: func(hash []byte) ([]byte, error) {
			return ks.SignHash(account, hash)
		},
		newTransactor: func(chainID *big.Int) (*bind.TransactOpts, error) {
			return bind.NewKeyStoreTransactorWithChainID(ks, account, chainID)
		},
		confirm: orAuto(confirm),
	}, nil
}

func orAuto(confirm ConfirmFunc) ConfirmFunc {
	if confirm == nil {
		return AutoConfirm
	}
	return confirm
}

func (p *injected) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if !p.confirm(Request{Kind: RequestAccounts, Account: p.account}) {
		return nil, ErrUserRejected
	}
	return []common.Address{p.account}, nil
}

func (p *injected) Accounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{p.account}, nil
}

func (p *injected) ChainID(ctx context.Context) (*big.Int, error) {
	return p.backend.ChainID(ctx)
}

func (p *injected) Backend() session.Backend {
	return p.backend
}

// Transactor returns signing options whose signer consults the confirm prompt.
func (p *injected) Transactor(account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	if account != p.account {
		return nil, fmt.Errorf("wallet: account %s is not managed by this provider", account.Hex())
	}
	opts, err := p.newTransactor(chainID)
	if err != nil {
		return nil, err
	}
	sign := opts.Signer
	opts.Signer = func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
		if !p.confirm(Request{Kind: RequestTransaction, Account: from, To: tx.To(), Data: tx.Data()}) {
			return nil, ErrUserRejected
		}
		return sign(from, tx)
	}
	return opts, nil
}

// SignMessage signs with personal_sign semantics: EIP-191 hash, V in {27, 28}.
func (p *injected) SignMessage(ctx context.Context, account common.Address, msg []byte) ([]byte, error) {
	if account != p.account {
		return nil, fmt.Errorf("wallet: account %s is not managed by this provider", account.Hex())
	}
	if !p.confirm(Request{Kind: RequestMessage, Account: account, Message: msg}) {
		return nil, ErrUserRejected
	}
	sig, err := p.signHash(accounts.TextHash(msg))
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// Dial connects to the configured node and builds the connector. Without a key or
// keystore the connector has no provider and Connect reports ErrNoWallet.
func Dial(ctx context.Context, chain config.ChainConfig, cfg config.WalletConfig, confirm ConfirmFunc) (*Connector, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, chain.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("wallet: dial %s: %w", chain.RPCURL, err)
	}
	if cfg.AutoConfirm {
		confirm = AutoConfirm
	}

	var provider Provider
	switch {
	case cfg.PrivateKey != "":
		provider, err = NewKeyProvider(client, cfg.PrivateKey, confirm)
	case cfg.KeystoreDir != "":
		provider, err = NewKeystoreProvider(client, cfg.KeystoreDir, cfg.KeystoreAccount, cfg.Passphrase, confirm)
	}
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return NewConnector(provider, client), client, nil
}
