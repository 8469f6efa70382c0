// Package contracts holds typed read and write handles for the Token, Tournament,
// Organizer Registry and Organizer NFT contracts.
package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/wfunc/tournament-client/config"
	"github.com/wfunc/tournament-client/logger"
	"github.com/wfunc/tournament-client/models"
	"github.com/wfunc/tournament-client/session"
)

type TokenReader interface {
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	Decimals(ctx context.Context) (uint8, error)
}

type TokenWriter interface {
	IncreaseAllowance(ctx context.Context, spender common.Address, amount *big.Int) (Pending, error)
}

type TournamentReader interface {
	// PlayerID is 1-based; zero means not registered.
	PlayerID(ctx context.Context, account common.Address) (*big.Int, error)
	// Player reads the record at a 0-based index.
	Player(ctx context.Context, index *big.Int) (*models.PlayerRecord, error)
}

type TournamentWriter interface {
	Participate(ctx context.Context, nickname string, amount *big.Int) (Pending, error)
	GrantPrize(ctx context.Context) (Pending, error)
}

type OrganizerReader interface {
	// OrganizerID is zero for an address that is not an organizer.
	OrganizerID(ctx context.Context, account common.Address) (*big.Int, error)
}

type OrganizerNFTReader interface {
	OrganizerDetail(ctx context.Context, id *big.Int) (*models.OrganizerProfile, error)
}

// Manifest is the fixed deployment address book.
type Manifest struct {
	Token             common.Address
	OrganizerRegistry common.Address
	OrganizerNFT      common.Address
}

func ManifestFromConfig(cfg config.ManifestConfig) Manifest {
	return Manifest{
		Token:             common.HexToAddress(cfg.Token),
		OrganizerRegistry: common.HexToAddress(cfg.OrganizerRegistry),
		OrganizerNFT:      common.HexToAddress(cfg.OrganizerNFT),
	}
}

// Gateway hands out contract handles bound to one backend and, optionally, one signer.
type Gateway struct {
	manifest Manifest
	backend  session.Backend
	signer   *bind.TransactOpts
}

// New builds a gateway. A nil signer gives a read-only gateway.
func New(manifest Manifest, backend session.Backend, signer *bind.TransactOpts) *Gateway {
	return &Gateway{manifest: manifest, backend: backend, signer: signer}
}

// ForSession uses the session's signer and reader; without a session it is
// read-only over fallback.
func ForSession(manifest Manifest, sess *session.WalletSession, fallback session.Backend) *Gateway {
	if sess == nil {
		return New(manifest, fallback, nil)
	}
	backend := sess.Reader
	if backend == nil {
		backend = fallback
	}
	return New(manifest, backend, sess.Signer)
}

func (g *Gateway) Manifest() Manifest {
	return g.manifest
}

func (g *Gateway) handleFor(name string, address common.Address, parsed abi.ABI) *handle {
	return &handle{
		name:     name,
		address:  address,
		contract: bind.NewBoundContract(address, parsed, g.backend, g.backend, g.backend),
		backend:  g.backend,
		signer:   g.signer,
	}
}

func (g *Gateway) TokenRead() TokenReader {
	return &token{g.handleFor("Token", g.manifest.Token, tokenABI)}
}

func (g *Gateway) TokenWrite() (TokenWriter, error) {
	if g.signer == nil {
		return nil, ErrNoSigner
	}
	return &token{g.handleFor("Token", g.manifest.Token, tokenABI)}, nil
}

func (g *Gateway) TournamentRead(address common.Address) TournamentReader {
	return &tournament{g.handleFor("Tournament", address, tournamentABI)}
}

func (g *Gateway) TournamentWrite(address common.Address) (TournamentWriter, error) {
	if g.signer == nil {
		return nil, ErrNoSigner
	}
	return &tournament{g.handleFor("Tournament", address, tournamentABI)}, nil
}

func (g *Gateway) OrganizerRead() OrganizerReader {
	return &organizerRegistry{g.handleFor("OrganizerRegistry", g.manifest.OrganizerRegistry, organizerRegistryABI)}
}

func (g *Gateway) OrganizerNFTRead() OrganizerNFTReader {
	return &organizerNFT{g.handleFor("OrganizerNFT", g.manifest.OrganizerNFT, organizerNFTABI)}
}

type handle struct {
	name     string
	address  common.Address
	contract *bind.BoundContract
	backend  session.Backend
	signer   *bind.TransactOpts
}

func (h *handle) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := h.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, classify(fmt.Errorf("%s.%s: %w", h.name, method, err))
	}
	return out, nil
}

func (h *handle) transact(ctx context.Context, method string, args ...interface{}) (Pending, error) {
	if h.signer == nil {
		return nil, ErrNoSigner
	}
	opts := *h.signer
	opts.Context = ctx

	tx, err := h.contract.Transact(&opts, method, args...)
	if err != nil {
		return nil, classify(err)
	}
	logger.Log.Infof("Submitted %s.%s from %s: tx %s", h.name, method, opts.From.Hex(), tx.Hash().Hex())
	return &pendingTx{tx: tx, backend: h.backend}, nil
}

func bigOut(out []interface{}) (*big.Int, error) {
	if len(out) == 0 {
		return nil, fmt.Errorf("contracts: empty result")
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("contracts: unexpected result type %T", out[0])
	}
	return v, nil
}

type token struct{ *handle }

func (t *token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	out, err := t.call(ctx, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return bigOut(out)
}

func (t *token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	out, err := t.call(ctx, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return bigOut(out)
}

func (t *token) Decimals(ctx context.Context) (uint8, error) {
	out, err := t.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

func (t *token) IncreaseAllowance(ctx context.Context, spender common.Address, amount *big.Int) (Pending, error) {
	return t.transact(ctx, "increaseAllowance", spender, amount)
}

type tournament struct{ *handle }

func (t *tournament) PlayerID(ctx context.Context, account common.Address) (*big.Int, error) {
	out, err := t.call(ctx, "addressToPlayerId", account)
	if err != nil {
		return nil, err
	}
	return bigOut(out)
}

func (t *tournament) Player(ctx context.Context, index *big.Int) (*models.PlayerRecord, error) {
	out, err := t.call(ctx, "players", index)
	if err != nil {
		return nil, err
	}
	if len(out) != 3 {
		return nil, fmt.Errorf("contracts: players returned %d values", len(out))
	}
	nickname, _ := out[0].(string)
	score, _ := out[1].(*big.Int)
	life, _ := out[2].(*big.Int)
	return &models.PlayerRecord{Nickname: nickname, Score: score, RemainingLife: life}, nil
}

func (t *tournament) Participate(ctx context.Context, nickname string, amount *big.Int) (Pending, error) {
	return t.transact(ctx, "participate", nickname, amount)
}

func (t *tournament) GrantPrize(ctx context.Context) (Pending, error) {
	return t.transact(ctx, "grantPrize")
}

type organizerRegistry struct{ *handle }

func (o *organizerRegistry) OrganizerID(ctx context.Context, account common.Address) (*big.Int, error) {
	out, err := o.call(ctx, "addressToOrganizerId", account)
	if err != nil {
		return nil, err
	}
	return bigOut(out)
}

// organizerDetail mirrors the tuple returned by getOrganizerDetail.
type organizerDetail struct {
	Username    string
	Email       string
	PhoneNumber string
	Balance     *big.Int
}

type organizerNFT struct{ *handle }

func (o *organizerNFT) OrganizerDetail(ctx context.Context, id *big.Int) (*models.OrganizerProfile, error) {
	out, err := o.call(ctx, "getOrganizerDetail", id)
	if err != nil {
		return nil, err
	}
	detail := *abi.ConvertType(out[0], new(organizerDetail)).(*organizerDetail)
	return &models.OrganizerProfile{
		Username:    detail.Username,
		Email:       detail.Email,
		PhoneNumber: detail.PhoneNumber,
		Balance:     detail.Balance,
	}, nil
}
