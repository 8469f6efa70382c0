package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spruceid/siwe-go"

	"github.com/wfunc/tournament-client/config"
	"github.com/wfunc/tournament-client/session"
)

// SignIn is a signed EIP-4361 message.
type SignIn struct {
	Message   string         `json:"message"`
	Signature string         `json:"signature"`
	Address   common.Address `json:"address"`
	Nonce     string         `json:"nonce"`
}

var errNoMessageSigner = errors.New("wallet: session cannot sign messages")

// SignInWithEthereum builds a sign-in message for the session account and has the
// wallet sign it.
func SignInWithEthereum(ctx context.Context, sess *session.WalletSession, cfg config.SIWEConfig) (*SignIn, error) {
	if sess == nil || sess.SignMessage == nil {
		return nil, errNoMessageSigner
	}

	options := map[string]interface{}{
		"statement": cfg.Statement,
	}
	if sess.ChainID != nil {
		options["chainId"] = int(sess.ChainID.Int64())
	}

	nonce := siwe.GenerateNonce()
	msg, err := siwe.InitMessage(cfg.Domain, sess.Address.Hex(), cfg.URI, nonce, options)
	if err != nil {
		return nil, fmt.Errorf("wallet: build sign-in message: %w", err)
	}

	text := msg.String()
	sig, err := sess.SignMessage(ctx, []byte(text))
	if err != nil {
		return nil, err
	}

	return &SignIn{
		Message:   text,
		Signature: hexutil.Encode(sig),
		Address:   sess.Address,
		Nonce:     nonce,
	}, nil
}

// VerifySignIn checks the message against domain and nonce and returns the signer.
func VerifySignIn(in *SignIn, domain string) (common.Address, error) {
	msg, err := siwe.ParseMessage(in.Message)
	if err != nil {
		return common.Address{}, fmt.Errorf("wallet: parse sign-in message: %w", err)
	}

	nonce := in.Nonce
	pub, err := msg.Verify(in.Signature, &domain, &nonce, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("wallet: verify sign-in: %w", err)
	}

	signer := crypto.PubkeyToAddress(*pub)
	if signer != in.Address {
		return common.Address{}, fmt.Errorf("wallet: sign-in signed by %s, claimed %s", signer.Hex(), in.Address.Hex())
	}
	return signer, nil
}
