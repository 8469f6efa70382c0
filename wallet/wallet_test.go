package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/tournament-client/config"
	"github.com/wfunc/tournament-client/session"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

// MockBackend only answers ChainID; the embedded interface panics on anything else.
type MockBackend struct {
	session.Backend
	chainID *big.Int
}

func (m *MockBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return m.chainID, nil
}

// rpcRejection mimics the provider error a wallet returns when the user clicks cancel.
type rpcRejection struct{}

func (rpcRejection) Error() string  { return "User rejected the request." }
func (rpcRejection) ErrorCode() int { return 4001 }

func newProvider(t *testing.T, confirm ConfirmFunc) Provider {
	t.Helper()
	p, err := NewKeyProvider(&MockBackend{chainID: big.NewInt(31337)}, "0x"+testKey, confirm)
	require.NoError(t, err)
	return p
}

func TestConnect_NoWallet(t *testing.T) {
	_, err := NewConnector(nil, nil).Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestConnect_UserRejected(t *testing.T) {
	deny := func(Request) bool { return false }
	_, err := NewConnector(newProvider(t, deny), nil).Connect(context.Background())
	assert.ErrorIs(t, err, ErrUserRejected)
}

func TestConnect_Session(t *testing.T) {
	key, err := crypto.HexToECDSA(testKey)
	require.NoError(t, err)
	want := crypto.PubkeyToAddress(key.PublicKey)

	sess, err := NewConnector(newProvider(t, nil), nil).Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, want, sess.Address)
	assert.Equal(t, int64(31337), sess.ChainID.Int64())
	assert.True(t, sess.CanSign())
	assert.Equal(t, want, sess.Signer.From)
	assert.NotNil(t, sess.Reader)
}

func TestTransactor_DeclinedSignature(t *testing.T) {
	var asked []RequestKind
	confirm := func(req Request) bool {
		asked = append(asked, req.Kind)
		return req.Kind != RequestTransaction
	}
	sess, err := NewConnector(newProvider(t, confirm), nil).Connect(context.Background())
	require.NoError(t, err)

	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tx := types.NewTx(&types.LegacyTx{Nonce: 0, To: &to, Gas: 21000, GasPrice: big.NewInt(1)})
	_, err = sess.Signer.Signer(sess.Address, tx)
	assert.ErrorIs(t, err, ErrUserRejected)
	assert.Equal(t, []RequestKind{RequestAccounts, RequestTransaction}, asked)
}

func TestSignMessage_PersonalSign(t *testing.T) {
	sess, err := NewConnector(newProvider(t, nil), nil).Connect(context.Background())
	require.NoError(t, err)

	msg := []byte("hello tournament")
	sig, err := sess.SignMessage(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, sig, crypto.SignatureLength)
	assert.Contains(t, []byte{27, 28}, sig[crypto.RecoveryIDOffset])

	sig[crypto.RecoveryIDOffset] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash(msg), sig)
	require.NoError(t, err)
	assert.Equal(t, sess.Address, crypto.PubkeyToAddress(*pub))
}

func TestIsUserRejected(t *testing.T) {
	assert.True(t, IsUserRejected(ErrUserRejected))
	assert.True(t, IsUserRejected(rpcRejection{}))
	assert.True(t, errors.Is(normalize(rpcRejection{}), ErrUserRejected))
	assert.False(t, IsUserRejected(errors.New("execution reverted")))
	assert.Nil(t, normalize(nil))
}

func TestSignInWithEthereum(t *testing.T) {
	sess, err := NewConnector(newProvider(t, nil), nil).Connect(context.Background())
	require.NoError(t, err)

	cfg := config.SIWEConfig{
		Domain:    "localhost:8080",
		URI:       "http://localhost:8080",
		Statement: "Sign in with Ethereum to the app.",
	}
	signIn, err := SignInWithEthereum(context.Background(), sess, cfg)
	require.NoError(t, err)
	assert.Contains(t, signIn.Message, sess.Address.Hex())
	assert.Contains(t, signIn.Message, cfg.Statement)

	signer, err := VerifySignIn(signIn, cfg.Domain)
	require.NoError(t, err)
	assert.Equal(t, sess.Address, signer)

	_, err = VerifySignIn(signIn, "evil.example")
	assert.Error(t, err)
}

func TestSignIn_ReadOnlySession(t *testing.T) {
	readOnly := session.NewWalletSession(common.Address{}, big.NewInt(1), nil, nil, nil)
	_, err := SignInWithEthereum(context.Background(), readOnly, config.SIWEConfig{})
	assert.Error(t, err)
}

// MockProvider lets a test move the wallet to another account or chain.
type MockProvider struct {
	accounts []common.Address
	chainID  *big.Int
}

func (m *MockProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return m.accounts, nil
}
func (m *MockProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	return m.accounts, nil
}
func (m *MockProvider) ChainID(ctx context.Context) (*big.Int, error) { return m.chainID, nil }
func (m *MockProvider) Transactor(account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{From: account}, nil
}
func (m *MockProvider) SignMessage(ctx context.Context, account common.Address, msg []byte) ([]byte, error) {
	return nil, ErrUserRejected
}
func (m *MockProvider) Backend() session.Backend { return nil }

func TestWatcher_Check(t *testing.T) {
	alice := common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob := common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	provider := &MockProvider{accounts: []common.Address{alice}, chainID: big.NewInt(1)}
	connector := NewConnector(provider, nil)
	sessions := session.NewManager()
	watcher := NewWatcher(connector, sessions, nil, 0)
	ctx := context.Background()

	// No session yet: nothing to compare against.
	require.NoError(t, watcher.Check(ctx))
	_, ok := sessions.Current()
	assert.False(t, ok)

	first, err := connector.Connect(ctx)
	require.NoError(t, err)
	sessions.Replace(first)

	require.NoError(t, watcher.Check(ctx))
	current, _ := sessions.Current()
	assert.Same(t, first, current, "unchanged wallet keeps the session")

	provider.accounts = []common.Address{bob}
	require.NoError(t, watcher.Check(ctx))
	current, _ = sessions.Current()
	assert.Equal(t, bob, current.Address)

	provider.chainID = big.NewInt(5)
	require.NoError(t, watcher.Check(ctx))
	current, _ = sessions.Current()
	assert.Equal(t, int64(5), current.ChainID.Int64())

	provider.accounts = nil
	require.NoError(t, watcher.Check(ctx))
	_, ok = sessions.Current()
	assert.False(t, ok, "a wallet with no accounts drops the session")
}
