package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/feral-file/ff-yield-ledger/internal/adapter"
	"github.com/feral-file/ff-yield-ledger/internal/logger"
	"github.com/feral-file/ff-yield-ledger/internal/payment"
)

const erc20ABI = `[
{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// DefaultConfirmTimeout bounds how long a broadcast transaction is awaited
const DefaultConfirmTimeout = 2 * time.Minute

// TokenProvider resolves ERC-20 contracts on an Ethereum network. Writes are
// signed with a single key, which must be the account the ledger pulls
// payments as.
type TokenProvider struct {
	client adapter.EthClient
	abi    abi.ABI
	signer common.Address
	opts   *bind.TransactOpts

	confirmTimeout time.Duration

	mu     sync.Mutex
	tokens map[common.Address]*erc20Token
}

// ProviderOption configures a TokenProvider
type ProviderOption func(*TokenProvider)

// WithConfirmTimeout overrides DefaultConfirmTimeout. Non-positive values are
// ignored.
func WithConfirmTimeout(d time.Duration) ProviderOption {
	return func(p *TokenProvider) {
		if d > 0 {
			p.confirmTimeout = d
		}
	}
}

// NewTokenProvider builds a provider that signs with key on the client's chain
func NewTokenProvider(ctx context.Context, client adapter.EthClient, key *ecdsa.PrivateKey, options ...ProviderOption) (*TokenProvider, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	p := &TokenProvider{
		client:         client,
		abi:            parsed,
		signer:         crypto.PubkeyToAddress(key.PublicKey),
		opts:           opts,
		confirmTimeout: DefaultConfirmTimeout,
		tokens:         make(map[common.Address]*erc20Token),
	}
	for _, o := range options {
		o(p)
	}
	return p, nil
}

// Signer returns the account every write is sent from
func (p *TokenProvider) Signer() common.Address {
	return p.signer
}

// Token returns the ERC-20 bound at address. The contract is not probed;
// a missing contract surfaces on the first call.
func (p *TokenProvider) Token(_ context.Context, address common.Address) (payment.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.tokens[address]; ok {
		return t, nil
	}
	t := &erc20Token{
		provider: p,
		address:  address,
		contract: bind.NewBoundContract(address, p.abi, p.client, p.client, p.client),
	}
	p.tokens[address] = t
	return t, nil
}

type erc20Token struct {
	provider *TokenProvider
	address  common.Address
	contract *bind.BoundContract
}

func (t *erc20Token) BalanceOf(ctx context.Context, owner common.Address) (*uint256.Int, error) {
	return t.callAmount(ctx, "balanceOf", owner)
}

func (t *erc20Token) Allowance(ctx context.Context, owner common.Address, spender common.Address) (*uint256.Int, error) {
	return t.callAmount(ctx, "allowance", owner, spender)
}

func (t *erc20Token) TransferFrom(ctx context.Context, spender common.Address, from common.Address, to common.Address, amount *uint256.Int) error {
	if spender != t.provider.signer {
		return fmt.Errorf("%w: %s", payment.ErrSignerMismatch, spender.Hex())
	}
	return t.transact(ctx, "transferFrom", from, to, amount.ToBig())
}

func (t *erc20Token) Transfer(ctx context.Context, from common.Address, to common.Address, amount *uint256.Int) error {
	if from != t.provider.signer {
		return fmt.Errorf("%w: %s", payment.ErrSignerMismatch, from.Hex())
	}
	return t.transact(ctx, "transfer", to, amount.ToBig())
}

// callAmount calls a view method returning a single uint256
func (t *erc20Token) callAmount(ctx context.Context, method string, args ...interface{}) (*uint256.Int, error) {
	data, err := t.provider.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	result, err := t.provider.client.CallContract(ctx, ethereum.CallMsg{
		To:   &t.address,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	var value *big.Int
	if err := t.provider.abi.UnpackIntoInterface(&value, method, result); err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}

	amount, overflow := uint256.FromBig(value)
	if overflow {
		return nil, fmt.Errorf("%s result overflows uint256", method)
	}
	return amount, nil
}

// transact sends a signed call and waits for it to be mined. Once broadcast
// the transfer settles whatever happens to the caller, so sending and
// confirming run detached from ctx cancellation under the confirm timeout.
func (t *erc20Token) transact(ctx context.Context, method string, args ...interface{}) error {
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.provider.confirmTimeout)
	defer cancel()

	opts := *t.provider.opts
	opts.Context = txCtx

	tx, err := t.contract.Transact(&opts, method, args...)
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	logger.InfoCtx(ctx, "Sent payment token transaction",
		zap.String("method", method),
		logger.Address("token", t.address),
		zap.String("tx_hash", tx.Hash().Hex()))

	receipt, err := bind.WaitMined(txCtx, t.provider.client, tx)
	if err != nil {
		// the transaction may still be mined; it has to be reconciled by hash
		logger.ErrorCtx(ctx, fmt.Errorf("unconfirmed %s: %w", method, err),
			logger.Address("token", t.address),
			zap.String("tx_hash", tx.Hash().Hex()))
		return fmt.Errorf("failed to wait for %s %s: %w", method, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s %s", payment.ErrTransactionReverted, method, tx.Hash().Hex())
	}
	return nil
}
