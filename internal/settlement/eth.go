package settlement

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
)

const erc20TransferABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "to", "type": "address"}, {"internalType": "uint256", "name": "amount", "type": "uint256"}], "name": "transfer", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "nonpayable", "type": "function"}
]`

var (
	transferABI     abi.ABI
	transferABIOnce sync.Once
	transferABIErr  error
)

func getTransferABI() (abi.ABI, error) {
	transferABIOnce.Do(func() {
		transferABI, transferABIErr = abi.JSON(strings.NewReader(erc20TransferABIJSON))
	})
	return transferABI, transferABIErr
}

// Directory resolves asset tags and party identifiers to on-chain
// addresses and token scales.
type Directory interface {
	TokenAddress(asset string) (common.Address, uint8, error)
	PartyAddress(party string) (common.Address, error)
}

// EthSettler submits ERC-20 transfers through a node whose accounts are
// managed by the operator. The transaction hash is the transfer ref.
type EthSettler struct {
	rpcClient *rpc.Client
	directory Directory
}

// NewEthSettler dials the RPC endpoint and builds a settler.
func NewEthSettler(ctx context.Context, rpcURL string, directory Directory) (*EthSettler, error) {
	if directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	if _, err := ethclient.NewClient(rpcClient).ChainID(ctx); err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	return &EthSettler{
		rpcClient: rpcClient,
		directory: directory,
	}, nil
}

// Close closes the underlying RPC client.
func (s *EthSettler) Close() {
	if s.rpcClient != nil {
		s.rpcClient.Close()
	}
}

// Transfer submits transfer(to, amount) on the asset's token contract
// from the resolved sender account and returns the transaction hash.
func (s *EthSettler) Transfer(ctx context.Context, asset string, amount decimal.Decimal, from, to string) (string, error) {
	token, tokenDecimals, err := s.directory.TokenAddress(asset)
	if err != nil {
		return "", fmt.Errorf("resolve asset %s: %w", asset, err)
	}
	fromAddr, err := s.directory.PartyAddress(from)
	if err != nil {
		return "", fmt.Errorf("resolve sender %s: %w", from, err)
	}
	toAddr, err := s.directory.PartyAddress(to)
	if err != nil {
		return "", fmt.Errorf("resolve recipient %s: %w", to, err)
	}

	erc20, err := getTransferABI()
	if err != nil {
		return "", err
	}

	units := amount.Shift(int32(tokenDecimals)).Truncate(0).BigInt()
	data, err := erc20.Pack("transfer", toAddr, units)
	if err != nil {
		return "", fmt.Errorf("pack transfer: %w", err)
	}

	arg := map[string]any{
		"from": fromAddr,
		"to":   token,
		"data": hexutil.Bytes(data),
	}
	var txHash common.Hash
	if err := s.rpcClient.CallContext(ctx, &txHash, "eth_sendTransaction", arg); err != nil {
		return "", fmt.Errorf("send transfer: %w", err)
	}
	return txHash.Hex(), nil
}

// StaticDirectory resolves tokens and parties from fixed tables.
type StaticDirectory struct {
	Tokens  map[string]TokenEntry
	Parties map[string]common.Address
}

// TokenEntry pairs a token contract with its decimal scale.
type TokenEntry struct {
	Address  common.Address
	Decimals uint8
}

// TokenAddress resolves from the table, falling back to literal hex
// addresses for tokenized domain assets addressed by contract.
func (d *StaticDirectory) TokenAddress(asset string) (common.Address, uint8, error) {
	if entry, ok := d.Tokens[asset]; ok {
		return entry.Address, entry.Decimals, nil
	}
	if common.IsHexAddress(asset) {
		return common.HexToAddress(asset), 18, nil
	}
	return common.Address{}, 0, fmt.Errorf("unknown asset %s", asset)
}

// PartyAddress resolves from the table, falling back to literal hex
// addresses.
func (d *StaticDirectory) PartyAddress(party string) (common.Address, error) {
	if addr, ok := d.Parties[party]; ok {
		return addr, nil
	}
	if common.IsHexAddress(party) {
		return common.HexToAddress(party), nil
	}
	return common.Address{}, fmt.Errorf("unknown party %s", party)
}
