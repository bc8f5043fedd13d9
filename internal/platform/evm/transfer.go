// Package evm prepares Counterstake export transfers on EVM source
// chains: the calldata a wallet submits to bridge a foreign asset toward
// a home-chain recipient. The service never broadcasts transactions; it
// only composes them.
package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	liqcrypto "github.com/prophetmarkets/liquidityd/internal/crypto"
)

// transferABI is the export function of a Counterstake bridge contract.
// reward is signed: negative rewards are allowed by the contract.
const transferABI = `[{
	"name": "transferToForeignChain",
	"type": "function",
	"inputs": [
		{"name": "foreign_address", "type": "string"},
		{"name": "data", "type": "string"},
		{"name": "amount", "type": "uint256"},
		{"name": "reward", "type": "int256"}
	]
}]`

var bridgeABI = mustParseABI(transferABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("evm: parse bridge ABI: %v", err))
	}
	return parsed
}

// Transfer is a fully composed bridge transaction for the user's wallet.
type Transfer struct {
	To       common.Address // bridge export contract
	Value    *big.Int       // non-zero only for native-coin bridges
	Calldata []byte
	From     common.Address
}

// Sender composes export transfers on behalf of one funding address.
type Sender struct {
	address common.Address
}

// NewSender derives the funding address from the configured key source.
func NewSender(src liqcrypto.KeySource) (*Sender, error) {
	keyHex, err := liqcrypto.LoadKey(src)
	if err != nil {
		return nil, fmt.Errorf("evm: load funding key: %w", err)
	}

	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("evm: invalid funding key: %w", err)
	}

	return &Sender{address: ethcrypto.PubkeyToAddress(pk.PublicKey)}, nil
}

// Address returns the funding EOA address.
func (s *Sender) Address() common.Address {
	return s.address
}

// ComposeTransfer builds the transferToForeignChain call that sends
// amount (source-asset base units) to the home-chain recipient, tipping
// reward to whichever assistant claims the transfer. data is forwarded
// verbatim to the recipient on the home chain.
func (s *Sender) ComposeTransfer(bridge string, recipient, data string, amount, reward *big.Int, native bool) (Transfer, error) {
	if !common.IsHexAddress(bridge) {
		return Transfer{}, fmt.Errorf("evm: invalid bridge address %q", bridge)
	}
	if recipient == "" {
		return Transfer{}, fmt.Errorf("evm: empty recipient address")
	}
	if amount == nil || amount.Sign() <= 0 {
		return Transfer{}, fmt.Errorf("evm: amount must be positive")
	}
	if reward == nil {
		reward = big.NewInt(0)
	}

	calldata, err := bridgeABI.Pack("transferToForeignChain", recipient, data, amount, reward)
	if err != nil {
		return Transfer{}, fmt.Errorf("evm: pack transfer: %w", err)
	}

	t := Transfer{
		To:       common.HexToAddress(bridge),
		Value:    big.NewInt(0),
		Calldata: calldata,
		From:     s.address,
	}
	if native {
		t.Value = new(big.Int).Set(amount)
	}

	return t, nil
}

// AssistantReward returns the reward in source base units for the given
// amount at the standard assistant reward rate, rounded down.
func AssistantReward(amount *big.Int, percent float64) *big.Int {
	reward := new(big.Float).Mul(new(big.Float).SetInt(amount), big.NewFloat(percent/100))
	out, _ := reward.Int(nil)
	return out
}
