package evm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	liqcrypto "github.com/prophetmarkets/liquidityd/internal/crypto"
)

const (
	testKeyHex    = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testBridge    = "0x0000000000000000000000000000000000000bee"
	testRecipient = "HOMECHAINADDRESS"
)

func testSender(t *testing.T) *Sender {
	t.Helper()
	s, err := NewSender(liqcrypto.KeySource{RawKey: testKeyHex})
	require.NoError(t, err)
	return s
}

func TestComposeTransfer_PacksArguments(t *testing.T) {
	s := testSender(t)

	tr, err := s.ComposeTransfer(testBridge, testRecipient, `{"add_liquidity":1}`,
		big.NewInt(25_000_000), big.NewInt(250_000), false)
	require.NoError(t, err)

	method, err := bridgeABI.MethodById(tr.Calldata[:4])
	require.NoError(t, err)
	assert.Equal(t, "transferToForeignChain", method.Name)

	args, err := method.Inputs.Unpack(tr.Calldata[4:])
	require.NoError(t, err)
	assert.Equal(t, testRecipient, args[0])
	assert.Equal(t, `{"add_liquidity":1}`, args[1])
	assert.Equal(t, big.NewInt(25_000_000), args[2])
	assert.Equal(t, big.NewInt(250_000), args[3])

	assert.Equal(t, int64(0), tr.Value.Int64(), "token transfers carry no native value")
	assert.Equal(t, s.Address(), tr.From)
}

func TestComposeTransfer_NativeCarriesValue(t *testing.T) {
	s := testSender(t)

	tr, err := s.ComposeTransfer(testBridge, testRecipient, "", big.NewInt(7), nil, true)
	require.NoError(t, err)
	assert.Equal(t, int64(7), tr.Value.Int64())
}

func TestComposeTransfer_Rejections(t *testing.T) {
	s := testSender(t)

	_, err := s.ComposeTransfer("not-an-address", testRecipient, "", big.NewInt(1), nil, false)
	assert.Error(t, err)

	_, err = s.ComposeTransfer(testBridge, "", "", big.NewInt(1), nil, false)
	assert.Error(t, err)

	_, err = s.ComposeTransfer(testBridge, testRecipient, "", big.NewInt(0), nil, false)
	assert.Error(t, err)
}

func TestAssistantReward(t *testing.T) {
	reward := AssistantReward(big.NewInt(25_000_000), 1.0)
	assert.Equal(t, int64(250_000), reward.Int64())
}
