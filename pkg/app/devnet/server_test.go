package devnet

import (
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainsafe/dapp-e2e/pkg/config"
	"github.com/chainsafe/dapp-e2e/pkg/devnet"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestNewLedger_DefaultAccounts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Devnet.PrefundWei = "1000"
	cfg.DApp.NFTContract = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"

	ledger, err := NewLedger(cfg, zap.NewNop())
	require.NoError(t, err)

	for _, acct := range DefaultAccounts {
		assert.Equal(t, big.NewInt(1000), ledger.Balance(common.HexToAddress(acct)))
	}
	assert.True(t, ledger.IsContract(common.HexToAddress(cfg.DApp.NFTContract)))
}

func TestNewLedger_TokenAndConfiguredAccounts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Devnet.PrefundWei = "5"
	cfg.Devnet.PrefundedAccounts = []string{"0x90F79bf6EB2c4f870365E785982E1f101E93b906"}
	cfg.DApp.TokenContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

	ledger, err := NewLedger(cfg, zap.NewNop())
	require.NoError(t, err)

	acct := common.HexToAddress(cfg.Devnet.PrefundedAccounts[0])
	assert.Equal(t, big.NewInt(5), ledger.Balance(acct))
	assert.Equal(t, big.NewInt(0), ledger.Balance(common.HexToAddress(DefaultAccounts[0])))

	bal, err := ledger.TokenBalance(common.HexToAddress(cfg.DApp.TokenContract), acct)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5), bal)
}

func TestNewLedger_InvalidPrefund(t *testing.T) {
	cfg := testConfig(t)
	cfg.Devnet.PrefundWei = "lots"

	_, err := NewLedger(cfg, zap.NewNop())
	require.Error(t, err)
}

func TestRouter(t *testing.T) {
	ledger := devnet.NewLedger(31337)
	rpcServer, err := devnet.NewServer(ledger, zap.NewNop())
	require.NoError(t, err)
	defer rpcServer.Stop()

	ts := httptest.NewServer(NewRouter(rpcServer, ledger))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for _, path := range []string{"/", "/rpc"} {
		resp, err = http.Post(ts.URL+path, "application/json",
			strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"eth_chainId","params":[]}`))
		require.NoError(t, err)
		body, _ = io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		assert.Contains(t, string(body), `"result":"0x7a69"`, path)
	}
}
