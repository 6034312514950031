package selectors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, `[data-testid="connect-wallet"], button:has-text("Connect Wallet")`, c.DApp.ConnectWallet.Join())
	assert.Equal(t, "body", c.Wallet.Body)

	fields, err := c.Wallet.CompileDetails()
	require.NoError(t, err)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
		assert.NotEmpty(t, f.Selectors, f.Field)
		assert.NotNil(t, f.Pattern, f.Field)
	}
	assert.Equal(t, []string{FieldFrom, FieldTo, FieldAmount, FieldNetwork, FieldGasFee, FieldNonce}, names)
}

func TestDefault_Patterns(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	fields, err := c.Wallet.CompileDetails()
	require.NoError(t, err)

	body := "Amount: 0.5 ETH\nFrom: 0x1111111111111111111111111111111111111111\nEstimated gas fee 0.002 ETH\nNonce: 7"
	want := map[string]string{
		FieldAmount: "0.5 ETH",
		FieldFrom:   "0x1111111111111111111111111111111111111111",
		FieldGasFee: "0.002 ETH",
		FieldNonce:  "7",
	}
	for _, f := range fields {
		m := f.Pattern.FindStringSubmatch(body)
		if expected, ok := want[f.Field]; ok {
			require.Len(t, m, 2, f.Field)
			assert.Equal(t, expected, m[1], f.Field)
		} else {
			assert.Nil(t, m, f.Field)
		}
	}
}

func TestDefault_NetworkSkipsFeeRow(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	fields, err := c.Wallet.CompileDetails()
	require.NoError(t, err)

	for _, f := range fields {
		if f.Field != FieldNetwork {
			continue
		}
		require.NotNil(t, f.Skip)
		assert.True(t, f.Skip.MatchString("fee 0.0012 ETH"))
		assert.False(t, f.Skip.MatchString("Sepolia"))
		return
	}
	t.Fatal("no network rule")
}

func TestLoad_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	content := `
dapp:
  balance:
    - '#eth-balance'
wallet:
  buttons:
    confirm:
      - 'button:has-text("Bestätigen")'
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, List{"#eth-balance"}, c.DApp.Balance)
	assert.Equal(t, List{`button:has-text("Bestätigen")`}, c.Wallet.Buttons.Confirm)
	assert.Equal(t, List{`[data-testid="network-name"]`}, c.DApp.NetworkName, "untouched keys keep embedded values")
}

func TestLoad_RejectsPatternWithoutGroup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	content := `
wallet:
  details:
    - field: nonce
      selectors: ['#nonce']
      pattern: 'nonce \d+'
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no capturing group")
}

func TestLoad_RejectsBadSkipPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	content := `
wallet:
  details:
    - field: network
      selectors: ['#network']
      pattern: 'network (\w+)'
      skip: '(fee'
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network skip pattern")
}

func TestLoad_RejectsEmptyControl(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wallet:\n  buttons:\n    reject: []\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet.buttons.reject")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
