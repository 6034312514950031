package pages

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/dapp-e2e/pkg/browser"
	"github.com/chainsafe/dapp-e2e/pkg/selectors"
)

// Read timeouts per element.
const (
	addressTimeout     = 15 * time.Second
	balanceTimeout     = 15 * time.Second
	networkTimeout     = 10 * time.Second
	galleryTimeout     = 15 * time.Second
	priceImpactTimeout = 10 * time.Second
	txHashTimeout      = 15 * time.Second
)

// DAppPage drives the dApp: wallet connection, transfers, minting and swaps.
type DAppPage struct {
	BasePage
	dapp selectors.DAppSelectors
}

// NewDAppPage binds a page object to page.
func NewDAppPage(page browser.Page, catalog *selectors.Catalog, opts ...Option) *DAppPage {
	return &DAppPage{
		BasePage: newBasePage(page, catalog, opts...),
		dapp:     catalog.DApp,
	}
}

// ClickConnectWallet clicks the connect button.
func (d *DAppPage) ClickConnectWallet() error {
	return d.click("connect wallet", d.dapp.ConnectWallet)
}

// IsWalletConnected reports whether the connected address is shown right now.
func (d *DAppPage) IsWalletConnected() bool {
	return d.page.IsVisible(d.dapp.WalletAddress.Join(), 0)
}

// GetConnectedAddress returns the address the dApp shows as connected.
func (d *DAppPage) GetConnectedAddress() (string, error) {
	return d.read("wallet_address", d.dapp.WalletAddress, addressTimeout)
}

// GetBalance returns the rendered balance, e.g. "1.5 ETH".
func (d *DAppPage) GetBalance() (string, error) {
	return d.read("balance", d.dapp.Balance, balanceTimeout)
}

// GetNetworkName returns the network badge text.
func (d *DAppPage) GetNetworkName() (string, error) {
	return d.read("network_name", d.dapp.NetworkName, networkTimeout)
}

// Disconnect clicks the disconnect button.
func (d *DAppPage) Disconnect() error {
	return d.click("disconnect", d.dapp.Disconnect)
}

// FillTransferForm enters the recipient and amount.
func (d *DAppPage) FillTransferForm(recipient, amount string) error {
	if err := d.fill("recipient", d.dapp.RecipientInput, recipient); err != nil {
		return err
	}
	return d.fill("amount", d.dapp.AmountInput, amount)
}

// SubmitTransfer clicks send.
func (d *DAppPage) SubmitTransfer() error {
	return d.click("send", d.dapp.SendButton)
}

// ClickMint clicks mint.
func (d *DAppPage) ClickMint() error {
	return d.click("mint", d.dapp.MintButton)
}

// IsMintDisabled reports whether the mint button is rendered disabled.
func (d *DAppPage) IsMintDisabled() (bool, error) {
	sel := d.dapp.MintButton.Join()
	disabled, err := d.page.IsDisabled(sel)
	if err != nil {
		return false, classify(err, "read mint state", sel)
	}
	return disabled, nil
}

// GetNftCount waits for the gallery and counts the items in it.
func (d *DAppPage) GetNftCount() (int, error) {
	if _, err := d.read("nft_gallery", d.dapp.NFTGallery, galleryTimeout); err != nil {
		return 0, err
	}
	sel := descendants(d.dapp.NFTGallery, d.dapp.NFTItem)
	n, err := d.page.Count(sel)
	if err != nil {
		return 0, classify(err, "count nft items", sel)
	}
	d.logger.Debug("Counted NFTs", zap.Int("count", n))
	return n, nil
}

// FillSwapForm picks both tokens and enters the amount.
func (d *DAppPage) FillSwapForm(tokenIn, tokenOut, amount string) error {
	for _, s := range []struct {
		field string
		list  selectors.List
		value string
	}{
		{"token in", d.dapp.TokenIn, tokenIn},
		{"token out", d.dapp.TokenOut, tokenOut},
	} {
		sel := s.list.Join()
		if err := d.page.SelectOption(sel, s.value); err != nil {
			return classify(err, "select "+s.field, sel)
		}
	}
	return d.fill("swap amount", d.dapp.SwapAmount, amount)
}

// GetPriceImpact returns the rendered price impact, e.g. "0.3%".
func (d *DAppPage) GetPriceImpact() (string, error) {
	return d.read("price_impact", d.dapp.PriceImpact, priceImpactTimeout)
}

// SubmitSwap clicks swap.
func (d *DAppPage) SubmitSwap() error {
	return d.click("swap", d.dapp.SwapButton)
}

// GetLastTxHash returns the hash the dApp shows for its latest transaction.
func (d *DAppPage) GetLastTxHash() (string, error) {
	return d.read("tx_hash", d.dapp.TxHash, txHashTimeout)
}

// descendants scopes every child selector under every parent selector.
func descendants(parents, children selectors.List) string {
	var out []string
	for _, p := range parents {
		for _, c := range children {
			out = append(out, p+" "+c)
		}
	}
	return strings.Join(out, ", ")
}
