// Package selectors holds the CSS/text selector catalogue used by the page
// objects and the wallet helper. The catalogue is embedded and can be
// overlaid by a YAML file when the dApp or the wallet UI drifts.
package selectors

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Transaction detail field names, in extraction order.
const (
	FieldFrom    = "from"
	FieldTo      = "to"
	FieldAmount  = "amount"
	FieldNetwork = "network"
	FieldGasFee  = "gasFee"
	FieldNonce   = "nonce"
)

// List is an ordered set of alternative selectors for one element.
type List []string

// Join renders the list as one CSS selector group.
func (l List) Join() string {
	return strings.Join(l, ", ")
}

// Catalog is the full selector set.
type Catalog struct {
	Base   BaseSelectors   `yaml:"base"`
	DApp   DAppSelectors   `yaml:"dapp"`
	Wallet WalletSelectors `yaml:"wallet"`
}

// BaseSelectors are indicators shared by every dApp page.
type BaseSelectors struct {
	TxSuccess         List `yaml:"tx_success"`
	Toast             List `yaml:"toast"`
	Error             List `yaml:"error"`
	InsufficientFunds List `yaml:"insufficient_funds"`
	WrongNetwork      List `yaml:"wrong_network"`
}

// DAppSelectors target the dApp controls and read-outs.
type DAppSelectors struct {
	ConnectWallet  List `yaml:"connect_wallet"`
	WalletAddress  List `yaml:"wallet_address"`
	Balance        List `yaml:"balance"`
	NetworkName    List `yaml:"network_name"`
	Disconnect     List `yaml:"disconnect"`
	RecipientInput List `yaml:"recipient_input"`
	AmountInput    List `yaml:"amount_input"`
	SendButton     List `yaml:"send_button"`
	MintButton     List `yaml:"mint_button"`
	NFTGallery     List `yaml:"nft_gallery"`
	NFTItem        List `yaml:"nft_item"`
	TokenIn        List `yaml:"token_in"`
	TokenOut       List `yaml:"token_out"`
	SwapAmount     List `yaml:"swap_amount"`
	SwapButton     List `yaml:"swap_button"`
	PriceImpact    List `yaml:"price_impact"`
	TxHash         List `yaml:"tx_hash"`
}

// WalletSelectors target the wallet extension popup.
type WalletSelectors struct {
	Body    string        `yaml:"body"`
	Buttons WalletButtons `yaml:"buttons"`
	Details []FieldRule   `yaml:"details"`
}

// WalletButtons are the popup controls, one list per action.
type WalletButtons struct {
	Next            List `yaml:"next"`
	Connect         List `yaml:"connect"`
	Confirm         List `yaml:"confirm"`
	Sign            List `yaml:"sign"`
	Reject          List `yaml:"reject"`
	SwitchNetwork   List `yaml:"switch_network"`
	ApproveSpending List `yaml:"approve_spending"`
}

// FieldRule describes how one transaction detail field is located. Pattern
// matches whose capture also matches Skip are passed over in favour of the
// next match.
type FieldRule struct {
	Field     string `yaml:"field"`
	Selectors List   `yaml:"selectors"`
	Pattern   string `yaml:"pattern"`
	Skip      string `yaml:"skip"`
}

// CompiledField is a FieldRule with its patterns compiled.
type CompiledField struct {
	Field     string
	Selectors List
	Pattern   *regexp.Regexp
	Skip      *regexp.Regexp
}

// Default returns the embedded catalogue.
func Default() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(defaultCatalog, &c); err != nil {
		return nil, fmt.Errorf("parse embedded selector catalogue: %w", err)
	}
	return &c, nil
}

// Load returns the embedded catalogue overlaid with the YAML file at path.
// Keys present in the file replace the embedded lists wholesale; an empty
// path returns the embedded catalogue.
func Load(path string) (*Catalog, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, c.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selector overrides: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse selector overrides %s: %w", path, err)
	}
	return c, c.Validate()
}

// Validate checks every control has at least one selector and every detail
// pattern compiles with a capturing group.
func (c *Catalog) Validate() error {
	required := map[string]List{
		"base.tx_success":                 c.Base.TxSuccess,
		"base.toast":                      c.Base.Toast,
		"dapp.connect_wallet":             c.DApp.ConnectWallet,
		"dapp.wallet_address":             c.DApp.WalletAddress,
		"dapp.balance":                    c.DApp.Balance,
		"dapp.network_name":               c.DApp.NetworkName,
		"wallet.buttons.connect":          c.Wallet.Buttons.Connect,
		"wallet.buttons.confirm":          c.Wallet.Buttons.Confirm,
		"wallet.buttons.sign":             c.Wallet.Buttons.Sign,
		"wallet.buttons.reject":           c.Wallet.Buttons.Reject,
		"wallet.buttons.switch_network":   c.Wallet.Buttons.SwitchNetwork,
		"wallet.buttons.approve_spending": c.Wallet.Buttons.ApproveSpending,
	}
	for key, list := range required {
		if len(list) == 0 {
			return fmt.Errorf("selector catalogue: %s is empty", key)
		}
	}
	_, err := c.Wallet.CompileDetails()
	return err
}

// CompileDetails compiles the detail rules in catalogue order.
func (w *WalletSelectors) CompileDetails() ([]CompiledField, error) {
	out := make([]CompiledField, 0, len(w.Details))
	for _, rule := range w.Details {
		if rule.Field == "" {
			return nil, fmt.Errorf("selector catalogue: detail rule without field name")
		}
		cf := CompiledField{Field: rule.Field, Selectors: rule.Selectors}
		if rule.Pattern != "" {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("selector catalogue: %s pattern: %w", rule.Field, err)
			}
			if re.NumSubexp() < 1 {
				return nil, fmt.Errorf("selector catalogue: %s pattern has no capturing group", rule.Field)
			}
			cf.Pattern = re
		}
		if rule.Skip != "" {
			re, err := regexp.Compile(rule.Skip)
			if err != nil {
				return nil, fmt.Errorf("selector catalogue: %s skip pattern: %w", rule.Field, err)
			}
			cf.Skip = re
		}
		out = append(out, cf)
	}
	return out, nil
}
