package wallet

import (
	"strings"

	"go.uber.org/zap"

	"github.com/chainsafe/dapp-e2e/internal/metrics"
	"github.com/chainsafe/dapp-e2e/pkg/browser"
	"github.com/chainsafe/dapp-e2e/pkg/selectors"
)

// Detail sources, as reported by the field source metric.
const (
	SourceSelector = "selector"
	SourcePattern  = "pattern"
	SourceAbsent   = "absent"
)

// TransactionDetails is what a confirmation popup shows. A nil field was
// found neither by selector nor in the popup text.
type TransactionDetails struct {
	From    *string
	To      *string
	Amount  *string
	Network *string
	GasFee  *string
	Nonce   *string
}

// Field returns the value of a field by catalogue name.
func (d *TransactionDetails) Field(name string) *string {
	switch name {
	case selectors.FieldFrom:
		return d.From
	case selectors.FieldTo:
		return d.To
	case selectors.FieldAmount:
		return d.Amount
	case selectors.FieldNetwork:
		return d.Network
	case selectors.FieldGasFee:
		return d.GasFee
	case selectors.FieldNonce:
		return d.Nonce
	}
	return nil
}

func (d *TransactionDetails) set(name, value string) {
	v := &value
	switch name {
	case selectors.FieldFrom:
		d.From = v
	case selectors.FieldTo:
		d.To = v
	case selectors.FieldAmount:
		d.Amount = v
	case selectors.FieldNetwork:
		d.Network = v
	case selectors.FieldGasFee:
		d.GasFee = v
	case selectors.FieldNonce:
		d.Nonce = v
	}
}

// strategy yields a field value, or false when it has nothing.
type strategy struct {
	source string
	try    func() (string, bool)
}

// firstOf runs strategies in order and stops at the first value.
func firstOf(strategies []strategy) (value, source string) {
	for _, s := range strategies {
		if v, ok := s.try(); ok {
			return v, s.source
		}
	}
	return "", SourceAbsent
}

// ExtractTransactionDetails reads every detail field off popup. Each field
// tries its selectors in order, then its pattern over the popup text. Misses
// leave the field nil.
func (h *Helper) ExtractTransactionDetails(popup browser.Page) *TransactionDetails {
	body, err := popup.InnerText(h.body)
	if err != nil {
		h.logger.Debug("Popup text unavailable", zap.Error(err))
		body = ""
	}

	details := &TransactionDetails{}
	for _, field := range h.details {
		strategies := make([]strategy, 0, len(field.Selectors)+1)
		for _, sel := range field.Selectors {
			strategies = append(strategies, strategy{SourceSelector, h.fromSelector(popup, sel)})
		}
		if field.Pattern != nil {
			strategies = append(strategies, strategy{SourcePattern, fromPattern(field, body)})
		}

		value, source := firstOf(strategies)
		metrics.DetailFieldSource.WithLabelValues(field.Field, source).Inc()
		if source == SourceAbsent {
			continue
		}
		details.set(field.Field, value)
		h.logger.Debug("Transaction detail",
			zap.String("field", field.Field),
			zap.String("value", value),
			zap.String("source", source))
	}
	return details
}

func (h *Helper) fromSelector(popup browser.Page, sel string) func() (string, bool) {
	return func() (string, bool) {
		if !popup.IsVisible(sel, h.timeouts.DetailProbeTimeout) {
			return "", false
		}
		text, err := popup.Text(sel)
		if err != nil {
			return "", false
		}
		text = strings.TrimSpace(text)
		return text, text != ""
	}
}

func fromPattern(field selectors.CompiledField, body string) func() (string, bool) {
	return func() (string, bool) {
		for _, m := range field.Pattern.FindAllStringSubmatch(body, -1) {
			v := strings.TrimSpace(m[1])
			if v == "" || (field.Skip != nil && field.Skip.MatchString(v)) {
				continue
			}
			return v, true
		}
		return "", false
	}
}
