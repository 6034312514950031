package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values shared by the collectors below.
const (
	OutcomeSuccess = "success"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

var (
	// PopupWaitDuration tracks how long the wallet popup took to surface
	PopupWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "e2e_wallet_popup_wait_seconds",
			Help:    "Time spent waiting for a wallet popup window",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"outcome"},
	)

	// WalletActionsTotal counts wallet popup actions by outcome
	WalletActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "e2e_wallet_actions_total",
			Help: "Total number of wallet popup actions",
		},
		[]string{"action", "outcome"},
	)

	// PopupCloseTotal counts popup close waits; timed_out is not a failure
	PopupCloseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "e2e_wallet_popup_close_total",
			Help: "Total number of popup close waits by result",
		},
		[]string{"result"},
	)

	// DetailFieldSource counts where each transaction detail field came from
	DetailFieldSource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "e2e_transaction_detail_fields_total",
			Help: "Transaction detail fields by extraction source",
		},
		[]string{"field", "source"},
	)

	// PageReadsTotal counts page-object reads by element and outcome
	PageReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "e2e_page_reads_total",
			Help: "Total number of page-object element reads",
		},
		[]string{"element", "outcome"},
	)

	// ChainQueriesTotal counts read-only RPC queries issued by assertions
	ChainQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "e2e_chain_queries_total",
			Help: "Total number of on-chain queries",
		},
		[]string{"method", "outcome"},
	)

	// DevnetCallsTotal counts JSON-RPC calls served by the local devnet stub
	DevnetCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devnet_rpc_calls_total",
			Help: "Total number of JSON-RPC calls served by the devnet stub",
		},
		[]string{"method"},
	)

	// DevnetHeadBlock tracks the devnet head block number
	DevnetHeadBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "devnet_head_block",
			Help: "Current devnet head block number",
		},
	)
)

// Outcome maps an error to an outcome label.
func Outcome(err error, timeout bool) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case timeout:
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

// WriteTextfile writes the default registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
