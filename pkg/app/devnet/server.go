// Package devnet implements app.Runner for the local devnet process.
package devnet

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chainsafe/dapp-e2e/pkg/app"
	"github.com/chainsafe/dapp-e2e/pkg/app/httpserver"
	"github.com/chainsafe/dapp-e2e/pkg/config"
	"github.com/chainsafe/dapp-e2e/pkg/devnet"
)

const (
	defaultHTTPMiddlewareTimeout = 60 * time.Second
	defaultHTTPReadTimeout       = 15 * time.Second
	defaultHTTPWriteTimeout      = 15 * time.Second
	defaultHTTPIdleTimeout       = 60 * time.Second

	defaultTokenSymbol   = "TEST"
	defaultTokenDecimals = 18
)

// DefaultAccounts are the first three well-known development accounts,
// prefunded when no accounts are configured.
var DefaultAccounts = []string{
	"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
	"0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
	"0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
}

// Server holds configuration for the devnet process.
type Server struct {
	cfg *config.Config
}

var _ app.Runner = (*Server)(nil)

// NewServer initializes a new devnet Server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Run seeds the ledger and serves JSON-RPC until an OS shutdown signal is
// received or a fatal server error occurs.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("nil config")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting devnet", zap.Uint64("chain_id", cfg.Devnet.ChainID))

	ledger, err := NewLedger(cfg, logger)
	if err != nil {
		return err
	}

	rpcServer, err := devnet.NewServer(ledger, logger)
	if err != nil {
		return fmt.Errorf("initialize devnet rpc: %w", err)
	}
	defer rpcServer.Stop()

	httpServer := newHTTPServer(cfg.Devnet.DevnetAddress(), NewRouter(rpcServer, ledger))

	return httpserver.Serve(ctx, logger, httpServer, nil, cfg.Devnet.ShutdownTimeout)
}

// NewLedger builds a ledger with the configured accounts prefunded and the
// dApp's token and NFT contracts registered.
func NewLedger(cfg *config.Config, logger *zap.Logger) (*devnet.Ledger, error) {
	prefund, ok := new(big.Int).SetString(cfg.Devnet.PrefundWei, 10)
	if !ok {
		return nil, fmt.Errorf("invalid devnet.prefund_wei %q", cfg.Devnet.PrefundWei)
	}

	ledger := devnet.NewLedger(cfg.Devnet.ChainID)

	accounts := cfg.Devnet.PrefundedAccounts
	if len(accounts) == 0 {
		accounts = DefaultAccounts
	}
	for _, acct := range accounts {
		ledger.SetBalance(common.HexToAddress(acct), prefund)
	}

	if token := common.HexToAddress(cfg.DApp.TokenContract); token != (common.Address{}) {
		ledger.RegisterToken(token, defaultTokenSymbol, defaultTokenDecimals)
		for _, acct := range accounts {
			if err := ledger.SetTokenBalance(token, common.HexToAddress(acct), prefund); err != nil {
				return nil, err
			}
		}
		logger.Info("Registered token contract", zap.String("address", token.Hex()))
	}
	if nft := common.HexToAddress(cfg.DApp.NFTContract); nft != (common.Address{}) {
		ledger.RegisterCollection(nft)
		logger.Info("Registered NFT contract", zap.String("address", nft.Hex()))
	}

	logger.Info("Ledger seeded",
		zap.Int("accounts", len(accounts)),
		zap.String("prefund_wei", prefund.String()))
	return ledger, nil
}

// NewRouter mounts the JSON-RPC handler at / and /rpc next to the
// operational endpoints.
func NewRouter(rpcServer http.Handler, ledger *devnet.Ledger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultHTTPMiddlewareTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintf(w, "chain_id=%d head=%d\n", ledger.ChainID(), ledger.Head())
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Handle("/", rpcServer)
	r.Handle("/rpc", rpcServer)

	return r
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  defaultHTTPReadTimeout,
		WriteTimeout: defaultHTTPWriteTimeout,
		IdleTimeout:  defaultHTTPIdleTimeout,
	}
}
