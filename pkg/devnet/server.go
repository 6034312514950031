package devnet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/chainsafe/dapp-e2e/internal/metrics"
)

const (
	maxRequestBody = 5 * 1024 * 1024
	// otherMethod labels calls to methods the server does not serve.
	otherMethod = "other"
)

// Server handles Ethereum JSON-RPC requests against a Ledger
type Server struct {
	ledger    *Ledger
	logger    *zap.Logger
	startTime time.Time
	rpcServer *rpc.Server
	methods   map[string]struct{}
}

// NewServer creates a new devnet JSON-RPC server
func NewServer(ledger *Ledger, logger *zap.Logger) (*Server, error) {
	s := &Server{
		ledger:    ledger,
		logger:    logger,
		startTime: time.Now(),
		rpcServer: rpc.NewServer(),
		methods:   map[string]struct{}{"rpc_modules": {}},
	}

	if err := s.register("eth", NewEthAPI(s)); err != nil {
		return nil, err
	}
	if err := s.register("net", &NetAPI{ledger: ledger}); err != nil {
		return nil, err
	}
	if err := s.register("web3", Web3API{}); err != nil {
		return nil, err
	}

	logger.Info("Devnet JSON-RPC server initialized",
		zap.Uint64("chain_id", ledger.ChainID()))

	return s, nil
}

// register exposes api under namespace and records its method names the
// way the rpc package derives them.
func (s *Server) register(namespace string, api interface{}) error {
	if err := s.rpcServer.RegisterName(namespace, api); err != nil {
		return fmt.Errorf("failed to register %s API: %w", namespace, err)
	}
	t := reflect.TypeOf(api)
	for i := 0; i < t.NumMethod(); i++ {
		name := t.Method(i).Name
		s.methods[namespace+"_"+strings.ToLower(name[:1])+name[1:]] = struct{}{}
	}
	return nil
}

// Ledger returns the state served by s
func (s *Server) Ledger() *Ledger {
	return s.ledger
}

// Stop shuts the RPC codec down
func (s *Server) Stop() {
	s.rpcServer.Stop()
}

// ServeHTTP handles HTTP requests
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method == http.MethodPost && r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			http.Error(w, "failed to read request", http.StatusBadRequest)
			return
		}
		_ = r.Body.Close()
		s.countMethods(body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	s.rpcServer.ServeHTTP(w, r)
}

type rpcEnvelope struct {
	Method string `json:"method"`
}

// countMethods records the method of each request in a single or batch call.
// Unknown methods share one label.
func (s *Server) countMethods(body []byte) {
	body = bytes.TrimSpace(body)
	var calls []rpcEnvelope
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &calls); err != nil {
			return
		}
	} else {
		var call rpcEnvelope
		if err := json.Unmarshal(body, &call); err != nil {
			return
		}
		calls = append(calls, call)
	}
	for _, c := range calls {
		if c.Method == "" {
			continue
		}
		method := c.Method
		if _, ok := s.methods[method]; !ok {
			method = otherMethod
		}
		metrics.DevnetCallsTotal.WithLabelValues(method).Inc()
	}
}
