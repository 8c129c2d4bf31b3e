package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/tos-network/gpriv/enclave"
	"github.com/tos-network/gpriv/internal/privapi"
	"github.com/tos-network/gpriv/privacy"
	"github.com/tos-network/gpriv/privacy/extstore"
)

const livenessTimeout = 5 * time.Second

var errMissingUserID = errors.New("missing privacy user id")

// privacyNode wires the privacy controller to its collaborators and serves
// it over HTTP and WebSocket JSON-RPC.
type privacyNode struct {
	cfg     gprivConfig
	store   *extstore.Store
	enclave *enclave.Client
	state   *privapi.RemoteState
	rpc     *rpc.Server
	http    *http.Server
	addr    net.Addr
	log     log.Logger
}

func newPrivacyNode(ctx context.Context, cfg gprivConfig) (*privacyNode, error) {
	if cfg.Privacy.UserID == "" {
		return nil, errMissingUserID
	}
	if _, err := base64.StdEncoding.DecodeString(cfg.Privacy.UserID); err != nil {
		return nil, fmt.Errorf("invalid privacy user id: %v", err)
	}
	client, err := enclave.NewClient(cfg.Enclave)
	if err != nil {
		return nil, err
	}
	store, err := cfg.Privacy.OpenStore()
	if err != nil {
		return nil, err
	}
	n := &privacyNode{
		cfg:     cfg,
		store:   store,
		enclave: client,
		rpc:     rpc.NewServer(),
		log:     log.New("module", "node"),
	}
	var state privapi.StateReader
	if cfg.RPC.StateRPC != "" {
		remote, err := privapi.DialRemoteState(ctx, cfg.RPC.StateRPC)
		if err != nil {
			store.Close()
			return nil, err
		}
		n.state, state = remote, remote
	}
	controller := privacy.NewRestrictedController(client, store, nil)
	for _, api := range privapi.APIs(controller, store, state, cfg.Privacy.UserID) {
		if err := n.rpc.RegisterName(api.Namespace, api.Service); err != nil {
			n.Close()
			return nil, err
		}
	}
	return n, nil
}

// handler returns the HTTP handler of the node: JSON-RPC over POST and
// WebSocket on "/", and the liveness probe on "/liveness".
func (n *privacyNode) handler() http.Handler {
	ws := n.rpc.WebsocketHandler(n.cfg.RPC.WSOrigins)

	router := httprouter.New()
	router.Handler(http.MethodPost, "/", n.rpc)
	router.GET("/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if websocket.IsWebSocketUpgrade(r) {
			ws.ServeHTTP(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})
	router.GET("/liveness", n.liveness)
	return newCorsHandler(router, n.cfg.RPC.CorsDomains)
}

func (n *privacyNode) liveness(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), livenessTimeout)
	defer cancel()

	if err := n.enclave.Upcheck(ctx); err != nil {
		n.log.Debug("Enclave upcheck failed", "err", err)
		http.Error(w, "enclave unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("OK"))
}

func newCorsHandler(srv http.Handler, allowedOrigins []string) http.Handler {
	// disable CORS support if user has not specified a custom CORS configuration
	if len(allowedOrigins) == 0 {
		return srv
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
	return c.Handler(srv)
}

// Start opens the listener and starts serving requests.
func (n *privacyNode) Start() error {
	listener, err := net.Listen("tcp", n.cfg.RPC.Endpoint())
	if err != nil {
		return err
	}
	n.addr = listener.Addr()
	n.http = &http.Server{
		Handler:      n.handler(),
		ReadTimeout:  n.cfg.RPC.ReadTimeout,
		WriteTimeout: n.cfg.RPC.WriteTimeout,
	}
	go n.http.Serve(listener)
	n.log.Info("Privacy RPC server started", "endpoint", n.addr, "enclave", n.cfg.Enclave.URL, "cors", n.cfg.RPC.CorsDomains)
	return nil
}

// Close stops the server and releases the store and state connections.
func (n *privacyNode) Close() error {
	if n.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n.http.Shutdown(ctx)
		n.log.Info("Privacy RPC server stopped", "endpoint", n.addr)
	}
	n.rpc.Stop()
	if n.state != nil {
		n.state.Close()
	}
	return n.store.Close()
}
