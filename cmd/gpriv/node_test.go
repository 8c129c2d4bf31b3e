package main

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
	"github.com/tos-network/gpriv/privacy"
)

func newTestNode(t *testing.T, up *atomic.Bool, cors ...string) *privacyNode {
	t.Helper()
	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/upcheck" && up.Load() {
			w.Write([]byte("I'm up!"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(fake.Close)

	cfg := defaultConfig()
	cfg.Privacy.UserID = base64.StdEncoding.EncodeToString(cmdFrom)
	cfg.Enclave.URL = fake.URL
	cfg.RPC.Port = 0
	cfg.RPC.CorsDomains = cors

	node, err := newPrivacyNode(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, node.Start())
	t.Cleanup(func() { node.Close() })
	return node
}

func TestNodeServesHTTPAndWebSocket(t *testing.T) {
	var up atomic.Bool
	node := newTestNode(t, &up)
	group := base64.StdEncoding.EncodeToString(cmdGroup)
	want := privacy.PrivateContractAddress(cmdSender, 1, cmdGroup)

	for _, url := range []string{"http://" + node.addr.String(), "ws://" + node.addr.String()} {
		client, err := rpc.DialContext(context.Background(), url)
		require.NoError(t, err, url)

		var have common.Address
		require.NoError(t, client.Call(&have, "priv_getPrivateContractAddress", cmdSender, hexutil.Uint64(1), group), url)
		require.Equal(t, want, have, url)
		client.Close()
	}
}

func TestNodeWithoutStateReader(t *testing.T) {
	var up atomic.Bool
	node := newTestNode(t, &up)

	client, err := rpc.Dial("http://" + node.addr.String())
	require.NoError(t, err)
	defer client.Close()

	var value *common.Hash
	err = client.Call(&value, "eth_getStorageAt", cmdSender, "0x0", "latest")
	var rpcErr rpc.Error
	require.True(t, errors.As(err, &rpcErr), "unexpected error %v", err)
	require.Equal(t, -32601, rpcErr.ErrorCode())
}

func TestNodeLiveness(t *testing.T) {
	var up atomic.Bool
	node := newTestNode(t, &up)
	url := "http://" + node.addr.String() + "/liveness"

	resp, err := http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	up.Store(true)
	resp, err = http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNodeCors(t *testing.T) {
	var up atomic.Bool
	node := newTestNode(t, &up, "https://dapp.example")

	req, err := http.NewRequest(http.MethodOptions, "http://"+node.addr.String(), nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://dapp.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "https://dapp.example", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestNodeRequiresUserID(t *testing.T) {
	cfg := defaultConfig()
	_, err := newPrivacyNode(context.Background(), cfg)
	require.ErrorIs(t, err, errMissingUserID)

	cfg.Privacy.UserID = "not base64!"
	_, err = newPrivacyNode(context.Background(), cfg)
	require.Error(t, err)
}
