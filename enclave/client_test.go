package enclave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

// fakeEnclave is a minimal in-process enclave REST server.
type fakeEnclave struct {
	groups   map[string]*PrivacyGroup
	lastSend map[string]interface{}
	lastAuth string
	lastID   string
}

func newFakeEnclave() *fakeEnclave {
	return &fakeEnclave{groups: make(map[string]*PrivacyGroup)}
}

func (f *fakeEnclave) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.lastAuth = r.Header.Get("Authorization")
	f.lastID = r.Header.Get("X-Request-Id")
	reply := func(v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
	fail := func(status int, msg string) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(errorResponse{Error: msg})
	}
	switch r.URL.Path {
	case "/upcheck":
		w.Write([]byte("I'm up!"))
	case "/send":
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		f.lastSend = req
		if req["payload"] == "" {
			fail(http.StatusBadRequest, "empty payload")
			return
		}
		reply(SendResponse{Key: "c2VuZC1rZXk="})
	case "/createPrivacyGroup":
		var req createPrivacyGroupRequest
		json.NewDecoder(r.Body).Decode(&req)
		g := &PrivacyGroup{ID: "group-" + req.Name, Name: req.Name, Description: req.Description, Type: GroupTypeOnchainGrouped, Members: req.Addresses}
		f.groups[g.ID] = g
		reply(g)
	case "/deletePrivacyGroup":
		var req deletePrivacyGroupRequest
		json.NewDecoder(r.Body).Decode(&req)
		delete(f.groups, req.PrivacyGroupID)
		reply(req.PrivacyGroupID)
	case "/findPrivacyGroup":
		var req findPrivacyGroupRequest
		json.NewDecoder(r.Body).Decode(&req)
		found := []*PrivacyGroup{}
		for _, g := range f.groups {
			if len(g.Members) == len(req.Addresses) {
				found = append(found, g)
			}
		}
		reply(found)
	case "/retrievePrivacyGroup":
		var req retrievePrivacyGroupRequest
		json.NewDecoder(r.Body).Decode(&req)
		g, ok := f.groups[req.PrivacyGroupID]
		if !ok {
			fail(http.StatusNotFound, "privacy group not found")
			return
		}
		reply(g)
	default:
		fail(http.StatusNotFound, "no such endpoint")
	}
}

func newTestClient(t *testing.T, f *fakeEnclave) *Client {
	t.Helper()
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	c, err := NewClient(Config{URL: server.URL + "/", RequestTimeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func TestSendToRecipients(t *testing.T) {
	f := newFakeEnclave()
	c := newTestClient(t, f)

	resp, err := c.Send(context.Background(), "cGF5bG9hZA==", "from-key", []string{"to-a", "to-b"})
	require.NoError(t, err)
	require.Equal(t, "c2VuZC1rZXk=", resp.Key)
	require.Equal(t, "cGF5bG9hZA==", f.lastSend["payload"])
	require.Equal(t, "from-key", f.lastSend["from"])
	require.Equal(t, []interface{}{"to-a", "to-b"}, f.lastSend["to"])
	require.NotContains(t, f.lastSend, "privacyGroupId")
	require.NotEmpty(t, f.lastID)
	require.Empty(t, f.lastAuth)
}

func TestSendToGroup(t *testing.T) {
	f := newFakeEnclave()
	c := newTestClient(t, f)

	resp, err := c.SendToGroup(context.Background(), "cGF5bG9hZA==", "user", "Z3JvdXA=")
	require.NoError(t, err)
	require.Equal(t, "c2VuZC1rZXk=", resp.Key)
	require.Equal(t, "Z3JvdXA=", f.lastSend["privacyGroupId"])
	require.NotContains(t, f.lastSend, "to")
}

func TestErrorResponse(t *testing.T) {
	c := newTestClient(t, newFakeEnclave())

	_, err := c.Send(context.Background(), "", "from", nil)
	var reqErr *Error
	require.True(t, errors.As(err, &reqErr), "unexpected error type: %v", err)
	require.Equal(t, http.StatusBadRequest, reqErr.Status)
	require.Equal(t, "empty payload", reqErr.Message)
}

func TestPrivacyGroupLifecycle(t *testing.T) {
	c := newTestClient(t, newFakeEnclave())
	ctx := context.Background()

	group, err := c.CreatePrivacyGroup(ctx, []string{"alice", "bob"}, "alice", "g1", "first group")
	require.NoError(t, err)
	require.Equal(t, "group-g1", group.ID)
	require.Equal(t, GroupTypeOnchainGrouped, group.Type)
	require.True(t, group.Contains("bob"))
	require.False(t, group.Contains("carol"))

	got, err := c.RetrievePrivacyGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, group, got)

	found, err := c.FindPrivacyGroup(ctx, []string{"alice", "bob"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	deleted, err := c.DeletePrivacyGroup(ctx, group.ID, "alice")
	require.NoError(t, err)
	require.Equal(t, group.ID, deleted)

	_, err = c.RetrievePrivacyGroup(ctx, group.ID)
	require.True(t, errors.Is(err, ErrPrivacyGroupNotFound), "unexpected error: %v", err)
}

func TestUpcheck(t *testing.T) {
	c := newTestClient(t, newFakeEnclave())
	require.NoError(t, c.Upcheck(context.Background()))
}

func TestUnknownGroupTypeRejected(t *testing.T) {
	var g PrivacyGroup
	err := json.Unmarshal([]byte(`{"privacyGroupId":"x","type":"FLEXIBLE"}`), &g)
	require.Error(t, err)
	require.NoError(t, json.Unmarshal([]byte(`{"privacyGroupId":"x","type":"LEGACY"}`), &g))
	require.Equal(t, GroupTypeLegacy, g.Type)
}

func TestJWTHeaderInjected(t *testing.T) {
	f := newFakeEnclave()
	server := httptest.NewServer(f)
	defer server.Close()

	secret := bytes.Repeat([]byte{0x11}, 32)
	secretPath := filepath.Join(t.TempDir(), "jwtsecret")
	if err := os.WriteFile(secretPath, []byte(hexutil.Encode(secret)), 0600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	c, err := NewClient(Config{URL: server.URL, JWTSecretFile: secretPath, RequestTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	if err := c.Upcheck(context.Background()); err != nil {
		t.Fatalf("upcheck failed: %v", err)
	}
	if !strings.HasPrefix(f.lastAuth, "Bearer ") {
		t.Fatalf("missing bearer auth header: %q", f.lastAuth)
	}
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(f.lastAuth, "Bearer "), &claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
	if err != nil {
		t.Fatalf("parse auth token: %v", err)
	}
	if !token.Valid || claims.IssuedAt == nil {
		t.Fatalf("invalid token claims: %+v", claims)
	}
}

func TestInvalidJWTSecret(t *testing.T) {
	secretPath := filepath.Join(t.TempDir(), "jwtsecret")
	if err := os.WriteFile(secretPath, []byte("0x1234"), 0600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	if _, err := NewClient(Config{URL: "http://127.0.0.1:1", JWTSecretFile: secretPath}); !errors.Is(err, ErrInvalidJWTSecret) {
		t.Fatalf("expected ErrInvalidJWTSecret, got %v", err)
	}
}

func TestRequestDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c, err := NewClient(Config{URL: server.URL, RequestTimeout: 2 * time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	require.Error(t, c.Upcheck(ctx))
	require.Less(t, time.Since(start), time.Second, "context deadline ignored")
}

func TestCanceledContext(t *testing.T) {
	f := newFakeEnclave()
	c := newTestClient(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Send(ctx, "cGF5bG9hZA==", "from", nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, f.lastSend)
}
