package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/radio-control/keyer/internal/auth"
	"github.com/radio-control/keyer/internal/config"
	"github.com/radio-control/keyer/internal/serialport/fake"
	"github.com/radio-control/keyer/internal/session"
)

func startServer(t *testing.T, cidrs []string, opts ...Option) (*Server, *fake.Port) {
	t.Helper()
	port := fake.NewPort()
	keyer := session.New(port, zaptest.NewLogger(t))
	server := NewServer(config.ControlConfig{Port: 0, AllowedCIDRs: cidrs}, keyer, zaptest.NewLogger(t), opts...)
	require.NoError(t, server.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		server.Close()
	})
	return server, port
}

func call(t *testing.T, server *Server, raw string) map[string]interface{} {
	t.Helper()
	tcpAddr := server.Addr().(*net.TCPAddr)
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", tcpAddr.Port))
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	_, err = conn.Write([]byte(raw + "\n"))
	require.NoError(t, err)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	return resp
}

func request(method string, params ...string) string {
	return authedRequest("", method, params...)
}

func authedRequest(token, method string, params ...string) string {
	req := Request{JSONRPC: "2.0", Method: method, Params: params, Token: token, ID: "test-1"}
	data, _ := json.Marshal(req)
	return string(data)
}

func TestMethodsMapToFrames(t *testing.T) {
	server, port := startServer(t, []string{"127.0.0.0/8"})

	for _, raw := range []string{
		request("open"),
		request("key", "dah"),
		request("key"),
		request("speed", "25"),
		request("echo", "0x88"),
		request("raw", "0x13"),
		request("close"),
	} {
		resp := call(t, server, raw)
		assert.Equal(t, "OK", resp["result"], raw)
		assert.Equal(t, "test-1", resp["id"])
		assert.Nil(t, resp["error"])
	}

	assert.Equal(t, [][]byte{
		{0x00, 0x02},
		{0x14, 0x02},
		{0x14, 0x00},
		{0x02, 25},
		{0x00, 0x04, 0x88},
		{0x13},
		{0x00, 0x03},
	}, port.Frames())
}

func TestStatus(t *testing.T) {
	server, _ := startServer(t, []string{"127.0.0.0/8"})

	call(t, server, request("open"))
	call(t, server, request("key", "dit"))

	resp := call(t, server, request("status"))
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok, "%v", resp)
	assert.Equal(t, true, result["open"])
	assert.Equal(t, "dit", result["key"])
	assert.Equal(t, float64(2), result["frames"])
	assert.Equal(t, "DoKey", result["lastCommand"])
}

func TestProtocolErrors(t *testing.T) {
	server, port := startServer(t, []string{"127.0.0.0/8"})

	resp := call(t, server, "{not json")
	assert.Equal(t, float64(-32700), resp["error"].(map[string]interface{})["code"])

	resp = call(t, server, `{"jsonrpc":"1.0","method":"open","id":7}`)
	assert.Equal(t, float64(-32600), resp["error"].(map[string]interface{})["code"])
	assert.Equal(t, float64(7), resp["id"])

	resp = call(t, server, request("zeroize"))
	assert.Equal(t, "Method not found", resp["error"])

	for _, raw := range []string{
		request("key", "squeeze"),
		request("speed"),
		request("speed", "300"),
		request("echo", "x"),
	} {
		resp = call(t, server, raw)
		errObj, ok := resp["error"].(map[string]interface{})
		require.True(t, ok, raw)
		assert.Equal(t, float64(-32602), errObj["code"], raw)
	}

	assert.Empty(t, port.Frames())
}

func TestCommandErrorIsReported(t *testing.T) {
	server, port := startServer(t, []string{"127.0.0.0/8"})
	port.SetErrorSimulation("UNAVAILABLE")

	resp := call(t, server, request("open"))
	assert.Contains(t, resp["error"], "UNAVAILABLE")
}

func TestRejectsOutsideAllowlist(t *testing.T) {
	server, port := startServer(t, []string{"10.0.0.0/8"})

	tcpAddr := server.Addr().(*net.TCPAddr)
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", tcpAddr.Port))
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	conn.Write([]byte(request("open") + "\n"))

	var resp map[string]interface{}
	assert.Error(t, json.NewDecoder(conn).Decode(&resp), "connection closed without a response")
	assert.Empty(t, port.Frames())
}

type mockConn struct {
	net.Conn
	remoteAddr string
}

type mockAddr string

func (a mockAddr) Network() string { return "tcp" }
func (a mockAddr) String() string  { return string(a) }

func (c *mockConn) RemoteAddr() net.Addr { return mockAddr(c.remoteAddr) }

func TestIsAllowedConnection(t *testing.T) {
	server := NewServer(config.ControlConfig{AllowedCIDRs: []string{"127.0.0.0/8", "172.20.0.0/16", "bogus"}}, nil, nil)

	tests := []struct {
		name        string
		remoteAddr  string
		expectAllow bool
	}{
		{"localhost IPv4", "127.0.0.1:12345", true},
		{"localhost IPv6", "[::1]:12345", false},
		{"radio network", "172.20.1.10:12345", true},
		{"outside network", "192.168.1.1:12345", false},
		{"invalid address", "invalid", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &mockConn{remoteAddr: tt.remoteAddr}
			assert.Equal(t, tt.expectAllow, server.isAllowedConnection(conn))
		})
	}
}

func TestServeBeforeListen(t *testing.T) {
	server := NewServer(config.ControlConfig{}, nil, nil)
	assert.Nil(t, server.Addr())
	assert.Error(t, server.Serve(context.Background()))
}

func TestByteParam(t *testing.T) {
	tests := []struct {
		in      string
		want    byte
		wantErr bool
	}{
		{"25", 25, false},
		{"0x88", 0x88, false},
		{"255", 255, false},
		{"256", 0, true},
		{"-1", 0, true},
	}
	for _, tt := range tests {
		got, err := byteParam([]string{tt.in})
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func token(t *testing.T, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "operator",
		"roles": []string{role},
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("control-secret"))
	require.NoError(t, err)
	return signed
}

func TestTokenRequired(t *testing.T) {
	verifier, err := auth.NewVerifier(auth.VerifierConfig{Algorithm: "HS256", SecretKey: "control-secret"})
	require.NoError(t, err)
	server, port := startServer(t, []string{"127.0.0.0/8"}, WithVerifier(verifier))

	resp := call(t, server, request("open"))
	assert.Equal(t, float64(-32001), resp["error"].(map[string]interface{})["code"])

	resp = call(t, server, authedRequest(token(t, auth.RoleViewer), "open"))
	assert.Equal(t, float64(-32003), resp["error"].(map[string]interface{})["code"])

	resp = call(t, server, authedRequest(token(t, auth.RoleViewer), "status"))
	assert.Nil(t, resp["error"])

	resp = call(t, server, authedRequest(token(t, auth.RoleController), "open"))
	assert.Equal(t, "OK", resp["result"])

	resp = call(t, server, authedRequest(token(t, auth.RoleController), "zeroize"))
	assert.Equal(t, "Method not found", resp["error"])

	assert.Equal(t, [][]byte{{0x00, 0x02}}, port.Frames())
}

// slowKeyer holds Open long enough for a shutdown to overlap it.
type slowKeyer struct {
	Keyer
	started  chan struct{}
	finished atomic.Bool
}

func (k *slowKeyer) Open(ctx context.Context) error {
	close(k.started)
	time.Sleep(300 * time.Millisecond)
	k.finished.Store(true)
	return nil
}

func TestServeWaitsForInFlightRequests(t *testing.T) {
	keyer := &slowKeyer{started: make(chan struct{})}
	server := NewServer(config.ControlConfig{AllowedCIDRs: []string{"127.0.0.0/8"}}, keyer, zaptest.NewLogger(t))
	require.NoError(t, server.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	tcpAddr := server.Addr().(*net.TCPAddr)
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", tcpAddr.Port))
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte(request("open") + "\n"))
	require.NoError(t, err)

	<-keyer.started
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	assert.True(t, keyer.finished.Load(), "Serve returned before the handler finished")

	// Connections after shutdown are refused.
	_, err = net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", tcpAddr.Port), time.Second)
	assert.Error(t, err)
}
