package stunagent

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/pion/stun/v3"
	"github.com/stretchr/testify/require"

	"github.com/loonwerks/rtcgate/internal/ice"
)

func newUDPSocket(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestAgentAnswersBindingRequest(t *testing.T) {
	serverSocket := newUDPSocket(t)
	peerSocket := newUDPSocket(t)

	local := ice.Credentials{Ufrag: "locl", Pwd: "localpassword0123456789"}
	peer := ice.Credentials{Ufrag: "peer", Pwd: "peerpassword01234567890"}

	agent := New(serverSocket, local, peer, logging.NewDefaultLoggerFactory().NewLogger("test"), nil)

	serverAddr := serverSocket.LocalAddr().(*net.UDPAddr)

	req := new(stun.Message)
	req.Type = typeBindingRequest
	req.WriteHeader()
	require.NoError(t, stun.NewUsername(local.Ufrag+":"+peer.Ufrag).AddTo(req))
	require.NoError(t, stun.NewShortTermIntegrity(local.Pwd).AddTo(req))
	require.NoError(t, stun.Fingerprint.AddTo(req))

	_, err := peerSocket.WriteToUDP(req.Raw, serverAddr)
	require.NoError(t, err)

	buf := make([]byte, 1500)
	require.NoError(t, serverSocket.SetReadDeadline(time.Now().Add(time.Second)))
	n, from, err := serverSocket.ReadFromUDP(buf)
	require.NoError(t, err)

	agent.HandleMessage(buf[:n], from, nil)

	require.NoError(t, peerSocket.SetReadDeadline(time.Now().Add(time.Second)))
	n, _, err = peerSocket.ReadFromUDP(buf)
	require.NoError(t, err)

	resp := &stun.Message{Raw: append([]byte(nil), buf[:n]...)}
	require.NoError(t, resp.Decode())
	require.Equal(t, typeBindingSuccess, resp.Type)
	require.NoError(t, stun.NewShortTermIntegrity(local.Pwd).Check(resp))
	require.NoError(t, stun.Fingerprint.Check(resp))
}

func TestAgentRejectsBadIntegrity(t *testing.T) {
	serverSocket := newUDPSocket(t)
	peerSocket := newUDPSocket(t)

	local := ice.Credentials{Ufrag: "locl", Pwd: "localpassword0123456789"}
	peer := ice.Credentials{Ufrag: "peer", Pwd: "peerpassword01234567890"}
	agent := New(serverSocket, local, peer, logging.NewDefaultLoggerFactory().NewLogger("test"), nil)
	serverAddr := serverSocket.LocalAddr().(*net.UDPAddr)

	req := new(stun.Message)
	req.Type = typeBindingRequest
	req.WriteHeader()
	require.NoError(t, stun.NewUsername(local.Ufrag+":"+peer.Ufrag).AddTo(req))
	require.NoError(t, stun.NewShortTermIntegrity("wrong-password-wrong-pass").AddTo(req))
	require.NoError(t, stun.Fingerprint.AddTo(req))

	_, err := peerSocket.WriteToUDP(req.Raw, serverAddr)
	require.NoError(t, err)

	buf := make([]byte, 1500)
	require.NoError(t, serverSocket.SetReadDeadline(time.Now().Add(time.Second)))
	n, from, err := serverSocket.ReadFromUDP(buf)
	require.NoError(t, err)
	agent.HandleMessage(buf[:n], from, nil)

	require.NoError(t, peerSocket.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = peerSocket.ReadFromUDP(buf)
	require.Error(t, err)
}

func TestAgentSendCheckTriggersConnectedOnSuccess(t *testing.T) {
	serverSocket := newUDPSocket(t)
	peerSocket := newUDPSocket(t)

	local := ice.Credentials{Ufrag: "locl", Pwd: "localpassword0123456789"}
	peer := ice.Credentials{Ufrag: "peer", Pwd: "peerpassword01234567890"}
	agent := New(serverSocket, local, peer, logging.NewDefaultLoggerFactory().NewLogger("test"), nil)

	peerAddr := peerSocket.LocalAddr().(*net.UDPAddr)
	set := ice.NewSet()
	set.Push(ice.Candidate{Address: peerAddr.IP, Port: peerAddr.Port, Priority: 2113937151, Type: ice.CandidateTypeHost})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				agent.sendCheck(set)
			}
		}
	}()

	buf := make([]byte, 1500)
	require.NoError(t, peerSocket.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, from, err := peerSocket.ReadFromUDP(buf)
	require.NoError(t, err)

	req := &stun.Message{Raw: append([]byte(nil), buf[:n]...)}
	require.NoError(t, req.Decode())
	require.NoError(t, stun.NewShortTermIntegrity(peer.Pwd).Check(req))

	resp := new(stun.Message)
	resp.TransactionID = req.TransactionID
	resp.Type = typeBindingSuccess
	resp.WriteHeader()
	require.NoError(t, stun.NewShortTermIntegrity(peer.Pwd).AddTo(resp))
	require.NoError(t, stun.Fingerprint.AddTo(resp))
	_, err = peerSocket.WriteToUDP(resp.Raw, from)
	require.NoError(t, err)

	require.NoError(t, serverSocket.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, from, err = serverSocket.ReadFromUDP(buf)
	require.NoError(t, err)

	connected := make(chan struct{}, 1)
	agent.HandleMessage(buf[:n], from, func() { connected <- struct{}{} })

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("onConnected was not invoked")
	}
}
