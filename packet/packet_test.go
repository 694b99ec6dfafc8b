package packet

import (
	"encoding/json"
	"net"
	"testing"
)

func TestMetaSetAddrV4RoundTrip(t *testing.T) {
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 8001}
	var m Meta
	m.SetAddr(addr)
	if m.V6 {
		t.Fatal("expected V6 false for an IPv4 address")
	}
	got := m.SocketAddr()
	if got.Port != 8001 || !got.IP.Equal(addr.IP) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, addr)
	}
}

func TestMetaSetAddrV6RoundTrip(t *testing.T) {
	addr := &net.UDPAddr{IP: net.ParseIP("::1"), Port: 9001}
	var m Meta
	m.SetAddr(addr)
	if !m.V6 {
		t.Fatal("expected V6 true for an IPv6 address")
	}
	got := m.SocketAddr()
	if got.Port != 9001 || !got.IP.Equal(addr.IP) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, addr)
	}
}

func TestPacketsSendRecvRoundTrip(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatal(err)
	}
	defer serverConn.Close()

	clientConn, err := net.DialUDP("udp", nil, serverConn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatal(err)
	}
	defer clientConn.Close()

	payload := []byte("hello fullnode")
	if _, err := clientConn.Write(payload); err != nil {
		t.Fatal(err)
	}

	var pkts Packets
	pkts.Packets = make([]Packet, NumPackets)
	if err := pkts.RecvFrom(serverConn); err != nil {
		t.Fatal(err)
	}
	if len(pkts.Packets) != 1 {
		t.Fatalf("got %d packets, want 1", len(pkts.Packets))
	}
	got := pkts.Packets[0].Data[:pkts.Packets[0].Meta.Size]
	if string(got) != string(payload) {
		t.Fatalf("payload mismatch: got %q, want %q", got, payload)
	}
}

func TestToPacketsChunkedRejectsOversizedItem(t *testing.T) {
	big := rawJSON(make([]byte, PacketDataSize+1))
	_, err := ToPackets([]json.Marshaler{big})
	if err == nil {
		t.Fatal("expected error for oversized item")
	}
}

// rawJSON lets the test exercise ToPacketsChunked's size check directly.
type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) { return r, nil }
