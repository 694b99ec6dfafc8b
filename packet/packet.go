// Package packet implements the fixed-capacity UDP datagram containers
// that feed the signature-verification pipeline and the blob transport
// used for gossip and repair (spec.md §4.3). Grounded on
// original_source/buffett2/core/src/packet.rs.
package packet

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

const (
	// PacketDataSize is the maximum UDP payload a Packet carries.
	PacketDataSize = 512
	// NumPackets is the fixed batch size a Packets buffer is sized to.
	NumPackets = 1024 * 8
)

// drainDeadline bounds the whole nonblocking drain phase of RecvFrom: it
// is set once, after the first blocking read, not per additional packet.
const drainDeadline = 1 * time.Millisecond

// Meta carries a packet's out-of-band routing and retransmit metadata.
type Meta struct {
	Size           int
	NumRetransmits uint64
	Addr           net.IP
	Port           uint16
	V6             bool
}

// SocketAddr reconstructs the full address meta was captured from.
func (m *Meta) SocketAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: m.Addr, Port: int(m.Port)}
}

// SetAddr records addr into meta, detecting v4 vs v6.
func (m *Meta) SetAddr(addr *net.UDPAddr) {
	m.Port = uint16(addr.Port)
	if v4 := addr.IP.To4(); v4 != nil {
		m.Addr = v4
		m.V6 = false
		return
	}
	m.Addr = addr.IP.To16()
	m.V6 = true
}

// Packet is a single fixed-capacity UDP datagram container.
type Packet struct {
	Data [PacketDataSize]byte
	Meta Meta
}

// Packets is a batch of Packet, pre-sized to NumPackets on the hot path
// so no per-datagram allocation happens during a receive burst.
type Packets struct {
	Packets []Packet
}

// NewPackets allocates a batch pre-sized to NumPackets.
func NewPackets() *Packets {
	return &Packets{Packets: make([]Packet, NumPackets)}
}

// RecvFrom fills p with as many datagrams as are immediately available:
// it blocks for the first packet, then drains non-blockingly (a short
// read deadline) until the socket has nothing left to give or the batch
// is full, matching the original's "block then drain" discipline.
func (p *Packets) RecvFrom(conn *net.UDPConn) error {
	p.Packets = p.Packets[:0]
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return fmt.Errorf("packet: clear read deadline: %w", err)
	}

	for i := 0; i < NumPackets; i++ {
		var pkt Packet
		n, addr, err := conn.ReadFromUDP(pkt.Data[:])
		if err != nil {
			if i == 0 {
				return fmt.Errorf("packet: recv_from: %w", err)
			}
			break // drain terminus: not an error once at least one packet arrived
		}
		pkt.Meta.Size = n
		pkt.Meta.SetAddr(addr)
		p.Packets = append(p.Packets, pkt)

		if i == 0 {
			if err := conn.SetReadDeadline(time.Now().Add(drainDeadline)); err != nil {
				return fmt.Errorf("packet: set drain deadline: %w", err)
			}
		}
	}
	return nil
}

// SendTo writes every packet in the batch to its recorded destination.
func (p *Packets) SendTo(conn *net.UDPConn) error {
	for i := range p.Packets {
		pk := &p.Packets[i]
		if _, err := conn.WriteToUDP(pk.Data[:pk.Meta.Size], pk.Meta.SocketAddr()); err != nil {
			return fmt.Errorf("packet: send_to %s: %w", pk.Meta.SocketAddr(), err)
		}
	}
	return nil
}

// ToPacketsChunked serializes xs as JSON, chunks chunksPerBatch items per
// Packets buffer, and returns the resulting batches. Used to marshal a
// wave of outbound transactions into wire-ready packet buffers.
func ToPacketsChunked(xs []json.Marshaler, chunksPerBatch int) ([]*Packets, error) {
	var out []*Packets
	for start := 0; start < len(xs); start += chunksPerBatch {
		end := start + chunksPerBatch
		if end > len(xs) {
			end = len(xs)
		}
		chunk := xs[start:end]
		batch := &Packets{Packets: make([]Packet, len(chunk))}
		for i, x := range chunk {
			v, err := x.MarshalJSON()
			if err != nil {
				return nil, fmt.Errorf("packet: serialize item %d: %w", start+i, err)
			}
			if len(v) > PacketDataSize {
				return nil, fmt.Errorf("packet: item %d too large: %d bytes", start+i, len(v))
			}
			copy(batch.Packets[i].Data[:], v)
			batch.Packets[i].Meta.Size = len(v)
		}
		out = append(out, batch)
	}
	return out, nil
}

// ToPackets is ToPacketsChunked with the default NumPackets chunk size.
func ToPackets(xs []json.Marshaler) ([]*Packets, error) {
	return ToPacketsChunked(xs, NumPackets)
}
