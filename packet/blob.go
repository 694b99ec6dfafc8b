package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/tolelom/fullnode/crypto"
)

// Blob header layout, little-endian, aligned up to 64 bytes (spec.md
// §4.3). Offsets are part of the wire contract and must not be derived
// from Go struct layout.
const (
	BlobIndexEnd   = 8                  // index: 8 bytes
	BlobIDEnd      = BlobIndexEnd + 32  // sender pubkey: 32 bytes
	BlobFlagsEnd   = BlobIDEnd + 4      // flags: 4 bytes
	BlobSizeEnd    = BlobFlagsEnd + 8   // data_size: 8 bytes
	BlobHeaderSize = 64                 // BlobSizeEnd (52) aligned up to 64

	// BlobFlagIsCoding marks a blob as forward-error-correction coding
	// data rather than payload data.
	BlobFlagIsCoding uint32 = 0x1

	// BlobSize is the maximum on-wire size of a single blob datagram.
	BlobSize = 64*1024 - 128
	// BlobDataSize is the payload capacity left after both header slots
	// BLOB_SIZE accounts for (matches the original's 2*BLOB_HEADER_SIZE
	// reservation for header + trailing erasure-coding room).
	BlobDataSize = BlobSize - 2*BlobHeaderSize
	// NumBlobs bounds how many blobs a single recv_from call drains.
	NumBlobs = (NumPackets * PacketDataSize) / BlobSize
)

// ErrBlobBadState is returned when a blob's meta.size disagrees with its
// header's recorded data_size — a corrupted or truncated blob.
var ErrBlobBadState = errors.New("packet: blob bad state: meta size does not match header data_size")

// Blob is a single ~64KiB header-framed datagram used for the reliable
// gossip/repair transport layered over Packets.
type Blob struct {
	Data [BlobSize]byte
	Meta Meta
}

// GetIndex returns the blob's logical sequence number.
func (b *Blob) GetIndex() uint64 {
	return binary.LittleEndian.Uint64(b.Data[0:BlobIndexEnd])
}

// SetIndex stamps the blob's logical sequence number.
func (b *Blob) SetIndex(ix uint64) {
	binary.LittleEndian.PutUint64(b.Data[0:BlobIndexEnd], ix)
}

// GetID returns the originating node's public key.
func (b *Blob) GetID() crypto.PublicKey {
	return crypto.PublicKey(append([]byte(nil), b.Data[BlobIndexEnd:BlobIDEnd]...))
}

// SetID stamps the originating node's public key.
func (b *Blob) SetID(id crypto.PublicKey) {
	copy(b.Data[BlobIndexEnd:BlobIDEnd], id)
}

// GetFlags returns the blob's flag bits.
func (b *Blob) GetFlags() uint32 {
	return binary.LittleEndian.Uint32(b.Data[BlobIDEnd:BlobFlagsEnd])
}

// SetFlags overwrites the blob's flag bits.
func (b *Blob) SetFlags(flags uint32) {
	binary.LittleEndian.PutUint32(b.Data[BlobIDEnd:BlobFlagsEnd], flags)
}

// IsCoding reports whether the blob carries erasure-coding data rather
// than payload data.
func (b *Blob) IsCoding() bool {
	return b.GetFlags()&BlobFlagIsCoding != 0
}

// SetCoding marks the blob as carrying erasure-coding data.
func (b *Blob) SetCoding() {
	b.SetFlags(b.GetFlags() | BlobFlagIsCoding)
}

// GetDataSize returns the header's recorded data_size (header + payload
// length in bytes).
func (b *Blob) GetDataSize() uint64 {
	return binary.LittleEndian.Uint64(b.Data[BlobFlagsEnd:BlobSizeEnd])
}

// SetDataSize stamps the header's data_size field.
func (b *Blob) SetDataSize(size uint64) {
	binary.LittleEndian.PutUint64(b.Data[BlobFlagsEnd:BlobSizeEnd], size)
}

// PayloadRead returns the blob's payload, past the fixed header.
func (b *Blob) PayloadRead() []byte {
	return b.Data[BlobHeaderSize:]
}

// PayloadWrite returns the blob's payload for writing, past the fixed header.
func (b *Blob) PayloadWrite() []byte {
	return b.Data[BlobHeaderSize:]
}

// GetSize cross-checks meta.size against the header's data_size and, if
// they agree, returns the payload length (data_size minus header). A
// mismatch means the blob was corrupted or truncated in transit.
func (b *Blob) GetSize() (int, error) {
	size := int(b.GetDataSize())
	if b.Meta.Size != size {
		return 0, fmt.Errorf("%w: meta.size=%d data_size=%d", ErrBlobBadState, b.Meta.Size, size)
	}
	return size - BlobHeaderSize, nil
}

// SetSize records a payload of the given length: it stamps both
// meta.size and the header's data_size with header+payload length, kept
// in lock-step so GetSize's cross-check later succeeds.
func (b *Blob) SetSize(payloadSize int) {
	full := payloadSize + BlobHeaderSize
	b.Meta.Size = full
	b.SetDataSize(uint64(full))
}

// Blobs is a batch of Blob, pre-sized to NumBlobs on the hot path.
type Blobs struct {
	Blobs []Blob
}

// RecvFrom fills b with as many blobs as are immediately available,
// following the same block-then-drain discipline as Packets.RecvFrom,
// capped at NumBlobs per call.
func (b *Blobs) RecvFrom(conn *net.UDPConn) error {
	b.Blobs = b.Blobs[:0]
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return fmt.Errorf("packet: blob: clear read deadline: %w", err)
	}

	for i := 0; i < NumBlobs; i++ {
		var blob Blob
		n, addr, err := conn.ReadFromUDP(blob.Data[:])
		if err != nil {
			if i == 0 {
				return fmt.Errorf("packet: blob: recv_from: %w", err)
			}
			break
		}
		blob.Meta.Size = n
		blob.Meta.SetAddr(addr)
		b.Blobs = append(b.Blobs, blob)

		if i == 0 {
			if err := conn.SetReadDeadline(time.Now().Add(drainDeadline)); err != nil {
				return fmt.Errorf("packet: blob: set drain deadline: %w", err)
			}
		}
	}
	return nil
}

// SendTo writes every blob in the batch to its recorded destination.
func (b *Blobs) SendTo(conn *net.UDPConn) error {
	for i := range b.Blobs {
		bl := &b.Blobs[i]
		if _, err := conn.WriteToUDP(bl.Data[:bl.Meta.Size], bl.Meta.SocketAddr()); err != nil {
			return fmt.Errorf("packet: blob: send_to %s: %w", bl.Meta.SocketAddr(), err)
		}
	}
	return nil
}
