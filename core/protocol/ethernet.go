// File: core/protocol/ethernet.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Outer Ethernet/802.1Q/QinQ decode and encode: binary.BigEndian header
// parsing over a flat byte slice, no allocation on the decode path beyond
// the header struct itself.

package protocol

import (
	"encoding/binary"
	"errors"

	"github.com/rtbrick/bngblaster-core/api"
)

// EtherType / TPID values the dispatcher must recognize.
const (
	EtherTypeVLAN  uint16 = 0x8100
	EtherTypeQinQ1 uint16 = 0x88A8
	EtherTypeQinQ2 uint16 = 0x9100
	EtherTypeIPv4  uint16 = 0x0800
	EtherTypeIPv6  uint16 = 0x86DD
	EtherTypeARP   uint16 = 0x0806
	EtherTypePPPoED uint16 = 0x8863
	EtherTypePPPoES uint16 = 0x8864

	// MinEthernetLen is dst(6)+src(6)+ethertype(2), before any VLAN tags.
	MinEthernetLen = 14
	vlanTagLen     = 4
)

// ErrFrameTooShort is returned when buf lacks even the 14-byte base header.
var ErrFrameTooShort = errors.New("protocol: frame shorter than ethernet header")

func isVLANTPID(et uint16) bool {
	return et == EtherTypeVLAN || et == EtherTypeQinQ1 || et == EtherTypeQinQ2
}

// DecodeEthernet parses dst/src MAC, up to two 802.1Q tags (outer then
// inner, the QinQ case), and the inner EtherType, leaving Payload as the
// remaining bytes. It never allocates beyond the returned header value;
// Payload aliases buf and must not outlive the caller's frame view, the
// same scoped-acquisition discipline the ring handle enforces.
func DecodeEthernet(buf []byte) (api.EthernetHeader, error) {
	if len(buf) < MinEthernetLen {
		return api.EthernetHeader{}, ErrFrameTooShort
	}
	var hdr api.EthernetHeader
	copy(hdr.DstMAC[:], buf[0:6])
	copy(hdr.SrcMAC[:], buf[6:12])
	offset := 12

	et := binary.BigEndian.Uint16(buf[offset:])
	if isVLANTPID(et) {
		if len(buf) < offset+vlanTagLen+2 {
			return api.EthernetHeader{}, ErrFrameTooShort
		}
		tci := binary.BigEndian.Uint16(buf[offset+2:])
		hdr.VLANOuterTPID = et
		hdr.VLANOuter = tci & 0x0FFF
		hdr.VLANOuterPrio = uint8(tci >> 13)
		offset += vlanTagLen

		et2 := binary.BigEndian.Uint16(buf[offset:])
		if isVLANTPID(et2) {
			if len(buf) < offset+vlanTagLen+2 {
				return api.EthernetHeader{}, ErrFrameTooShort
			}
			tci2 := binary.BigEndian.Uint16(buf[offset+2:])
			hdr.VLANInnerTPID = et2
			hdr.VLANInner = tci2 & 0x0FFF
			hdr.VLANInnerPrio = uint8(tci2 >> 13)
			hdr.QinQ = et == EtherTypeQinQ1 || et == EtherTypeQinQ2
			offset += vlanTagLen
			et = binary.BigEndian.Uint16(buf[offset:])
		}
	}
	hdr.EtherType = et
	hdr.Payload = buf[offset+2:]
	return hdr, nil
}

// EncodeEthernet serializes hdr back to wire bytes, the inverse of
// DecodeEthernet, used by the round-trip property test and by stream
// template construction. A zero VLANOuterTPID omits the outer tag (and
// therefore the inner one too, since a frame cannot carry an inner tag
// without an outer one).
func EncodeEthernet(hdr api.EthernetHeader) []byte {
	size := MinEthernetLen
	if hdr.VLANOuterTPID != 0 {
		size += vlanTagLen
		if hdr.VLANInnerTPID != 0 {
			size += vlanTagLen
		}
	}
	out := make([]byte, size+len(hdr.Payload))
	copy(out[0:6], hdr.DstMAC[:])
	copy(out[6:12], hdr.SrcMAC[:])
	offset := 12
	if hdr.VLANOuterTPID != 0 {
		binary.BigEndian.PutUint16(out[offset:], hdr.VLANOuterTPID)
		tci := (uint16(hdr.VLANOuterPrio) << 13) | (hdr.VLANOuter & 0x0FFF)
		binary.BigEndian.PutUint16(out[offset+2:], tci)
		offset += vlanTagLen
		if hdr.VLANInnerTPID != 0 {
			binary.BigEndian.PutUint16(out[offset:], hdr.VLANInnerTPID)
			tci2 := (uint16(hdr.VLANInnerPrio) << 13) | (hdr.VLANInner & 0x0FFF)
			binary.BigEndian.PutUint16(out[offset+2:], tci2)
			offset += vlanTagLen
		}
	}
	binary.BigEndian.PutUint16(out[offset:], hdr.EtherType)
	copy(out[offset+2:], hdr.Payload)
	return out
}
