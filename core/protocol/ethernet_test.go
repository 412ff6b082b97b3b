package protocol_test

import (
	"bytes"
	"testing"

	"github.com/rtbrick/bngblaster-core/api"
	"github.com/rtbrick/bngblaster-core/core/protocol"
)

func TestDecodeUntaggedFrame(t *testing.T) {
	buf := make([]byte, protocol.MinEthernetLen+4)
	copy(buf[0:6], []byte{1, 2, 3, 4, 5, 6})
	copy(buf[6:12], []byte{6, 5, 4, 3, 2, 1})
	buf[12], buf[13] = 0x08, 0x00 // IPv4
	copy(buf[14:], []byte("abcd"))

	hdr, err := protocol.DecodeEthernet(buf)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.EtherType != protocol.EtherTypeIPv4 {
		t.Fatalf("ethertype = %#x", hdr.EtherType)
	}
	if hdr.VLANOuterTPID != 0 {
		t.Fatal("expected no VLAN tag")
	}
	if !bytes.Equal(hdr.Payload, []byte("abcd")) {
		t.Fatalf("payload = %q", hdr.Payload)
	}
}

func TestDecodeSingleTagFrame(t *testing.T) {
	hdr := api.EthernetHeader{
		DstMAC:        [6]byte{1, 2, 3, 4, 5, 6},
		SrcMAC:        [6]byte{6, 5, 4, 3, 2, 1},
		VLANOuterTPID: protocol.EtherTypeVLAN,
		VLANOuter:     100,
		EtherType:     protocol.EtherTypeIPv4,
		Payload:       []byte("payload"),
	}
	wire := protocol.EncodeEthernet(hdr)
	got, err := protocol.DecodeEthernet(wire)
	if err != nil {
		t.Fatal(err)
	}
	if got.VLANOuter != 100 || got.VLANOuterTPID != protocol.EtherTypeVLAN {
		t.Fatalf("outer tag mismatch: %+v", got)
	}
	if got.QinQ {
		t.Fatal("single-tag frame must not be QinQ")
	}
}

// TestQinQRoundTrip: encoding a VLAN-tagged
// frame and re-decoding reproduces the original outer/inner tags and TPID.
func TestQinQRoundTrip(t *testing.T) {
	hdr := api.EthernetHeader{
		DstMAC:        [6]byte{0xAA, 0xBB, 0xCC, 0, 0, 0},
		SrcMAC:        [6]byte{0x11, 0x22, 0x33, 0, 0, 0},
		VLANOuterTPID: protocol.EtherTypeQinQ1,
		VLANOuter:     200,
		VLANInnerTPID: protocol.EtherTypeVLAN,
		VLANInner:     100,
		QinQ:          true,
		EtherType:     protocol.EtherTypeIPv4,
		Payload:       []byte{1, 2, 3, 4},
	}
	wire := protocol.EncodeEthernet(hdr)
	got, err := protocol.DecodeEthernet(wire)
	if err != nil {
		t.Fatal(err)
	}
	if got.VLANOuter != 200 || got.VLANOuterTPID != protocol.EtherTypeQinQ1 {
		t.Fatalf("outer mismatch: %+v", got)
	}
	if got.VLANInner != 100 || got.VLANInnerTPID != protocol.EtherTypeVLAN {
		t.Fatalf("inner mismatch: %+v", got)
	}
	if !got.QinQ {
		t.Fatal("expected QinQ=true")
	}
	if !bytes.Equal(got.Payload, hdr.Payload) {
		t.Fatalf("payload mismatch: %v", got.Payload)
	}
}

func TestDecodeTooShort(t *testing.T) {
	if _, err := protocol.DecodeEthernet(make([]byte, 4)); err != protocol.ErrFrameTooShort {
		t.Fatalf("err = %v, want ErrFrameTooShort", err)
	}
}
