package api_test

import (
	"testing"

	"github.com/rtbrick/bngblaster-core/api"
)

func TestTransportFeaturesStruct(t *testing.T) {
	f := api.TransportFeatures{ZeroCopy: true, Batch: false}
	if !f.ZeroCopy || f.Batch {
		t.Fatal("TransportFeatures fields not set correctly")
	}
}

func TestTransportInterfaceCompliance(t *testing.T) {
	var _ api.Transport = (*mockTransport)(nil)
}

// mockTransport implements api.Transport for the compliance check
type mockTransport struct{}

func (*mockTransport) Send([][]byte) error             { return nil }
func (*mockTransport) Recv() ([][]byte, error)         { return nil, nil }
func (*mockTransport) Close() error                    { return nil }
func (*mockTransport) Features() api.TransportFeatures { return api.TransportFeatures{} }
