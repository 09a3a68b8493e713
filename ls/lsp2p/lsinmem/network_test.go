package lsinmem_test

import (
	"context"
	"testing"

	"github.com/gordian-engine/lockstep/ls/lsp2p"
	"github.com/gordian-engine/lockstep/ls/lsp2p/lsinmem"
	"github.com/gordian-engine/lockstep/ls/lsp2p/lsp2ptest"
	"github.com/gordian-engine/lockstep/ls/lsround"
)

type inmemNetwork struct {
	n *lsinmem.Network
}

func (n inmemNetwork) Connect(context.Context) (lsp2p.CoordinatorConn, [2]lsp2p.GeneratorConn, error) {
	return n.n.Coordinator(), [2]lsp2p.GeneratorConn{
		n.n.Generator(lsround.GeneratorA),
		n.n.Generator(lsround.GeneratorB),
	}, nil
}

func (n inmemNetwork) Close() {
	n.n.Close()
}

func TestNetwork_Compliance(t *testing.T) {
	lsp2ptest.TestNetworkCompliance(
		t,
		func(*testing.T, context.Context) (lsp2ptest.Network, error) {
			return inmemNetwork{n: lsinmem.NewNetwork()}, nil
		},
	)
}
