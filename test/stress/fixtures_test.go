package stress_test

import (
	"github.com/arloliu/peerrouter/source"
	"github.com/arloliu/peerrouter/strategy"
	"github.com/arloliu/peerrouter/types"
)

func staticPool(peers []types.Peer) types.PeerSource { return source.NewStatic(peers) }

func roundRobin() types.PeerSelector { return strategy.NewRoundRobin() }
