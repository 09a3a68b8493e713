// Package lslibp2p carries the lockstep protocol between separate processes
// over libp2p streams.
//
// The coordinator runs a [Coordinator] host and publishes its multiaddr.
// Each generator calls [DialCoordinator], which opens one bidirectional stream
// under [ProtocolID] and performs a Hello handshake.
// After the handshake, every frame is a varint length-prefixed
// [lscodec.NetworkMessage] carrying either a candidate (generator to coordinator)
// or a verdict (coordinator to generator).
//
// Because each generator has exactly one stream,
// messages in each direction keep their send order.
package lslibp2p
