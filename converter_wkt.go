package uxsimpp

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// WKT returns the WKT representation of the link geometry.
func (ln *Link) WKT() string {
	return wkt.MarshalString(ln.geom)
}

// WKT returns the WKT representation of the node position.
func (nd *Node) WKT() string {
	return wkt.MarshalString(orb.Point{nd.X, nd.Y})
}
