// Package nodeid supplies the 48-bit node field of version 1 UUIDs.
package nodeid

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Lzww0608/binuuid"
)

// Source returns the node identifier for this process
type Source interface {
	NodeID(ctx context.Context) ([6]byte, error)
}

// Static is a fixed node identifier
type Static [6]byte

// NodeID implements Source
func (s Static) NodeID(context.Context) ([6]byte, error) {
	return s, nil
}

// ParseStatic parses 12 hex digits, optionally separated by ':' or '-'
func ParseStatic(s string) (Static, error) {
	var node Static
	digits := strings.NewReplacer(":", "", "-", "").Replace(s)
	if len(digits) != 12 {
		return node, fmt.Errorf("nodeid: %q is not a 48-bit node", s)
	}
	if _, err := hex.Decode(node[:], []byte(digits)); err != nil {
		return node, fmt.Errorf("nodeid: %q: %w", s, err)
	}
	return node, nil
}

// Hardware uses the interface address chosen by github.com/google/uuid,
// or a random multicast node when no interface has one.
type Hardware struct{}

// NodeID implements Source
func (Hardware) NodeID(context.Context) ([6]byte, error) {
	var node [6]byte
	copy(node[:], uuid.NodeID())
	return node, nil
}

// Option resolves src and returns a generator option fixing the node
func Option(ctx context.Context, src Source) (binuuid.Option, error) {
	node, err := src.NodeID(ctx)
	if err != nil {
		return nil, err
	}
	return binuuid.WithNodeID(node), nil
}
