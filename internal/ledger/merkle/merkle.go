// Package merkle implements the per-period hash tree over footprint
// commitments. Nodes are sha256(left || right); an odd node at any level is
// promoted unchanged rather than paired with a duplicate of itself, so a
// singleton tree's root equals its leaf hash.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"probo/pkg/platform/sentinel"
)

// ZeroRoot is the defined sentinel for an empty tree.
var ZeroRoot = make([]byte, sha256.Size)

// ProofStep is one sibling hash on an inclusion path. Left reports whether
// the sibling sits to the left of the running hash.
type ProofStep struct {
	Hash []byte
	Left bool
}

// Tree is an immutable Merkle tree over a fixed leaf set. Build once, swap
// atomically; readers of a built tree need no locks.
type Tree struct {
	levels [][][]byte // levels[0] is the leaf level
	index  map[string]int
}

// Build constructs a tree over the given leaves in the given order. Callers
// that need an order-independent root sort the leaves first.
func Build(leaves [][]byte) *Tree {
	t := &Tree{index: make(map[string]int, len(leaves))}
	if len(leaves) == 0 {
		return t
	}

	level := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		h := sha256.Sum256(leaf)
		level[i] = h[:]
		t.index[hex.EncodeToString(leaf)] = i
	}
	t.levels = append(t.levels, level)

	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			h := sha256.Sum256(append(append([]byte{}, level[i]...), level[i+1]...))
			next = append(next, h[:])
		}
		t.levels = append(t.levels, next)
		level = next
	}
	return t
}

// Root returns the tree root, or ZeroRoot for an empty tree.
func (t *Tree) Root() []byte {
	if len(t.levels) == 0 {
		return ZeroRoot
	}
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Size returns the leaf count.
func (t *Tree) Size() int {
	if len(t.levels) == 0 {
		return 0
	}
	return len(t.levels[0])
}

// Proof returns the sibling path for the given leaf, or sentinel.ErrNotFound
// if the leaf is not a member of this tree.
func (t *Tree) Proof(leaf []byte) ([]ProofStep, error) {
	pos, ok := t.index[hex.EncodeToString(leaf)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	var path []ProofStep
	for _, level := range t.levels[:len(t.levels)-1] {
		if pos%2 == 0 {
			if pos+1 < len(level) {
				path = append(path, ProofStep{Hash: level[pos+1], Left: false})
			}
			// Odd node promoted: no sibling, no step.
		} else {
			path = append(path, ProofStep{Hash: level[pos-1], Left: true})
		}
		pos /= 2
	}
	return path, nil
}

// Verify replays a sibling path from a leaf and compares against root.
func Verify(leaf []byte, path []ProofStep, root []byte) bool {
	h := sha256.Sum256(leaf)
	running := h[:]
	for _, step := range path {
		var combined []byte
		if step.Left {
			combined = append(append([]byte{}, step.Hash...), running...)
		} else {
			combined = append(append([]byte{}, running...), step.Hash...)
		}
		next := sha256.Sum256(combined)
		running = next[:]
	}
	return bytes.Equal(running, root)
}
