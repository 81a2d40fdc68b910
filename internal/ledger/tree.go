package ledger

import (
	"encoding/hex"
	"sync"

	"probo/internal/ledger/merkle"
)

// periodTree holds the retained Merkle tree for the active period behind a
// read-write lock. Writers build off-lock and swap; readers never observe a
// partially built tree.
type periodTree struct {
	mu     sync.RWMutex
	active *merkle.Tree
	day    string
}

func newPeriodTree() *periodTree {
	return &periodTree{active: merkle.Build(nil)}
}

// swap installs a freshly built tree for the given period and returns its
// root in hex.
func (p *periodTree) swap(day string, tree *merkle.Tree) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = tree
	p.day = day
	return hex.EncodeToString(tree.Root())
}

// load returns the active tree and its root. The returned tree is immutable.
func (p *periodTree) load() (*merkle.Tree, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active, hex.EncodeToString(p.active.Root())
}

// period returns the day the active tree was built for.
func (p *periodTree) period() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.day
}
