package logstore

import (
	"github.com/roach88/ddb/internal/blueprint"
	"github.com/roach88/ddb/internal/peer"
)

// allows reports whether op may be appended to a log of kind.
func allows(kind blueprint.Kind, op peer.Op) bool {
	switch kind {
	case blueprint.KeyValue, blueprint.DocStore:
		return op == peer.OpPut || op == peer.OpDelete
	case blueprint.Feed:
		return op == peer.OpAdd || op == peer.OpRemove
	case blueprint.EventLog:
		return op == peer.OpAdd
	default:
		return false
	}
}

// index is the in-memory view of a log.
type index struct {
	log     []peer.Entry
	byHash  map[string]int
	kv      map[string]any
	removed map[string]bool
}

func newIndex() *index {
	return &index{
		byHash:  make(map[string]int),
		kv:      make(map[string]any),
		removed: make(map[string]bool),
	}
}

func (x *index) apply(e peer.Entry) {
	if _, dup := x.byHash[e.Hash]; dup {
		return
	}
	x.byHash[e.Hash] = len(x.log)
	x.log = append(x.log, e)

	switch e.Op {
	case peer.OpPut:
		x.kv[e.Key] = e.Value
	case peer.OpDelete:
		delete(x.kv, e.Key)
	case peer.OpRemove:
		x.removed[e.Key] = true
	}
}

// live returns the entry with hash unless it has been removed.
func (x *index) live(hash string) (peer.Entry, bool) {
	i, ok := x.byHash[hash]
	if !ok || x.removed[hash] {
		return peer.Entry{}, false
	}
	return x.log[i], true
}
