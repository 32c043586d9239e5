package index

import (
	"sort"

	"github.com/roach88/strata/value"
)

// btreeOrder is the maximum number of children per node. Entries per node
// top out at btreeOrder-1.
const btreeOrder = 32

// BTree is the in-memory index backend: a B-tree whose entries are ordered
// by the (key, sequence) composite.
type BTree struct {
	keyKind value.Kind
	root    *btreeNode
	count   uint64
}

type btreeNode struct {
	entries  []Entry
	children []*btreeNode // nil for leaves
}

func (n *btreeNode) leaf() bool { return n.children == nil }

// NewBTree creates an empty index for the declared key kind.
func NewBTree(keyKind value.Kind) *BTree {
	return &BTree{keyKind: keyKind, root: &btreeNode{}}
}

func (t *BTree) KeyKind() value.Kind { return t.keyKind }

func (t *BTree) Len() uint64 { return t.count }

func (t *BTree) Clear() error {
	t.root = &btreeNode{}
	t.count = 0
	return nil
}

// Insert coerces key to the declared kind and adds the entry.
func (t *BTree) Insert(key value.Value, offset uint64, length uint32, sequence uint64) error {
	k, err := value.Coerce(t.keyKind, key)
	if err != nil {
		return err
	}
	if value.IsNull(k) {
		// Null keys are not indexed; the record stays visible to scans.
		return nil
	}
	e := Entry{Key: k, Offset: offset, Length: length, Sequence: sequence}

	if len(t.root.entries) == btreeOrder-1 {
		oldRoot := t.root
		t.root = &btreeNode{children: []*btreeNode{oldRoot}}
		t.root.splitChild(0)
	}
	t.root.insertNonFull(e)
	t.count++
	return nil
}

func (n *btreeNode) insertNonFull(e Entry) {
	idx := sort.Search(len(n.entries), func(i int) bool {
		return cmpEntry(n.entries[i].Key, n.entries[i].Sequence, e.Key, e.Sequence) >= 0
	})
	if n.leaf() {
		n.entries = append(n.entries, Entry{})
		copy(n.entries[idx+1:], n.entries[idx:])
		n.entries[idx] = e
		return
	}
	if len(n.children[idx].entries) == btreeOrder-1 {
		n.splitChild(idx)
		if cmpEntry(e.Key, e.Sequence, n.entries[idx].Key, n.entries[idx].Sequence) > 0 {
			idx++
		}
	}
	n.children[idx].insertNonFull(e)
}

// splitChild splits the full child at idx, hoisting its median entry.
func (n *btreeNode) splitChild(idx int) {
	child := n.children[idx]
	mid := (btreeOrder - 1) / 2

	sibling := &btreeNode{
		entries: append([]Entry(nil), child.entries[mid+1:]...),
	}
	if !child.leaf() {
		sibling.children = append([]*btreeNode(nil), child.children[mid+1:]...)
		child.children = child.children[:mid+1]
	}
	midEntry := child.entries[mid]
	child.entries = child.entries[:mid]

	n.entries = append(n.entries, Entry{})
	copy(n.entries[idx+1:], n.entries[idx:])
	n.entries[idx] = midEntry

	n.children = append(n.children, nil)
	copy(n.children[idx+2:], n.children[idx+1:])
	n.children[idx+1] = sibling
}

func (t *BTree) Search(key value.Value) ([]Entry, error) {
	k, err := value.Coerce(t.keyKind, key)
	if err != nil {
		return nil, err
	}
	var out []Entry
	t.root.collectRange(k, k, &out)
	return out, nil
}

func (t *BTree) SearchFirst(key value.Value) (Entry, bool, error) {
	k, err := value.Coerce(t.keyKind, key)
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := t.root.firstGE(k, 0)
	if !ok || value.Compare(e.Key, k) != 0 {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// SearchFirstInt64 is the keyed-lookup hot path. A key that cannot fit the
// declared kind matches nothing.
func (t *BTree) SearchFirstInt64(key int64) (Loc, bool, error) {
	e, ok, err := t.searchFirstCoerced(value.Int64(key))
	if err != nil || !ok {
		return Loc{}, false, err
	}
	return Loc{Offset: e.Offset, Length: e.Length, Sequence: e.Sequence}, true, nil
}

// SearchFirstString is the string twin of SearchFirstInt64.
func (t *BTree) SearchFirstString(key string) (Loc, bool, error) {
	e, ok, err := t.searchFirstCoerced(value.String(key))
	if err != nil || !ok {
		return Loc{}, false, err
	}
	return Loc{Offset: e.Offset, Length: e.Length, Sequence: e.Sequence}, true, nil
}

func (t *BTree) searchFirstCoerced(key value.Value) (Entry, bool, error) {
	k, err := value.Coerce(t.keyKind, key)
	if err != nil {
		// The key cannot exist under this kind; treat as absent.
		return Entry{}, false, nil
	}
	e, ok := t.root.firstGE(k, 0)
	if !ok || value.Compare(e.Key, k) != 0 {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (t *BTree) Range(lo, hi value.Value) ([]Entry, error) {
	loK, err := value.Coerce(t.keyKind, lo)
	if err != nil {
		return nil, err
	}
	hiK, err := value.Coerce(t.keyKind, hi)
	if err != nil {
		return nil, err
	}
	var out []Entry
	t.root.collectRange(loK, hiK, &out)
	return out, nil
}

func (t *BTree) All() ([]Entry, error) {
	out := make([]Entry, 0, t.count)
	t.root.collectAll(&out)
	return out, nil
}

// firstGE returns the in-order first entry whose (key, sequence) composite
// is >= (key, seq).
func (n *btreeNode) firstGE(key value.Value, seq uint64) (Entry, bool) {
	idx := sort.Search(len(n.entries), func(i int) bool {
		return cmpEntry(n.entries[i].Key, n.entries[i].Sequence, key, seq) >= 0
	})
	if !n.leaf() {
		if e, ok := n.children[idx].firstGE(key, seq); ok {
			return e, true
		}
	}
	if idx < len(n.entries) {
		return n.entries[idx], true
	}
	return Entry{}, false
}

// collectRange appends, in composite order, every entry with
// lo <= key <= hi. Subtrees that cannot intersect the interval are pruned.
func (n *btreeNode) collectRange(lo, hi value.Value, out *[]Entry) {
	for i, e := range n.entries {
		if !n.leaf() && cmpEntry(e.Key, e.Sequence, lo, 0) >= 0 {
			n.children[i].collectRange(lo, hi, out)
		}
		if value.Compare(e.Key, hi) > 0 {
			return
		}
		if value.Compare(e.Key, lo) >= 0 {
			*out = append(*out, e)
		}
	}
	if !n.leaf() {
		n.children[len(n.entries)].collectRange(lo, hi, out)
	}
}

func (n *btreeNode) collectAll(out *[]Entry) {
	for i, e := range n.entries {
		if !n.leaf() {
			n.children[i].collectAll(out)
		}
		*out = append(*out, e)
	}
	if !n.leaf() {
		n.children[len(n.entries)].collectAll(out)
	}
}

// height is exposed for tests; a balanced tree keeps it logarithmic.
func (t *BTree) height() int {
	h := 1
	for n := t.root; !n.leaf(); n = n.children[0] {
		h++
	}
	return h
}

var _ Index = (*BTree)(nil)
