package index

import (
	"sort"

	"github.com/tesseradb/tessera/core"
)

// DefaultOrder is the branching factor used for auto-created indexes.
const DefaultOrder = 32

// MinOrder is the smallest legal branching factor.
const MinOrder = 3

// node is one B-tree node. keys and rows are parallel slices; children
// is empty for leaves. parent is a non-owning arena id, -1 for the root.
type node struct {
	keys     []core.Value
	rows     [][]int64
	children []int
	parent   int
}

func (n *node) leaf() bool {
	return len(n.children) == 0
}

// BTree maps key values to ordered lists of row ids. Duplicate keys are
// supported; unique indexes simply never grow a list past one entry.
// Nodes live in an arena and reference each other by index.
type BTree struct {
	order int
	nodes []*node
	root  int
	size  int
}

// New returns an empty tree of the given order. Orders below MinOrder
// are raised to DefaultOrder.
func New(order int) *BTree {
	if order < MinOrder {
		order = DefaultOrder
	}
	t := &BTree{order: order, root: 0}
	t.nodes = []*node{{parent: -1}}
	return t
}

func (t *BTree) alloc(parent int) int {
	t.nodes = append(t.nodes, &node{parent: parent})
	return len(t.nodes) - 1
}

func (t *BTree) maxKeys() int { return t.order - 1 }

func (t *BTree) minKeys() int { return (t.order+1)/2 - 1 }

// Len returns the number of (key, row id) entries in the tree.
func (t *BTree) Len() int {
	return t.size
}

// findKey binary-searches one node, returning the position of key and
// whether it was found; if not found, the position is the child slot
// to descend into.
func (n *node) findKey(key core.Value) (int, bool) {
	i := sort.Search(len(n.keys), func(i int) bool {
		return n.keys[i].Compare(key) >= 0
	})
	if i < len(n.keys) && n.keys[i].Compare(key) == 0 {
		return i, true
	}
	return i, false
}

// locate descends from the root to the node holding key, or to the
// leaf where it would be inserted.
func (t *BTree) locate(key core.Value) (id, pos int, found bool) {
	id = t.root
	for {
		n := t.nodes[id]
		pos, found = n.findKey(key)
		if found || n.leaf() {
			return id, pos, found
		}
		id = n.children[pos]
	}
}

// Search returns the row ids stored under key, or nil if absent.
func (t *BTree) Search(key core.Value) []int64 {
	id, pos, found := t.locate(key)
	if !found {
		return nil
	}
	rows := t.nodes[id].rows[pos]
	out := make([]int64, len(rows))
	copy(out, rows)
	return out
}

// RangeSearch returns row ids for all keys within [low, high] in key
// order. A nil bound leaves that side open; the inclusive flags control
// whether the bound value itself is admitted.
func (t *BTree) RangeSearch(low, high *core.Value, includeLow, includeHigh bool) []int64 {
	var out []int64
	t.walk(t.root, func(key core.Value, rows []int64) bool {
		if low != nil {
			c := key.Compare(*low)
			if c < 0 || (c == 0 && !includeLow) {
				return true
			}
		}
		if high != nil {
			c := key.Compare(*high)
			if c > 0 || (c == 0 && !includeHigh) {
				return false
			}
		}
		out = append(out, rows...)
		return true
	})
	return out
}

// walk visits every (key, rows) pair in order until fn returns false.
func (t *BTree) walk(id int, fn func(core.Value, []int64) bool) bool {
	n := t.nodes[id]
	for i, key := range n.keys {
		if !n.leaf() {
			if !t.walk(n.children[i], fn) {
				return false
			}
		}
		if !fn(key, n.rows[i]) {
			return false
		}
	}
	if !n.leaf() {
		return t.walk(n.children[len(n.keys)], fn)
	}
	return true
}

// Insert records rowID under key. An existing key gets the row id
// appended to its list; a new key lands in a leaf, splitting upward on
// overflow.
func (t *BTree) Insert(key core.Value, rowID int64) {
	id, pos, found := t.locate(key)
	n := t.nodes[id]
	if found {
		n.rows[pos] = append(n.rows[pos], rowID)
		t.size++
		return
	}

	n.keys = insertValue(n.keys, pos, key)
	n.rows = insertRows(n.rows, pos, []int64{rowID})
	t.size++

	for id >= 0 && len(t.nodes[id].keys) > t.maxKeys() {
		id = t.split(id)
	}
}

// split divides an overfull node at its median, promoting the median
// key into the parent. Returns the parent's id so the caller can keep
// checking upward, or -1 when a new root was created.
func (t *BTree) split(id int) int {
	n := t.nodes[id]
	mid := len(n.keys) / 2
	midKey := n.keys[mid]
	midRows := n.rows[mid]

	rightID := t.alloc(n.parent)
	right := t.nodes[rightID]
	right.keys = append(right.keys, n.keys[mid+1:]...)
	right.rows = append(right.rows, n.rows[mid+1:]...)
	if !n.leaf() {
		right.children = append(right.children, n.children[mid+1:]...)
		for _, c := range right.children {
			t.nodes[c].parent = rightID
		}
		n.children = n.children[:mid+1]
	}
	n.keys = n.keys[:mid]
	n.rows = n.rows[:mid]

	if n.parent == -1 {
		rootID := t.alloc(-1)
		root := t.nodes[rootID]
		root.keys = []core.Value{midKey}
		root.rows = [][]int64{midRows}
		root.children = []int{id, rightID}
		n.parent = rootID
		right.parent = rootID
		t.root = rootID
		return -1
	}

	parent := t.nodes[n.parent]
	pos, _ := parent.findKey(midKey)
	parent.keys = insertValue(parent.keys, pos, midKey)
	parent.rows = insertRows(parent.rows, pos, midRows)
	parent.children = insertChild(parent.children, pos+1, rightID)
	return n.parent
}

// Delete removes rowID from the list stored under key; when the list
// empties, the key itself is removed and underflows are repaired by
// borrowing from or merging with siblings. Deleting an absent pair is
// a no-op.
func (t *BTree) Delete(key core.Value, rowID int64) {
	id, pos, found := t.locate(key)
	if !found {
		return
	}
	n := t.nodes[id]

	rows := n.rows[pos]
	at := -1
	for i, r := range rows {
		if r == rowID {
			at = i
			break
		}
	}
	if at < 0 {
		return
	}
	t.size--
	if len(rows) > 1 {
		n.rows[pos] = append(rows[:at], rows[at+1:]...)
		return
	}

	// Key must go. Internal keys are swapped with their in-order
	// predecessor so removal always happens at a leaf.
	if !n.leaf() {
		predID := n.children[pos]
		for !t.nodes[predID].leaf() {
			pred := t.nodes[predID]
			predID = pred.children[len(pred.children)-1]
		}
		pred := t.nodes[predID]
		last := len(pred.keys) - 1
		n.keys[pos] = pred.keys[last]
		n.rows[pos] = pred.rows[last]
		id, pos = predID, last
		n = pred
	}

	n.keys = append(n.keys[:pos], n.keys[pos+1:]...)
	n.rows = append(n.rows[:pos], n.rows[pos+1:]...)
	t.repair(id)
}

// repair restores the minimum-occupancy invariant at id, cascading
// toward the root.
func (t *BTree) repair(id int) {
	for id != t.root && len(t.nodes[id].keys) < t.minKeys() {
		n := t.nodes[id]
		parent := t.nodes[n.parent]
		slot := childSlot(parent, id)

		if slot > 0 && len(t.nodes[parent.children[slot-1]].keys) > t.minKeys() {
			t.borrowLeft(n.parent, slot)
			return
		}
		if slot < len(parent.children)-1 && len(t.nodes[parent.children[slot+1]].keys) > t.minKeys() {
			t.borrowRight(n.parent, slot)
			return
		}

		if slot > 0 {
			t.merge(n.parent, slot-1)
		} else {
			t.merge(n.parent, slot)
		}
		id = n.parent
	}

	root := t.nodes[t.root]
	if len(root.keys) == 0 && !root.leaf() {
		t.root = root.children[0]
		t.nodes[t.root].parent = -1
	}
}

// borrowLeft rotates the rightmost key of the left sibling through the
// parent separator into child slot.
func (t *BTree) borrowLeft(parentID, slot int) {
	parent := t.nodes[parentID]
	n := t.nodes[parent.children[slot]]
	left := t.nodes[parent.children[slot-1]]
	sep := slot - 1

	n.keys = insertValue(n.keys, 0, parent.keys[sep])
	n.rows = insertRows(n.rows, 0, parent.rows[sep])
	last := len(left.keys) - 1
	parent.keys[sep] = left.keys[last]
	parent.rows[sep] = left.rows[last]
	left.keys = left.keys[:last]
	left.rows = left.rows[:last]

	if !left.leaf() {
		moved := left.children[len(left.children)-1]
		left.children = left.children[:len(left.children)-1]
		n.children = insertChild(n.children, 0, moved)
		t.nodes[moved].parent = parent.children[slot]
	}
}

// borrowRight rotates the leftmost key of the right sibling through
// the parent separator into child slot.
func (t *BTree) borrowRight(parentID, slot int) {
	parent := t.nodes[parentID]
	n := t.nodes[parent.children[slot]]
	right := t.nodes[parent.children[slot+1]]
	sep := slot

	n.keys = append(n.keys, parent.keys[sep])
	n.rows = append(n.rows, parent.rows[sep])
	parent.keys[sep] = right.keys[0]
	parent.rows[sep] = right.rows[0]
	right.keys = append(right.keys[:0], right.keys[1:]...)
	right.rows = append(right.rows[:0], right.rows[1:]...)

	if !right.leaf() {
		moved := right.children[0]
		right.children = append(right.children[:0], right.children[1:]...)
		n.children = append(n.children, moved)
		t.nodes[moved].parent = parent.children[slot]
	}
}

// merge folds children slot and slot+1 of parentID into one node,
// pulling the separator key down.
func (t *BTree) merge(parentID, slot int) {
	parent := t.nodes[parentID]
	leftID := parent.children[slot]
	rightID := parent.children[slot+1]
	left := t.nodes[leftID]
	right := t.nodes[rightID]

	left.keys = append(left.keys, parent.keys[slot])
	left.rows = append(left.rows, parent.rows[slot])
	left.keys = append(left.keys, right.keys...)
	left.rows = append(left.rows, right.rows...)
	if !left.leaf() {
		for _, c := range right.children {
			t.nodes[c].parent = leftID
		}
		left.children = append(left.children, right.children...)
	}

	parent.keys = append(parent.keys[:slot], parent.keys[slot+1:]...)
	parent.rows = append(parent.rows[:slot], parent.rows[slot+1:]...)
	parent.children = append(parent.children[:slot+1], parent.children[slot+2:]...)
}

func childSlot(parent *node, id int) int {
	for i, c := range parent.children {
		if c == id {
			return i
		}
	}
	return -1
}

func insertValue(s []core.Value, i int, v core.Value) []core.Value {
	s = append(s, core.Value{})
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func insertRows(s [][]int64, i int, v []int64) [][]int64 {
	s = append(s, nil)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func insertChild(s []int, i, v int) []int {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
