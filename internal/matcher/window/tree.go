package window

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/pkg/geom"
)

// Tree errors.
var (
	ErrEmptyBank   = errors.New("no sprite entries to index")
	ErrCorruptTree = errors.New("corrupt matcher tree")
)

// Tree is the flat decision tree over a bank. Level i of the tree branches on
// window cell i in row-major order.
//
// Node layout: a leaf is a zero byte followed by the big-endian entry
// (matrix id u32, palette id u16). An internal node is num_values, the
// num_values branch bytes in ascending order, then num_values-1 big-endian
// u32 offsets of the second and later children; the first child follows
// inline.
type Tree struct {
	data []byte
	bank Bank
}

// Match is one window of a screenshot identified as a bank entry.
type Match struct {
	Entry  Entry
	Offset geom.PointU16
}

// NewTree indexes entries of a bank.
func NewTree(bank Bank, entries []Entry) (*Tree, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyBank
	}
	for _, e := range entries {
		if !bank.contains(e) {
			return nil, fmt.Errorf("%w: entry %+v outside bank", ErrCorruptTree, e)
		}
	}

	t := &Tree{bank: bank}
	t.grow(entries, 0)
	t.data = slices.Clip(t.data)
	return t, nil
}

func (t *Tree) grow(entries []Entry, cell int) uint32 {
	node := uint32(len(t.data))

	// entries left at the last cell are byte-identical after transform
	if len(entries) == 1 || cell == Size {
		e := entries[0].bytes()
		t.data = append(t.data, 0)
		t.data = append(t.data, e[:]...)
		return node
	}

	split := make(map[byte][]Entry)
	for _, e := range entries {
		v := t.bank.Value(e, cell)
		split[v] = append(split[v], e)
	}
	keys := make([]byte, 0, len(split))
	for k := range split {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	// valid windows never hold 0, so at most 255 keys
	t.data = append(t.data, byte(len(keys)))
	t.data = append(t.data, keys...)
	pointers := len(t.data)
	t.data = append(t.data, make([]byte, 4*(len(keys)-1))...)

	for i, k := range keys {
		child := t.grow(split[k], cell+1)
		if i > 0 {
			binary.BigEndian.PutUint32(t.data[pointers+4*(i-1):], child)
		}
	}

	return node
}

// Bank returns the bank the tree indexes.
func (t *Tree) Bank() *Bank {
	return &t.bank
}

// Bytes returns the serialized tree.
func (t *Tree) Bytes() []byte {
	return t.data
}

func (t *Tree) child(node, n, i int) int {
	if i == 0 {
		return node + n + 4*(n-1)
	}
	off := node + n + 4*(i-1)
	return int(binary.BigEndian.Uint32(t.data[off : off+4]))
}

// Lookup finds every window of img that bit-matches a bank entry. Matches
// come in no particular order; one offset may match several entries.
func (t *Tree) Lookup(img *matrix.Matrix) []Match {
	offsets := img.WindowOffsets(geom.Pt(matrix.WindowSize, matrix.WindowSize))
	if len(offsets) == 0 || len(t.data) == 0 {
		return nil
	}

	l := &lookup{tree: t, img: img}
	l.descend(0, 0, offsets)
	return l.matches
}

type lookup struct {
	tree    *Tree
	img     *matrix.Matrix
	matches []Match
	buckets [Size][256][]geom.PointU16
}

func (l *lookup) descend(node, cell int, offsets []geom.PointU16) {
	data := l.tree.data
	n := int(data[node])
	node++

	if n == 0 {
		e := entryFromBytes(data[node:])
		want := l.tree.bank.Transformed(e)
		for _, off := range offsets {
			if l.img.Window(off) == want {
				l.matches = append(l.matches, Match{Entry: e, Offset: off})
			}
		}
		return
	}

	keys := data[node : node+n]
	var mask [256]bool
	for _, k := range keys {
		mask[k] = true
	}

	p := geom.Pt(uint16(cell/matrix.WindowSize), uint16(cell%matrix.WindowSize))
	buckets := &l.buckets[cell]
	for _, off := range offsets {
		if v := l.img.At(off.Add(p)); mask[v] {
			buckets[v] = append(buckets[v], off)
		}
	}

	for i, k := range keys {
		if len(buckets[k]) == 0 {
			continue
		}
		l.descend(l.tree.child(node, n, i), cell+1, buckets[k])
		buckets[k] = buckets[k][:0]
	}
}

// validate walks the whole tree checking every offset and leaf reference.
func (t *Tree) validate() error {
	type frame struct{ node, cell int }
	stack := []frame{{0, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.node >= len(t.data) || f.cell > Size {
			return fmt.Errorf("%w: node %d out of range", ErrCorruptTree, f.node)
		}
		n := int(t.data[f.node])
		body := f.node + 1
		if n == 0 {
			if body+entrySize > len(t.data) {
				return fmt.Errorf("%w: truncated leaf at %d", ErrCorruptTree, f.node)
			}
			if e := entryFromBytes(t.data[body:]); !t.bank.contains(e) {
				return fmt.Errorf("%w: leaf %+v outside bank", ErrCorruptTree, e)
			}
			continue
		}
		if f.cell == Size {
			return fmt.Errorf("%w: branch below the last cell at %d", ErrCorruptTree, f.node)
		}
		if body+n+4*(n-1) > len(t.data) {
			return fmt.Errorf("%w: truncated node at %d", ErrCorruptTree, f.node)
		}
		for i := 0; i < n; i++ {
			stack = append(stack, frame{t.child(body, n, i), f.cell + 1})
		}
	}
	return nil
}
