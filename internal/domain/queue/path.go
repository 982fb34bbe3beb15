package queue

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Path identifies a node by the child indices leading to it from the root.
// The empty path is the root group.
type Path []int

// ParsePath parses the "0/2/1" form produced by Path.String. "" and "/" are the root.
func ParsePath(s string) (Path, error) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, "/")
	p := make(Path, len(parts))
	for i, part := range parts {
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 {
			return nil, errors.Wrapf(ErrInvalidPath, "malformed path %q", s)
		}
		p[i] = idx
	}
	return p, nil
}

// String returns the slash separated form of the path.
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, "/")
}

// Clone returns a copy of the path that shares no storage with p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	c := make(Path, len(p))
	copy(c, p)
	return c
}

// Child returns the path of the index-th child of p.
func (p Path) Child(index int) Path {
	c := make(Path, len(p), len(p)+1)
	copy(c, p)
	return append(c, index)
}

// Parent splits p into its parent path and its index within the parent.
// Must not be called on the root.
func (p Path) Parent() (Path, int) {
	return p[:len(p)-1].Clone(), p[len(p)-1]
}

// Equal reports whether p and other address the same node.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p equals prefix or lies below it.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Compare orders paths lexicographically, which is depth-first pre-order.
// A path sorts before every path below it.
func (p Path) Compare(other Path) int {
	for i := 0; i < len(p) && i < len(other); i++ {
		switch {
		case p[i] < other[i]:
			return -1
		case p[i] > other[i]:
			return 1
		}
	}
	switch {
	case len(p) < len(other):
		return -1
	case len(p) > len(other):
		return 1
	default:
		return 0
	}
}

// afterRemoval returns where p ends up once the node at removed is detached.
// p must not lie inside the removed subtree.
func (p Path) afterRemoval(removed Path) Path {
	parent, index := removed.Parent()
	depth := len(parent)
	if len(p) > depth && p.HasPrefix(parent) && p[depth] > index {
		shifted := p.Clone()
		shifted[depth]--
		return shifted
	}
	return p
}

// afterInsertion returns where p ends up once a node is inserted at (parent, index).
func (p Path) afterInsertion(parent Path, index int) Path {
	depth := len(parent)
	if len(p) > depth && p.HasPrefix(parent) && p[depth] >= index {
		shifted := p.Clone()
		shifted[depth]++
		return shifted
	}
	return p
}
