package actor

import (
	"fmt"
	"sync/atomic"
)

// PID identifies a process. The zero value identifies nothing.
type PID struct {
	node string
	id   uint64
}

func (p PID) Node() string   { return p.node }
func (p PID) IsZero() bool   { return p.node == "" && p.id == 0 }
func (p PID) String() string { return fmt.Sprintf("<%s.%d>", p.node, p.id) }

// Ref is a unique reference. A Ref is either plain (see [Runtime.MakeRef]) or
// refers to a resource (see [Runtime.MakeResourceRef]). Copies of a Ref
// compare equal with ==; two refs made separately never do.
type Ref struct {
	node string
	id   uint64
	term *resourceTerm
}

func (r Ref) IsZero() bool { return r.node == "" && r.id == 0 }

// IsResource reports whether r refers to a resource.
func (r Ref) IsResource() bool { return r.term != nil }

func (r Ref) String() string {
	if r.term != nil {
		return fmt.Sprintf("#Ref<%s.%d.%s>", r.node, r.id, r.term.res.typ.name)
	}
	return fmt.Sprintf("#Ref<%s.%d>", r.node, r.id)
}

// resourceTerm is the heap cell shared by all copies of a resource Ref. The
// runtime drops the term's reference on the resource once the cell becomes
// unreachable.
type resourceTerm struct {
	res *Resource
}

// serial hands out monotonically increasing ids.
type serial struct{ n atomic.Uint64 }

func (s *serial) next() uint64 { return s.n.Add(1) }
