package share

import (
	"fmt"

	"github.com/dop251/goja"
)

// Kind identifies the snapshot type held by a Capsule.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
)

// String returns the kind name used in errors and logs.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Capsule is a portable, self-contained snapshot of one shareable value.
// It owns an independent copy of the data, so it stays valid after the
// originating isolate is destroyed. Release is idempotent and never fails:
// a capsule whose origin is already gone is cleaned up against a neutral
// context, because the origin's resources are by definition already gone.
type Capsule struct {
	kind Kind
	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
	data []byte

	// origin is the identifier of the isolate the value was captured in.
	// Informational only; release never dereferences it.
	origin int64

	released bool
}

// IsShareable reports whether a value's kind is in the closed shareable set.
// It is a pure predicate: it never fails and produces no diagnostics.
func IsShareable(v interface{}) bool {
	switch v.(type) {
	case nil, bool, string, []byte,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// Capture snapshots a shareable value into a Capsule bound to the given
// originating isolate. Byte slices are deep-copied so the capsule keeps
// nothing of the source alive. Values outside the closed set fail with
// ErrNotShareable.
func Capture(v interface{}, origin int64) (*Capsule, error) {
	c := &Capsule{origin: origin}

	switch val := v.(type) {
	case nil:
		c.kind = KindNil
	case bool:
		c.kind = KindBool
		c.b = val
	case int:
		c.kind = KindInt
		c.i = int64(val)
	case int8:
		c.kind = KindInt
		c.i = int64(val)
	case int16:
		c.kind = KindInt
		c.i = int64(val)
	case int32:
		c.kind = KindInt
		c.i = int64(val)
	case int64:
		c.kind = KindInt
		c.i = val
	case uint:
		c.kind = KindUint
		c.u = uint64(val)
	case uint8:
		c.kind = KindUint
		c.u = uint64(val)
	case uint16:
		c.kind = KindUint
		c.u = uint64(val)
	case uint32:
		c.kind = KindUint
		c.u = uint64(val)
	case uint64:
		c.kind = KindUint
		c.u = val
	case float32:
		c.kind = KindFloat
		c.f = float64(val)
	case float64:
		c.kind = KindFloat
		c.f = val
	case string:
		c.kind = KindString
		c.s = val
	case []byte:
		c.kind = KindBytes
		c.data = append([]byte(nil), val...)
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotShareable, v)
	}

	return c, nil
}

// Kind returns the snapshot kind.
func (c *Capsule) Kind() Kind { return c.kind }

// Origin returns the identifier of the originating isolate.
func (c *Capsule) Origin() int64 { return c.origin }

// Released reports whether the capsule has been released.
func (c *Capsule) Released() bool { return c.released }

// Materialize reconstructs an equivalent value inside the target isolate's
// runtime. The capsule is not consumed; the same capsule can seed multiple
// targets. A released capsule, or an allocation failure inside the runtime,
// fails with ErrMaterializationFailed without a partially built value.
func (c *Capsule) Materialize(vm *goja.Runtime) (v goja.Value, err error) {
	if vm == nil {
		return nil, fmt.Errorf("%w: no target runtime", ErrMaterializationFailed)
	}
	if c.released {
		return nil, fmt.Errorf("%w: capsule already released", ErrMaterializationFailed)
	}

	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = fmt.Errorf("%w: %v", ErrMaterializationFailed, r)
		}
	}()

	switch c.kind {
	case KindNil:
		return goja.Null(), nil
	case KindBool:
		return vm.ToValue(c.b), nil
	case KindInt:
		return vm.ToValue(c.i), nil
	case KindUint:
		return vm.ToValue(c.u), nil
	case KindFloat:
		return vm.ToValue(c.f), nil
	case KindString:
		return vm.ToValue(c.s), nil
	case KindBytes:
		// Fresh copy per target so no buffer is shared across isolates.
		buf := append([]byte(nil), c.data...)
		return vm.ToValue(vm.NewArrayBuffer(buf)), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrMaterializationFailed, c.kind)
	}
}

// Export returns the snapshot as a plain Go value. Byte snapshots are copied.
func (c *Capsule) Export() interface{} {
	switch c.kind {
	case KindNil:
		return nil
	case KindBool:
		return c.b
	case KindInt:
		return c.i
	case KindUint:
		return c.u
	case KindFloat:
		return c.f
	case KindString:
		return c.s
	case KindBytes:
		return append([]byte(nil), c.data...)
	default:
		return nil
	}
}

// Release frees the capsule's snapshot. It is best-effort cleanup: calling
// it twice is a no-op, and it succeeds even when the originating isolate no
// longer exists, since the snapshot never references the origin.
func (c *Capsule) Release() {
	if c.released {
		return
	}
	c.released = true
	c.data = nil
	c.s = ""
}
