// Package recorder provides an in-memory backend.Context that journals every
// call it receives.
//
// The recorder stands in for a GPU driver in tests and in the extsync CLI.
// Its journal is the observable command stream: the order of entries is the
// order in which operations were enqueued.
package recorder

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/extsync/backend"
	"github.com/wippyai/extsync/oshandle"
)

// Op names a journaled backend operation.
type Op string

const (
	OpCreateSemaphore   Op = "create-semaphore"
	OpCreateFence       Op = "create-fence"
	OpImportMemory      Op = "import-memory"
	OpSemaphoreWait     Op = "semaphore-wait"
	OpSemaphoreSignal   Op = "semaphore-signal"
	OpFenceServerSync   Op = "fence-server-sync"
	OpFenceServerSignal Op = "fence-server-signal"
	OpFlushResource     Op = "flush-resource"
	OpTransitionLayout  Op = "transition-layout"
	OpFlushContext      Op = "flush-context"
	OpRelease           Op = "release"
	OpAllocSemaphoreObj Op = "alloc-semaphore-object"
	OpAllocMemoryObj    Op = "alloc-memory-object"
)

// Call is one journal entry.
type Call struct {
	Op     Op     `msgpack:"op"`
	Target string `msgpack:"target,omitempty"`
	Layout string `msgpack:"layout,omitempty"`
	Seq    uint64 `msgpack:"seq"`
	Size   uint64 `msgpack:"size,omitempty"`
	FD     int    `msgpack:"fd,omitempty"`
}

func (c Call) String() string {
	s := fmt.Sprintf("#%d %s", c.Seq, c.Op)
	if c.Target != "" {
		s += " " + c.Target
	}
	if c.Layout != "" {
		s += " -> " + c.Layout
	}
	if c.Op == OpCreateSemaphore || c.Op == OpCreateFence || c.Op == OpImportMemory {
		s += fmt.Sprintf(" fd=%d", c.FD)
	}
	if c.Size != 0 {
		s += fmt.Sprintf(" size=%d", c.Size)
	}
	return s
}

// Options configures a recorder.
type Options struct {
	Logger *zap.Logger

	// Caps is reported by Capabilities.
	Caps backend.Caps

	// FailCreate makes every *FromHandle call fail.
	FailCreate bool

	// AllocLimit caps successful ObjectAllocator calls; 0 means unlimited.
	AllocLimit int

	// SkipFDCheck accepts descriptors without probing them.
	SkipFDCheck bool
}

// Context is a journaling backend.Context. Safe for concurrent use.
type Context struct {
	log    *zap.Logger
	calls  []Call
	opts   Options
	seq    uint64
	allocs int
	live   int
	nextID uint32
	mu     sync.Mutex
}

var (
	_ backend.Context         = (*Context)(nil)
	_ backend.ObjectAllocator = (*Context)(nil)
)

// New creates a recorder. A nil opts uses defaults.
func New(opts *Options) *Context {
	c := &Context{}
	if opts != nil {
		c.opts = *opts
	}
	c.log = c.opts.Logger
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Capabilities returns the configured capabilities.
func (c *Context) Capabilities() backend.Caps {
	return c.opts.Caps
}

// CreateSemaphoreFromHandle binds a semaphore to fd.
func (c *Context) CreateSemaphoreFromHandle(fd int) (backend.Semaphore, error) {
	if err := c.checkCreate(fd); err != nil {
		return nil, err
	}
	p := c.newPrimitive("semaphore")
	c.record(Call{Op: OpCreateSemaphore, Target: p.label, FD: fd})
	return p, nil
}

// CreateFenceFromHandle binds a fence to fd.
func (c *Context) CreateFenceFromHandle(fd int) (backend.Fence, error) {
	if err := c.checkCreate(fd); err != nil {
		return nil, err
	}
	p := c.newPrimitive("fence")
	c.record(Call{Op: OpCreateFence, Target: p.label, FD: fd})
	return p, nil
}

// ImportMemoryFromHandle binds a memory allocation of size bytes to fd.
func (c *Context) ImportMemoryFromHandle(fd int, size uint64) (backend.Memory, error) {
	if err := c.checkCreate(fd); err != nil {
		return nil, err
	}
	p := c.newPrimitive("memory")
	c.record(Call{Op: OpImportMemory, Target: p.label, FD: fd, Size: size})
	return &memory{primitive: p, size: size}, nil
}

// SemaphoreWait enqueues a wait on s.
func (c *Context) SemaphoreWait(s backend.Semaphore) {
	c.record(Call{Op: OpSemaphoreWait, Target: labelOf(s)})
}

// SemaphoreSignal enqueues a signal of s.
func (c *Context) SemaphoreSignal(s backend.Semaphore) {
	c.record(Call{Op: OpSemaphoreSignal, Target: labelOf(s)})
}

// FenceServerSync enqueues a wait on f.
func (c *Context) FenceServerSync(f backend.Fence) {
	c.record(Call{Op: OpFenceServerSync, Target: labelOf(f)})
}

// FenceServerSignal enqueues a signal of f.
func (c *Context) FenceServerSignal(f backend.Fence) {
	c.record(Call{Op: OpFenceServerSignal, Target: labelOf(f)})
}

// FlushResource enqueues pending writes to r.
func (c *Context) FlushResource(r backend.Resource) {
	c.record(Call{Op: OpFlushResource, Target: ResourceLabel(r)})
}

// TransitionResourceLayout enqueues a layout change of r.
func (c *Context) TransitionResourceLayout(r backend.Resource, layout backend.Layout) {
	c.record(Call{Op: OpTransitionLayout, Target: ResourceLabel(r), Layout: layout.String()})
}

// FlushContext submits everything enqueued so far.
func (c *Context) FlushContext() {
	c.record(Call{Op: OpFlushContext})
}

// AllocSemaphoreObject reserves per-object driver state.
func (c *Context) AllocSemaphoreObject(name uint32) error {
	return c.alloc(OpAllocSemaphoreObj, name)
}

// AllocMemoryObject reserves per-object driver state.
func (c *Context) AllocMemoryObject(name uint32) error {
	return c.alloc(OpAllocMemoryObj, name)
}

// Journal returns a copy of the calls recorded so far.
func (c *Context) Journal() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Ops returns the recorded operation names in order.
func (c *Context) Ops() []Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := make([]Op, len(c.calls))
	for i, call := range c.calls {
		ops[i] = call.Op
	}
	return ops
}

// Index returns the journal position of the first call matching op and
// target, or -1. An empty target matches any.
func (c *Context) Index(op Op, target string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, call := range c.calls {
		if call.Op == op && (target == "" || call.Target == target) {
			return i
		}
	}
	return -1
}

// Reset clears the journal. Live primitives are unaffected.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

// Live returns the number of primitives created and not yet released.
func (c *Context) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

func (c *Context) checkCreate(fd int) error {
	if c.opts.FailCreate {
		return fmt.Errorf("recorder: create from fd %d: injected failure", fd)
	}
	if !c.opts.SkipFDCheck && !oshandle.Valid(fd) {
		return fmt.Errorf("recorder: fd %d is not an open descriptor", fd)
	}
	return nil
}

func (c *Context) alloc(op Op, name uint32) error {
	c.mu.Lock()
	if c.opts.AllocLimit > 0 && c.allocs >= c.opts.AllocLimit {
		c.mu.Unlock()
		return fmt.Errorf("recorder: object %d: allocation limit %d reached", name, c.opts.AllocLimit)
	}
	c.allocs++
	c.mu.Unlock()

	c.record(Call{Op: op, Target: fmt.Sprintf("object:%d", name)})
	return nil
}

func (c *Context) newPrimitive(kind string) *primitive {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.live++
	return &primitive{ctx: c, label: fmt.Sprintf("%s#%d", kind, c.nextID)}
}

func (c *Context) record(call Call) {
	c.mu.Lock()
	c.seq++
	call.Seq = c.seq
	c.calls = append(c.calls, call)
	c.mu.Unlock()

	c.log.Debug("backend call",
		zap.Uint64("seq", call.Seq),
		zap.String("op", string(call.Op)),
		zap.String("target", call.Target),
		zap.String("layout", call.Layout))
}

type primitive struct {
	ctx      *Context
	label    string
	released bool
}

// Release frees the primitive. Repeated calls are ignored.
func (p *primitive) Release() {
	p.ctx.mu.Lock()
	if p.released {
		p.ctx.mu.Unlock()
		return
	}
	p.released = true
	p.ctx.live--
	p.ctx.mu.Unlock()

	p.ctx.record(Call{Op: OpRelease, Target: p.label})
}

// Label returns the journal name of the primitive.
func (p *primitive) Label() string {
	return p.label
}

type memory struct {
	*primitive
	size uint64
}

func (m *memory) Size() uint64 {
	return m.size
}

type labeled interface {
	Label() string
}

func labelOf(v any) string {
	if l, ok := v.(labeled); ok {
		return l.Label()
	}
	return fmt.Sprintf("%T", v)
}
