package lir

import (
	"sort"

	"jitcore/internal/cfg"
	"jitcore/internal/graph"
	"jitcore/internal/schedule"
)

// ABI describes where a foreign call's arguments and result live.
type ABI struct {
	ArgLocations   []Operand
	ResultLocation Operand
}

// ForeignCallResolver reports the ABI for a method if it is a foreign
// (native, non-graph) call, ok=false for an ordinary graph-resident
// callee. Supplying the ABI out of band mirrors internal/inline's
// CalleeResolver: this package only lowers graph shapes it is handed,
// never decides which methods are foreign on its own.
type ForeignCallResolver func(m graph.MethodRef) (ABI, bool)

// GenFunc is an architecture-specific generator hook for one graph
// node kind; it appends whatever instructions that node lowers to via
// em.Emit. Kinds with no registered hook fall back to genericEmit,
// which covers every kind this module's graph can produce.
type GenFunc func(em *Emitter, id graph.ID)

// Emitter holds the state threaded through one LIR generation pass.
type Emitter struct {
	g       *graph.Graph
	c       *cfg.CFG
	sched   *schedule.Result
	foreign ForeignCallResolver
	hooks   map[graph.Kind]GenFunc

	values   map[graph.ID]ValueID
	nextFree ValueID
	cur      *Block
	frame    Frame
}

// ValueOf returns the stable LIR value identity of a graph node's
// result, assigning a fresh one the first time it is referenced.
func (em *Emitter) ValueOf(id graph.ID) ValueID {
	if v, ok := em.values[id]; ok {
		return v
	}
	v := em.nextFree
	em.nextFree++
	em.values[id] = v
	return v
}

// FreshValue allocates a LIR value with no corresponding graph node,
// for generator hooks that synthesize an intermediate.
func (em *Emitter) FreshValue() ValueID {
	v := em.nextFree
	em.nextFree++
	return v
}

// Emit appends an instruction to the block currently being built.
func (em *Emitter) Emit(op string, node graph.ID, operands []Operand, safepoint bool) *Instruction {
	inst := &Instruction{ID: -1, Op: op, Node: node, Operands: operands, Safepoint: safepoint}
	em.cur.Insts = append(em.cur.Insts, inst)
	return inst
}

// Generate lowers g into a Program with one LIR block per CFG block,
// walking the blocks in c.Blocks() order and, within each block, the
// node order sched prescribes. hooks overrides genericEmit per kind; a nil hooks map
// lowers every node through the generic path.
func Generate(g *graph.Graph, c *cfg.CFG, sched *schedule.Result, foreign ForeignCallResolver, hooks map[graph.Kind]GenFunc) (*Program, *Frame) {
	em := &Emitter{
		g:       g,
		c:       c,
		sched:   sched,
		foreign: foreign,
		hooks:   hooks,
		values:  map[graph.ID]ValueID{},
	}
	prog := &Program{}
	for _, b := range c.Blocks() {
		em.cur = &Block{BlockID: b.ID()}
		if b == c.Entry() {
			em.emitParameters()
		}
		for _, id := range sched.Order(b) {
			em.emitOne(id)
		}
		prog.Blocks = append(prog.Blocks, em.cur)
	}
	return prog, &em.frame
}

// emitParameters emits every live Parameter node, ordered by index.
// Parameters are excluded from schedule.Schedule's floating-node
// placement (see schedule.floatingNodes), so Generate seeds them into
// the entry block itself rather than relying on sched.Order to surface
// them.
func (em *Emitter) emitParameters() {
	params := em.g.Iterate(graph.KindParameter)
	sort.Slice(params, func(i, j int) bool {
		pi, _ := em.g.ParameterIndex(params[i])
		pj, _ := em.g.ParameterIndex(params[j])
		return pi < pj
	})
	for _, id := range params {
		em.Emit("param", id, []Operand{{Mode: ModeDef, Flag: FlagReg, Value: em.ValueOf(id)}}, false)
	}
}

func (em *Emitter) emitOne(id graph.ID) {
	n := em.g.Node(id)
	if n == nil || n.Deleted() {
		return
	}
	if hook, ok := em.hooks[n.Kind()]; ok {
		hook(em, id)
		return
	}
	em.genericEmit(id)
}

var binaryOpNames = map[graph.BinaryOp]string{
	graph.OpAdd: "add", graph.OpSub: "sub", graph.OpMul: "mul", graph.OpDiv: "div",
	graph.OpAnd: "and", graph.OpOr: "or", graph.OpXor: "xor", graph.OpShl: "shl", graph.OpShr: "shr",
}

var compareOpNames = map[graph.CompareOp]string{
	graph.CmpEQ: "cmp_eq", graph.CmpNE: "cmp_ne", graph.CmpLT: "cmp_lt",
	graph.CmpLE: "cmp_le", graph.CmpGT: "cmp_gt", graph.CmpGE: "cmp_ge",
}

func (em *Emitter) genericEmit(id graph.ID) {
	n := em.g.Node(id)
	switch n.Kind() {
	case graph.KindConstant:
		v, _ := em.g.ConstantValue(id)
		em.Emit("const", id, []Operand{{Mode: ModeDef, Flag: FlagReg, Value: em.ValueOf(id), Imm: v}}, false)

	case graph.KindBinary:
		op, _ := em.g.BinaryOp(id)
		ins := em.g.Inputs(id)
		em.Emit(binaryOpNames[op], id, []Operand{
			{Mode: ModeUse, Flag: FlagReg, Value: em.ValueOf(ins[0])},
			{Mode: ModeUse, Flag: FlagReg, Value: em.ValueOf(ins[1])},
			{Mode: ModeDef, Flag: FlagReg, Value: em.ValueOf(id)},
		}, false)

	case graph.KindCompare:
		op, _ := em.g.CompareOp(id)
		ins := em.g.Inputs(id)
		em.Emit(compareOpNames[op], id, []Operand{
			{Mode: ModeUse, Flag: FlagReg, Value: em.ValueOf(ins[0])},
			{Mode: ModeUse, Flag: FlagReg, Value: em.ValueOf(ins[1])},
			{Mode: ModeDef, Flag: FlagReg, Value: em.ValueOf(id)},
		}, false)

	case graph.KindUnary:
		ins := em.g.Inputs(id)
		op := "neg"
		if !em.g.UnaryNegates(id) {
			op = "move"
		}
		em.Emit(op, id, []Operand{
			{Mode: ModeUse, Flag: FlagReg, Value: em.ValueOf(ins[0])},
			{Mode: ModeDef, Flag: FlagReg, Value: em.ValueOf(id)},
		}, false)

	case graph.KindLoadHub:
		ins := em.g.Inputs(id)
		em.Emit("load_hub", id, []Operand{
			{Mode: ModeUse, Flag: FlagReg, Value: em.ValueOf(ins[0])},
			{Mode: ModeDef, Flag: FlagReg, Value: em.ValueOf(id)},
		}, false)

	case graph.KindPi:
		ins := em.g.Inputs(id)
		// A Pi carries no runtime effect of its own: it aliases its
		// refined-type operand's value identity directly rather than
		// emitting a redundant move.
		em.values[id] = em.ValueOf(ins[0])

	case graph.KindLoadField, graph.KindFloatingRead:
		var object, memory graph.ID
		if n.Kind() == graph.KindLoadField {
			object, memory, _ = em.g.LoadFieldOperands(id)
		} else {
			ins := em.g.Inputs(id)
			object, memory = ins[0], ins[1]
		}
		em.Emit("load_field", id, []Operand{
			{Mode: ModeUse, Flag: FlagReg, Value: em.ValueOf(object)},
			{Mode: ModeAlive, Flag: FlagReg, Value: em.ValueOf(memory)},
			{Mode: ModeDef, Flag: FlagReg, Value: em.ValueOf(id)},
		}, false)

	case graph.KindStoreField:
		object, value, memory, _ := em.g.StoreFieldOperands(id)
		em.Emit("store_field", id, []Operand{
			{Mode: ModeUse, Flag: FlagReg, Value: em.ValueOf(object)},
			{Mode: ModeUse, Flag: FlagReg, Value: em.ValueOf(value)},
			{Mode: ModeAlive, Flag: FlagReg, Value: em.ValueOf(memory)},
		}, false)

	case graph.KindMonitorEnter, graph.KindMonitorExit:
		object, memory, _ := em.g.MonitorOperands(id)
		op := "monitor_enter"
		if n.Kind() == graph.KindMonitorExit {
			op = "monitor_exit"
		}
		em.Emit(op, id, []Operand{
			{Mode: ModeUse, Flag: FlagReg, Value: em.ValueOf(object)},
			{Mode: ModeAlive, Flag: FlagReg, Value: em.ValueOf(memory)},
		}, true)

	case graph.KindReturn:
		ins := em.g.Inputs(id)
		em.Emit("return", id, []Operand{
			{Mode: ModeUse, Flag: FlagReg, Value: em.ValueOf(ins[0])},
			{Mode: ModeAlive, Flag: FlagReg, Value: em.ValueOf(ins[1])},
		}, false)

	case graph.KindIf:
		cond, _ := em.g.IfCondition(id)
		succs := n.Successors()
		targets := make([]int, 0, len(succs))
		for _, s := range succs {
			if sb := em.blockIDOf(s); sb >= 0 {
				targets = append(targets, sb)
			}
		}
		inst := em.Emit("branch", id, []Operand{{Mode: ModeUse, Flag: FlagReg, Value: em.ValueOf(cond)}}, false)
		inst.Targets = targets

	case graph.KindInvoke:
		em.emitInvoke(id)

	case graph.KindDeoptimize:
		ins := em.g.Inputs(id)
		em.Emit("deoptimize", id, []Operand{{Mode: ModeAlive, Flag: FlagReg, Value: em.ValueOf(ins[0])}}, true)

	case graph.KindUnreachable:
		em.Emit("unreachable", id, nil, false)

	default:
		// Begin/Merge/End/Start carry no runtime effect of their own;
		// Phi/MemoryPhi resolution is a scope gap, see DESIGN.md.
	}
}

// blockIDOf resolves a fixed successor node to the CFG block id it
// begins, for an If's emitted "branch" instruction Targets.
func (em *Emitter) blockIDOf(fixedSucc graph.ID) int {
	b := em.c.BlockOf(fixedSucc)
	if b == nil {
		return -1
	}
	return b.ID()
}

func (em *Emitter) emitInvoke(id graph.ID) {
	method, _ := em.g.InvokeMethod(id)
	receiver, args, memory, _, _ := em.g.InvokeOperands(id)
	static := em.g.InvokeStatic(id)
	allArgs := args
	if !static {
		allArgs = append([]graph.ID{receiver}, args...)
	}

	if em.foreign != nil {
		if abi, ok := em.foreign(method); ok {
			em.emitForeignCall(id, allArgs, memory, abi)
			return
		}
	}

	operands := make([]Operand, 0, len(allArgs)+2)
	for _, a := range allArgs {
		operands = append(operands, Operand{Mode: ModeUse, Flag: FlagReg, Value: em.ValueOf(a)})
	}
	operands = append(operands, Operand{Mode: ModeAlive, Flag: FlagReg, Value: em.ValueOf(memory)})
	operands = append(operands, Operand{Mode: ModeDef, Flag: FlagReg, Value: em.ValueOf(id)})
	em.Emit("call", id, operands, true)
}

// emitForeignCall lowers a foreign invoke per spec.md §4.9: arguments
// move to ABI-defined locations, the result copies back to a fresh
// variable, and the frame is marked as using outgoing space.
func (em *Emitter) emitForeignCall(id graph.ID, args []graph.ID, memory graph.ID, abi ABI) {
	if len(abi.ArgLocations) < len(args) {
		return // malformed ABI supplied by the caller; nothing safe to emit
	}
	for i, a := range args {
		loc := abi.ArgLocations[i]
		em.Emit("move", 0, []Operand{
			{Mode: ModeUse, Flag: FlagReg, Value: em.ValueOf(a)},
			{Mode: ModeDef, Flag: loc.Flag, Value: loc.Value},
		}, false)
	}
	em.Emit("call_foreign", id, []Operand{{Mode: ModeAlive, Flag: FlagReg, Value: em.ValueOf(memory)}}, true)

	fresh := em.ValueOf(id)
	em.Emit("move", 0, []Operand{
		{Mode: ModeUse, Flag: abi.ResultLocation.Flag, Value: abi.ResultLocation.Value},
		{Mode: ModeDef, Flag: FlagReg, Value: fresh},
	}, false)
	em.frame.UsesOutgoingSpace = true
}
