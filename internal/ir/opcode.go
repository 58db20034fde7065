// Package ir models the register bytecode the optimizer rewrites: a
// linked instruction list per basic block, grouped into a CFG with
// GOTO/BRANCH/GHOST edges, adapted from sentra's flat, array-indexed
// vmregister.Instruction encoding (internal/vmregister/bytecode.go) into
// a node-based representation so passes can buffer edits without
// invalidating each other's iterators (see internal/plan).
package ir

// OpCode mirrors the subset of vmregister.OpCode the optimizer cares
// about. Values intentionally don't match vmregister's numbering; this
// package is a rewriting-time view of a method, not the on-disk encoding.
type OpCode uint8

const (
	OpNop OpCode = iota

	// Moves: narrow and wide register-to-register copies.
	OpMove
	OpMoveWide

	// Constant-pool load: the Simplifier's materialization target, and
	// also accepted in input methods.
	OpConst

	// Field access, the register-ISA analogue of dex's sget/iget/aget.
	// Because this VM writes results directly into Dest, the primary
	// instruction and its "move-result-pseudo" coincide (see Insn.IsPrimaryOf).
	OpGetStatic // sget-like: static/global field read
	OpPutStatic // sput-like: static/global field write
	OpGetField  // iget-like: instance field read
	OpPutField  // iput-like: instance field write
	OpGetArray  // aget-like: array element read

	// Integer literal arithmetic (8/16-bit literal operand), the ADDK/
	// SUBK/MULK/DIVK/ADDI/SUBI family from vmregister.bytecode.go
	// generalized to the full literal-operator set the optimizer
	// reasons about.
	OpAddLit
	OpSubLit // reg - literal; there is no reverse (literal - reg) form
	OpMulLit
	OpAndLit
	OpOrLit
	OpXorLit
	OpShlLit
	OpShrLit
	OpUshrLit
	OpDivIntLit
	OpRemIntLit

	// Control flow.
	OpGoto
	OpIfEqz // conditional branch family; all share the two-successor shape
	OpIfNez
	OpIfLtz
	OpIfGez
	OpSwitch
	OpReturn

	// Calls (legality/oracle concerns only; no effect on the lattice).
	OpInvokeStatic
	OpInvokeDirect
	OpInvokeVirtual
	OpInvokeSuper
	OpMoveResult

	// sget of the platform SDK-version field; a call site carrying this
	// as its receiving instruction is never safe to speculate across.
	OpSdkVersionProbe
)

// IsBranch reports whether op ends a block with a control transfer that
// is not a fallthrough-only instruction.
func (op OpCode) IsBranch() bool {
	switch op {
	case OpGoto, OpIfEqz, OpIfNez, OpIfLtz, OpIfGez, OpSwitch, OpReturn:
		return true
	default:
		return false
	}
}

// IsConditionalBranch reports whether op has exactly two logical
// successors (goto-fallthrough and branch-taken).
func (op OpCode) IsConditionalBranch() bool {
	switch op {
	case OpIfEqz, OpIfNez, OpIfLtz, OpIfGez:
		return true
	default:
		return false
	}
}

func (op OpCode) IsSwitch() bool { return op == OpSwitch }

func (op OpCode) IsMove() bool { return op == OpMove || op == OpMoveWide }

// IsFieldGet reports the sget/iget/aget family that the Simplifier may
// fold into a constant load when the destination is known.
func (op OpCode) IsFieldGet() bool {
	switch op {
	case OpGetStatic, OpGetField, OpGetArray:
		return true
	default:
		return false
	}
}

// IsFieldPut reports the sput/iput family the Redundant-Store
// Eliminator examines.
func (op OpCode) IsFieldPut() bool {
	return op == OpPutStatic || op == OpPutField
}

// IsDivOrRemIntLit reports the div-int/lit and rem-int/lit family,
// which may also be folded by the Simplifier (possible divide-by-zero
// aside: materialization simply returns no instructions in that case).
func (op OpCode) IsDivOrRemIntLit() bool {
	return op == OpDivIntLit || op == OpRemIntLit
}

// IsLiteralArithmetic reports the 8/16-bit-literal integer arithmetic
// family the Simplifier always attempts to materialize.
func (op OpCode) IsLiteralArithmetic() bool {
	switch op {
	case OpAddLit, OpSubLit, OpMulLit, OpAndLit, OpOrLit, OpXorLit,
		OpShlLit, OpShrLit, OpUshrLit, OpDivIntLit, OpRemIntLit:
		return true
	default:
		return false
	}
}

func (op OpCode) IsInvoke() bool {
	switch op {
	case OpInvokeStatic, OpInvokeDirect, OpInvokeVirtual, OpInvokeSuper:
		return true
	default:
		return false
	}
}

func (op OpCode) IsMoveResultPseudo() bool { return op == OpMoveResult }

func (op OpCode) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return "UNKNOWN"
}

var opNames = map[OpCode]string{
	OpNop: "nop", OpMove: "move", OpMoveWide: "move-wide", OpConst: "const",
	OpGetStatic: "sget", OpPutStatic: "sput", OpGetField: "iget",
	OpPutField: "iput", OpGetArray: "aget",
	OpAddLit: "add-lit", OpSubLit: "sub-lit", OpMulLit: "mul-lit",
	OpAndLit: "and-lit", OpOrLit: "or-lit", OpXorLit: "xor-lit",
	OpShlLit: "shl-lit", OpShrLit: "shr-lit", OpUshrLit: "ushr-lit",
	OpDivIntLit: "div-int-lit", OpRemIntLit: "rem-int-lit",
	OpGoto: "goto", OpIfEqz: "if-eqz", OpIfNez: "if-nez", OpIfLtz: "if-ltz",
	OpIfGez: "if-gez", OpSwitch: "switch", OpReturn: "return",
	OpInvokeStatic: "invoke-static", OpInvokeDirect: "invoke-direct",
	OpInvokeVirtual: "invoke-virtual", OpInvokeSuper: "invoke-super",
	OpMoveResult: "move-result-pseudo", OpSdkVersionProbe: "sget-sdk-version",
}
