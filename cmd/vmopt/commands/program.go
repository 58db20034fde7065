// cmd/vmopt/commands/program.go
package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"vmopt/internal/ir"
)

// programFile is the on-disk JSON shape the optimize/stats commands
// load: a flat list of methods, each a flat list of labeled blocks,
// driving commands off a plain JSON fixture rather than introducing a
// config-file library. It covers the instruction subset
// CPT and MMI actually reason about (arithmetic, moves, field access,
// calls, branches, return); OpSwitch and OpGetArray fixtures are left
// to the package tests, which build them directly in Go.
type programFile struct {
	Methods []methodFile `json:"methods"`
}

type methodFile struct {
	Owner  string       `json:"owner"`
	Name   string       `json:"name"`
	Arity  int          `json:"arity"`
	Public bool         `json:"public"`
	Consts []constFile  `json:"consts"`
	Blocks []blockFile  `json:"blocks"`
}

type constFile struct {
	Kind string `json:"kind"` // "int", "bool", "float", "string"
	I    int64  `json:"i"`
	F    float64 `json:"f"`
	S    string `json:"s"`
}

type blockFile struct {
	Label string     `json:"label"`
	Insns []insnFile `json:"insns"`
	Succs []edgeFile `json:"succs"`
}

type edgeFile struct {
	Type   string `json:"type"` // "goto" or "branch"
	Target string `json:"target"`
}

type insnFile struct {
	Op     string   `json:"op"`
	Dest   int      `json:"dest"`
	Src1   int      `json:"src1"`
	Src2   int      `json:"src2"`
	Lit    int64    `json:"lit"`
	Const  int      `json:"const"`
	Target string   `json:"target"` // block label, for goto/if
	Field  string   `json:"field"`  // "Owner.Name"
	Method string   `json:"method"` // "Owner.Name"
	Args   []int    `json:"args"`
}

// loadProgram reads path and builds a fully-linked []*ir.Method,
// resolving block-label references (goto/if targets, succs) within
// each method independently.
func loadProgram(path string) ([]*ir.Method, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program file: %w", err)
	}
	var pf programFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse program file: %w", err)
	}

	methods := make([]*ir.Method, 0, len(pf.Methods))
	for _, mf := range pf.Methods {
		m, err := buildMethod(mf)
		if err != nil {
			return nil, fmt.Errorf("method %s#%s: %w", mf.Owner, mf.Name, err)
		}
		methods = append(methods, m)
	}
	return methods, nil
}

func buildMethod(mf methodFile) (*ir.Method, error) {
	m := &ir.Method{Owner: mf.Owner, Name: mf.Name, Arity: mf.Arity, IsPublic: mf.Public}
	for _, cf := range mf.Consts {
		v, err := buildConst(cf)
		if err != nil {
			return nil, err
		}
		m.Consts = append(m.Consts, v)
	}

	blocksByLabel := map[string]*ir.Block{}
	for _, bf := range mf.Blocks {
		blocksByLabel[bf.Label] = m.AddBlock(bf.Label)
	}
	for _, bf := range mf.Blocks {
		b := blocksByLabel[bf.Label]
		for _, insnF := range bf.Insns {
			insn, err := buildInsn(insnF, blocksByLabel)
			if err != nil {
				return nil, err
			}
			b.Append(insn)
		}
		for _, ef := range bf.Succs {
			target, ok := blocksByLabel[ef.Target]
			if !ok {
				return nil, fmt.Errorf("block %q: unknown successor label %q", bf.Label, ef.Target)
			}
			edgeType := ir.EdgeGoto
			if ef.Type == "branch" {
				edgeType = ir.EdgeBranch
			}
			b.Succs = append(b.Succs, ir.Edge{Type: edgeType, Target: target})
		}
	}
	return m, nil
}

func buildConst(cf constFile) (ir.Value, error) {
	switch cf.Kind {
	case "int":
		return ir.Int(cf.I), nil
	case "bool":
		return ir.Bool(cf.I != 0), nil
	case "float":
		return ir.Float(cf.F), nil
	case "string":
		return ir.Str(cf.S), nil
	default:
		return ir.Value{}, fmt.Errorf("unknown const kind %q", cf.Kind)
	}
}

var opByName = map[string]ir.OpCode{
	"move": ir.OpMove, "move-wide": ir.OpMoveWide, "const": ir.OpConst,
	"sget": ir.OpGetStatic, "sput": ir.OpPutStatic,
	"iget": ir.OpGetField, "iput": ir.OpPutField,
	"add-lit": ir.OpAddLit, "sub-lit": ir.OpSubLit, "mul-lit": ir.OpMulLit,
	"and-lit": ir.OpAndLit, "or-lit": ir.OpOrLit, "xor-lit": ir.OpXorLit,
	"shl-lit": ir.OpShlLit, "shr-lit": ir.OpShrLit, "ushr-lit": ir.OpUshrLit,
	"div-int-lit": ir.OpDivIntLit, "rem-int-lit": ir.OpRemIntLit,
	"goto": ir.OpGoto, "if-eqz": ir.OpIfEqz, "if-nez": ir.OpIfNez,
	"if-ltz": ir.OpIfLtz, "if-gez": ir.OpIfGez, "return": ir.OpReturn,
	"invoke-static": ir.OpInvokeStatic, "invoke-direct": ir.OpInvokeDirect,
	"invoke-virtual": ir.OpInvokeVirtual, "invoke-super": ir.OpInvokeSuper,
	"move-result": ir.OpMoveResult,
}

func buildInsn(f insnFile, blocksByLabel map[string]*ir.Block) (*ir.Insn, error) {
	op, ok := opByName[f.Op]
	if !ok {
		return nil, fmt.Errorf("unknown opcode %q", f.Op)
	}
	insn := &ir.Insn{
		Op: op, Dest: ir.Reg(f.Dest), Src1: ir.Reg(f.Src1), Src2: ir.Reg(f.Src2),
		Lit: f.Lit, Const: f.Const,
	}
	for _, a := range f.Args {
		insn.Args = append(insn.Args, ir.Reg(a))
	}
	if op == ir.OpGoto || op.IsConditionalBranch() {
		target, ok := blocksByLabel[f.Target]
		if !ok {
			return nil, fmt.Errorf("instruction %q: unknown target label %q", f.Op, f.Target)
		}
		insn.Target = target
	}
	if f.Field != "" {
		owner, name, err := splitDotted(f.Field)
		if err != nil {
			return nil, err
		}
		insn.Field = &ir.FieldRef{Owner: owner, Name: name, ClassKnown: true, Public: true}
	}
	if f.Method != "" {
		owner, name, err := splitDotted(f.Method)
		if err != nil {
			return nil, err
		}
		insn.Method = &ir.MethodRef{Owner: owner, Name: name, ClassKnown: true, Public: true}
	}
	return insn, nil
}

func splitDotted(s string) (owner, name string, err error) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[:i], s[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("expected Owner.Name, got %q", s)
}
