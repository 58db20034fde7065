package inline

import (
	"sort"

	"vmopt/internal/ir"
	"vmopt/internal/resolve"
)

// CallGraph holds the caller->callees and callee->callers maps the
// scheduler walks bottom-up, plus the recursion-pruned edge set.
type CallGraph struct {
	methods   []*ir.Method
	resolver  *resolve.Resolver
	callers   map[string][]*ir.Method // callee key -> distinct callers
	callees   map[string][]*ir.Method // caller key -> distinct callees
	sites     map[string][]Site       // caller key -> concrete call sites
	depth     map[string]int          // method key -> max stack depth below it
}

// BuildCallGraph walks every method in methods, resolving each
// invoke-direct/-static/-virtual/-super instruction through resolver,
// and builds the bidirectional maps the bottom-up scheduler needs.
// Callers are visited in method-Key order and each caller's callees in
// program order, so repeated runs over the same input schedule
// identically.
func BuildCallGraph(methods []*ir.Method, resolver *resolve.Resolver) *CallGraph {
	cg := &CallGraph{
		methods:  methods,
		resolver: resolver,
		callers:  map[string][]*ir.Method{},
		callees:  map[string][]*ir.Method{},
		sites:    map[string][]Site{},
		depth:    map[string]int{},
	}

	sorted := append([]*ir.Method(nil), methods...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key() < sorted[j].Key() })

	for _, caller := range sorted {
		seenCallee := map[string]bool{}
		for _, b := range caller.Blocks {
			b.Each(func(i *ir.Insn) {
				if !i.Op.IsInvoke() || i.Method == nil {
					return
				}
				kind := searchKindOf(i.Op)
				callee := resolver.Resolve(i.Method, kind)
				if callee == nil || callee == caller {
					return // unresolved (outside scope) or direct self-recursion
				}
				cg.sites[caller.Key()] = append(cg.sites[caller.Key()], Site{
					Caller: caller, Callee: callee, Invoke: i,
				})
				if !seenCallee[callee.Key()] {
					seenCallee[callee.Key()] = true
					cg.callees[caller.Key()] = append(cg.callees[caller.Key()], callee)
					cg.callers[callee.Key()] = append(cg.callers[callee.Key()], caller)
				}
			})
		}
	}

	cg.pruneIndirectRecursion()
	cg.computeDepths()
	return cg
}

func searchKindOf(op ir.OpCode) resolve.SearchKind {
	switch op {
	case ir.OpInvokeDirect, ir.OpInvokeStatic:
		return resolve.SearchDirect
	case ir.OpInvokeSuper:
		return resolve.SearchSuper
	default:
		return resolve.SearchVirtual
	}
}

// pruneIndirectRecursion removes every callee edge that closes a cycle
// back to an ancestor still on the current DFS path (a classic
// back-edge removal), leaving a DAG the bottom-up schedule can always
// terminate over: mutual recursion is never inlined, only left in
// place. Pruning a back edge also drops its concrete call sites from
// cg.sites, so a pruned recursive edge is never offered to the Oracle
// or Mutator; without that, inlineInto would still splice a callee
// across an edge this pass claims to have removed.
func (cg *CallGraph) pruneIndirectRecursion() {
	onStack := map[string]bool{}
	visited := map[string]bool{}

	var visit func(key string)
	visit = func(key string) {
		if visited[key] {
			return
		}
		visited[key] = true
		onStack[key] = true

		kept := make([]*ir.Method, 0, len(cg.callees[key]))
		prunedCallees := map[string]bool{}
		for _, callee := range cg.callees[key] {
			if onStack[callee.Key()] {
				cg.removeCallerEdge(callee.Key(), key) // back edge: breaks the cycle
				prunedCallees[callee.Key()] = true
				continue
			}
			kept = append(kept, callee)
			visit(callee.Key())
		}
		cg.callees[key] = kept
		if len(prunedCallees) > 0 {
			sites := make([]Site, 0, len(cg.sites[key]))
			for _, s := range cg.sites[key] {
				if prunedCallees[s.Callee.Key()] {
					continue
				}
				sites = append(sites, s)
			}
			cg.sites[key] = sites
		}
		onStack[key] = false
	}

	for _, m := range cg.methods {
		visit(m.Key())
	}
}

func (cg *CallGraph) removeCallerEdge(calleeKey, callerKey string) {
	callers := cg.callers[calleeKey]
	for i, c := range callers {
		if c.Key() == callerKey {
			cg.callers[calleeKey] = append(callers[:i], callers[i+1:]...)
			return
		}
	}
}

// computeDepths assigns each method the length of the longest acyclic
// call chain below it, the stack-depth metric the Scheduler uses to
// schedule leaves before their callers.
func (cg *CallGraph) computeDepths() {
	var visit func(key string, onPath map[string]bool) int
	memo := map[string]int{}
	byKey := map[string]*ir.Method{}
	for _, m := range cg.methods {
		byKey[m.Key()] = m
	}
	visit = func(key string, onPath map[string]bool) int {
		if d, ok := memo[key]; ok {
			return d
		}
		if onPath[key] {
			return 0 // cycle guard; pruneIndirectRecursion already removed most of these
		}
		onPath[key] = true
		max := 0
		for _, callee := range cg.callees[key] {
			d := visit(callee.Key(), onPath)
			if d+1 > max {
				max = d + 1
			}
		}
		delete(onPath, key)
		memo[key] = max
		return max
	}
	for _, m := range cg.methods {
		cg.depth[m.Key()] = visit(m.Key(), map[string]bool{})
	}
}

// Depth returns m's computed stack depth (0 for leaves).
func (cg *CallGraph) Depth(m *ir.Method) int { return cg.depth[m.Key()] }

// Callees returns the distinct, acyclic callee set of caller.
func (cg *CallGraph) Callees(caller *ir.Method) []*ir.Method { return cg.callees[caller.Key()] }

// Callers returns the distinct caller set of callee.
func (cg *CallGraph) Callers(callee *ir.Method) []*ir.Method { return cg.callers[callee.Key()] }

// Sites returns every concrete call site within caller, in program
// order within each block and block order within the method.
func (cg *CallGraph) Sites(caller *ir.Method) []Site { return cg.sites[caller.Key()] }

// BottomUpOrder returns methods sorted by ascending depth (leaves
// first), ties broken by Key for determinism.
func (cg *CallGraph) BottomUpOrder() []*ir.Method {
	out := append([]*ir.Method(nil), cg.methods...)
	sort.Slice(out, func(i, j int) bool {
		di, dj := cg.depth[out[i].Key()], cg.depth[out[j].Key()]
		if di != dj {
			return di < dj
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}
