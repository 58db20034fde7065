package analysis

// mapWPS is the concrete WholeProgramState: a flat mapping from field
// identity to AV, valid everywhere outside the declaring class's own
// initializer.
type mapWPS struct {
	fields map[fieldKeyT]AV
}

func NewWholeProgramState() *mapWPS {
	return &mapWPS{fields: map[fieldKeyT]AV{}}
}

func (w *mapWPS) Field(owner, name string) AV {
	if v, ok := w.fields[fieldKeyT{owner, name}]; ok {
		return v
	}
	return Top()
}

// Set records the summarized value of a field across all traces
// outside its declaring class's initializer. Populated by whatever
// external whole-program summary pass feeds the optimizer; tests
// populate it directly.
func (w *mapWPS) Set(owner, name string, v AV) {
	w.fields[fieldKeyT{owner, name}] = v
}
