package bytecode

import "github.com/fusabi-lang/fusabi/internal/vm"

// ResolveNatives walks every Value a decoded Chunk can reach — its own
// Constants, each Function's nested Chunk, and any Closure captured
// inside those — and calls resolve on every NativeFn prototype found,
// re-binding its Impl against a host registry. It returns the
// names of any NativeFn that resolve left unbound, so a loader can
// decide whether to treat that as fatal or defer to first-use
// UndefinedGlobal.
func ResolveNatives(c *vm.Chunk, resolve func(*vm.NativeFn) bool) []string {
	var unresolved []string
	walkChunk(c, resolve, &unresolved)
	return unresolved
}

func walkChunk(c *vm.Chunk, resolve func(*vm.NativeFn) bool, unresolved *[]string) {
	for _, v := range c.Constants {
		walkValue(v, resolve, unresolved)
	}
	for _, fn := range c.Functions {
		walkChunk(fn.Chunk, resolve, unresolved)
	}
}

func walkValue(v vm.Value, resolve func(*vm.NativeFn) bool, unresolved *[]string) {
	switch v.Kind {
	case vm.KindNativeFn:
		n := v.AsNativeFn()
		if n.Impl == nil && !resolve(n) {
			*unresolved = append(*unresolved, n.Name)
		}
	case vm.KindClosure:
		cl := v.AsClosure()
		walkChunk(cl.Fn.Chunk, resolve, unresolved)
		for _, u := range cl.Upvalues {
			if !u.Open {
				walkValue(u.Closed, resolve, unresolved)
			}
		}
		for _, b := range cl.Bound {
			walkValue(b, resolve, unresolved)
		}
	}
}
