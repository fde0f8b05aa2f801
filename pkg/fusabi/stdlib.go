package fusabi

import (
	"fmt"

	"github.com/fusabi-lang/fusabi/internal/stdlib"
)

// PreloadStdlib installs the named native modules into the Engine's
// host registry, for embedders and cmd/fusabi driving a fusabi.yaml
// project's preload_stdlib list. Valid names are "core", "encoding",
// "db", and "grpc"; "core" also pulls in the Option and Result
// modules, since scripts routinely pattern-match on list-traversal
// results without naming Option/Result separately in their preload
// list. Unknown names are a startup error — a typo in a project file
// should fail loudly, not silently skip a module a script then calls
// into as an undefined global.
func (e *Engine) PreloadStdlib(names []string) error {
	for _, name := range names {
		if err := e.preloadOne(name); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) preloadOne(name string) error {
	switch name {
	case "core":
		if err := e.RegisterModule(stdlib.Core(e.machine)); err != nil {
			return err
		}
		if err := e.RegisterModule(stdlib.Option(e.machine)); err != nil {
			return err
		}
		return e.RegisterModule(stdlib.Result(e.machine))
	case "encoding":
		return e.RegisterModule(stdlib.Encoding(e.machine))
	case "db":
		return e.RegisterModule(stdlib.Db())
	case "grpc":
		return e.RegisterModule(stdlib.Grpc())
	default:
		return fmt.Errorf("fusabi: unknown stdlib module %q", name)
	}
}
