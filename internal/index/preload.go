package index

import (
	"fmt"

	"github.com/Shopify/go-lua"

	"github.com/dusk-indust/layercfg/internal/view"
)

// Script is a top-level [lua] preload script.
type Script struct {
	Name string
	Code string
	// Err is set when the code does not compile.
	Err error
}

// ExtractPreload collects top-level [lua] declarations and syntax-checks
// their code. Scripts are compiled, never run.
func ExtractPreload(v *view.Layered) []Script {
	var out []Script
	for i, n := range v.ChildRange("lua") {
		name := n.Get("name")
		if name == "" {
			name = fmt.Sprintf("preload#%d", i)
		}
		s := Script{Name: name, Code: n.Get("code")}
		s.Err = CheckScript(s.Name, s.Code)
		out = append(out, s)
	}
	return out
}

// CheckScript compiles code in a fresh Lua state without executing it.
func CheckScript(name, code string) error {
	state := lua.NewState()
	if err := lua.LoadBuffer(state, code, "="+name, ""); err != nil {
		return fmt.Errorf("index: compile %s: %w", name, err)
	}
	return nil
}
