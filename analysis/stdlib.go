// Copyright © 2024 The ELPS authors

package analysis

import (
	"sort"
	"sync"

	"github.com/dop251/goja"
)

var (
	standardOnce    sync.Once
	standardGlobals []string
)

// StandardGlobals returns the sorted names an ECMAScript engine defines on
// its global object, such as Object, JSON and parseInt. The set is read
// from a fresh goja runtime, so it follows the language level of the
// engine.
func StandardGlobals() []string {
	standardOnce.Do(func() {
		vm := goja.New()
		v, err := vm.RunString("Object.getOwnPropertyNames(globalThis)")
		if err == nil {
			err = vm.ExportTo(v, &standardGlobals)
		}
		if err != nil {
			// The runtime always supports the expression above.
			panic(err)
		}
		sort.Strings(standardGlobals)
	})
	return append([]string(nil), standardGlobals...)
}
