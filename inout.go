package activator

import (
	"go.uber.org/dig"
)

// In marks a parameter object for RegisterType. When a constructor takes a
// single struct embedding In, every exported field is activated from the
// registry instead of the struct itself.
//
// Supported field tags:
//   - `id:"primary"` activates the field under an explicit registration id
//   - `name:"primary"` is accepted as dig's spelling of id
//   - `optional:"true"` leaves the field zero when nothing is registered
//   - `inject:"-"` skips the field
//
// Example:
//
//	type ServerParams struct {
//	    activator.In
//
//	    Config *Config
//	    Store  Store   `id:"primary"`
//	    Cache  Cache   `optional:"true"`
//	}
//
// In is dig.In, so a parameter object written for dig works unchanged. Value
// groups are not supported.
type In = dig.In
