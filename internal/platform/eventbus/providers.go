package eventbus

import "github.com/google/wire"

// ProviderSet is the wire provider set for the event bus. Callers supply
// the factory, since building a bus depends on the process role.
var ProviderSet = wire.NewSet(NewRegistry)
