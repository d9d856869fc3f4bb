package requests

import "github.com/google/wire"

// ProviderSet is the wire provider set for request execution.
var ProviderSet = wire.NewSet(NewHTTPExecutor)
