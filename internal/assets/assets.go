package assets

import _ "embed"

// CollectorJS gathers an environment snapshot in the browser. It is served at
// /collector.js and injected into pages driven over CDP.
//
//go:embed collector.js
var CollectorJS []byte

// CollectExpression resolves to the snapshot object once CollectorJS has run.
const CollectExpression = "window.goblade.collect()"
