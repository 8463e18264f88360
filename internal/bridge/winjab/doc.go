// Package winjab is the Windows implementation of the bridge.API contract,
// binding WindowsAccessBridge-64.dll through golang.org/x/sys/windows.
//
// The Access Bridge is thread-affine: Windows_run must be called on the
// thread that will pump window messages, and callbacks fire during message
// dispatch on that same thread. The backend therefore locks one goroutine to
// an OS thread, runs the pump there, and funnels every native call through
// it. Importing this package for side effects registers the backend:
//
//	import _ "github.com/openjab/jab-cli/internal/bridge/winjab"
//
// On other platforms the package compiles to nothing and bridge.NewAPI
// reports ErrUnsupported.
package winjab
