// Package enclave lets a host program create, enumerate, and destroy
// multiple isolated script execution contexts ("isolates") inside one
// process, run scripts inside a chosen isolate, and selectively move simple
// values between isolates.
//
// Each isolate has an independent global namespace and heap. Only a closed
// set of simple immutable value kinds (strings, byte slices, numbers,
// booleans, nil) may cross an isolate boundary, and failures raised inside
// an isolate cross it only as plain (type name, message) text, re-raised in
// the caller as *ScriptFailure.
//
//	id, err := enclave.Create(true)
//	err = enclave.RunString(id, "x = greeting.length", map[string]interface{}{
//		"greeting": "hello",
//	})
//	err = enclave.Destroy(id)
//
// The package-level functions operate on a process-scoped engine that is
// initialized lazily; Init and Shutdown give explicit control over its
// lifecycle.
package enclave
