// Package marshal converts values between goja and the host value model.
//
// Script to host:
//
//	undefined, null          -> none
//	boolean                  -> bool
//	integral number          -> int
//	other number             -> double
//	string                   -> string
//	ArrayBuffer, Uint8Array  -> binary (copied)
//	bridge proxy             -> object id
//	Date, RegExp             -> double / string when enabled in Options
//	anything else            -> none, logged as "marshal ambiguous"
//
// Host to script is the inverse: none becomes null, binary a fresh
// ArrayBuffer, lists and maps become arrays and plain objects, and object
// ids become the proxy the Binder returns.
package marshal
