// Package builtin installs the native utilities every session offers.
//
//	adb.info(...)        concatenated arguments logged at info level
//	adb.error(...)       concatenated arguments logged at error level
//	console.log(...)     space-joined arguments (also info, debug, warn, error)
//	getJSCrypto(key)     object with seal(text) and open(sealed)
//	JSCrypto.key(key)    same as getJSCrypto
//	jscrypto.setkey(key) stateful variant with seal and open
//
// Sealed strings are base64 of a random nonce followed by the
// XChaCha20-Poly1305 ciphertext. The key is derived from the passphrase
// with HKDF-SHA256. seal and open return undefined on failure.
package builtin
