package builtin

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/wippyai/jsbridge/errors"
)

// associatedData binds every ciphertext to this helper.
const associatedData = "jscrypto"

// Argon2id parameters for passphrase keys.
const (
	saltSize     = 16
	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
)

// Sealer encrypts short strings with a key derived from a passphrase.
// Output is base64(salt || nonce || ciphertext) using Argon2id for key
// derivation and XChaCha20-Poly1305 for encryption. Any Sealer built from
// the same passphrase opens the output.
type Sealer struct {
	aead       cipher.AEAD
	passphrase []byte
	salt       []byte

	mu      sync.Mutex
	foreign map[string]cipher.AEAD
}

// NewSealer derives a key from passphrase under a fresh random salt.
func NewSealer(passphrase string) (*Sealer, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(errors.PhaseBuiltin, errors.KindCrypto, err, "salt")
	}
	s := &Sealer{
		passphrase: []byte(passphrase),
		salt:       salt,
		foreign:    make(map[string]cipher.AEAD),
	}
	aead, err := s.derive(salt)
	if err != nil {
		return nil, err
	}
	s.aead = aead
	return s, nil
}

func (s *Sealer) derive(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(s.passphrase, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseBuiltin, errors.KindCrypto, err, "init cipher")
	}
	return aead, nil
}

// cipherFor returns the cipher for salt, deriving and caching it when the
// input was sealed by another Sealer.
func (s *Sealer) cipherFor(salt []byte) (cipher.AEAD, error) {
	if string(salt) == string(s.salt) {
		return s.aead, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if aead, ok := s.foreign[string(salt)]; ok {
		return aead, nil
	}
	aead, err := s.derive(salt)
	if err != nil {
		return nil, err
	}
	s.foreign[string(salt)] = aead
	return aead, nil
}

// Seal encrypts plaintext under a fresh random nonce.
func (s *Sealer) Seal(plaintext string) (string, error) {
	ns := s.aead.NonceSize()
	out := make([]byte, saltSize+ns, saltSize+ns+len(plaintext)+s.aead.Overhead())
	copy(out, s.salt)
	nonce := out[saltSize:]
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(errors.PhaseBuiltin, errors.KindCrypto, err, "nonce")
	}
	out = s.aead.Seal(out, nonce, []byte(plaintext), []byte(associatedData))
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Tampered or foreign input fails authentication.
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", errors.Wrap(errors.PhaseBuiltin, errors.KindCrypto, err, "decode")
	}
	ns := s.aead.NonceSize()
	if len(raw) < saltSize+ns+s.aead.Overhead() {
		return "", errors.New(errors.PhaseBuiltin, errors.KindCrypto).Detail("ciphertext too short").Build()
	}
	aead, err := s.cipherFor(raw[:saltSize])
	if err != nil {
		return "", err
	}
	nonce, ct := raw[saltSize:saltSize+ns], raw[saltSize+ns:]
	pt, err := aead.Open(nil, nonce, ct, []byte(associatedData))
	if err != nil {
		return "", errors.Wrap(errors.PhaseBuiltin, errors.KindCrypto, err, "open")
	}
	return string(pt), nil
}

// keyArg returns the passphrase argument. A missing key is a TypeError.
func keyArg(rt *goja.Runtime, call goja.FunctionCall) string {
	key := call.Argument(0)
	if goja.IsUndefined(key) || goja.IsNull(key) {
		panic(rt.NewTypeError("a key is required"))
	}
	return key.String()
}

// InstallCrypto installs getJSCrypto(key), JSCrypto.key(key) and the
// stateful jscrypto object with setkey, seal and open. Failed operations
// yield undefined.
func InstallCrypto(rt *goja.Runtime, log *zap.Logger) error {
	log = log.With(zap.String("builtin", "jscrypto"))

	factory := func(call goja.FunctionCall) goja.Value {
		s, err := NewSealer(keyArg(rt, call))
		if err != nil {
			log.Error("create sealer", zap.Error(err))
			return goja.Undefined()
		}
		return sealerObject(rt, s, log)
	}

	if err := rt.Set("getJSCrypto", factory); err != nil {
		return errors.Registration(errors.PhaseBuiltin, "getJSCrypto", err)
	}
	if err := setObject(rt, "JSCrypto", method{name: "key", fn: factory}); err != nil {
		return err
	}

	var current *Sealer
	return setObject(rt, "jscrypto",
		method{name: "setkey", fn: func(call goja.FunctionCall) goja.Value {
			s, err := NewSealer(keyArg(rt, call))
			if err != nil {
				log.Error("setkey", zap.Error(err))
				return rt.ToValue(false)
			}
			current = s
			return rt.ToValue(true)
		}},
		method{name: "seal", fn: func(call goja.FunctionCall) goja.Value {
			if current == nil {
				log.Error("seal without key")
				return goja.Undefined()
			}
			return seal(rt, current, call.Argument(0), log)
		}},
		method{name: "open", fn: func(call goja.FunctionCall) goja.Value {
			if current == nil {
				log.Error("open without key")
				return goja.Undefined()
			}
			return open(rt, current, call.Argument(0), log)
		}},
	)
}

func sealerObject(rt *goja.Runtime, s *Sealer, log *zap.Logger) *goja.Object {
	obj := rt.NewObject()
	_ = obj.Set("seal", func(call goja.FunctionCall) goja.Value {
		return seal(rt, s, call.Argument(0), log)
	})
	_ = obj.Set("open", func(call goja.FunctionCall) goja.Value {
		return open(rt, s, call.Argument(0), log)
	})
	return obj
}

func seal(rt *goja.Runtime, s *Sealer, arg goja.Value, log *zap.Logger) goja.Value {
	out, err := s.Seal(arg.String())
	if err != nil {
		log.Error("seal", zap.Error(err))
		return goja.Undefined()
	}
	return rt.ToValue(out)
}

func open(rt *goja.Runtime, s *Sealer, arg goja.Value, log *zap.Logger) goja.Value {
	out, err := s.Open(arg.String())
	if err != nil {
		log.Error("open", zap.Error(err))
		return goja.Undefined()
	}
	return rt.ToValue(out)
}
