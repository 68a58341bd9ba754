// Package crypto implements the hybrid encryption schemes used to build and
// peel onion layers, plus at-rest storage for relay keys.
//
// # Schemes
//
// Every onion layer carries a freshly generated [SymmetricKey] wrapped to the
// relay's public key, followed by the layer payload sealed under that key. A
// [Scheme] bundles the key wrap and the payload cipher:
//
//   - "nacl" (default): anonymous NaCl sealed box (Curve25519 +
//     XSalsa20-Poly1305) for the key wrap, NaCl secretbox for the payload.
//   - "rsa": RSA-2048 OAEP/SHA-256 for the key wrap, AES-256-GCM for the payload.
//
// Schemes are looked up by name:
//
//	scheme, err := crypto.SchemeByName(crypto.SchemeNaCl)
//	keyPair, _ := scheme.GenerateKeyPair()
//
//	key, _ := crypto.GenerateSymmetricKey()
//	defer key.Wipe()
//	wrapped, _ := scheme.WrapKey(key, keyPair.Public)
//	sealed, _ := scheme.Seal(key, plaintext)
//
// A scheme's WrappedKeySize is constant. The onion framing depends on it, so
// builder and peeler must use the same scheme or every peel fails.
//
// # Text Encoding
//
// Layers travel as text. [EncodeText] and [DecodeText] use padded standard
// base64 so a fixed-size binary field has a fixed encoded length ([EncodedLen]).
//
// # Key Storage
//
// [KeyStore] keeps relay key pairs in a bbolt database. Records are CBOR encoded
// and the private key is sealed with AES-256-GCM under a PBKDF2-derived key:
//
//	ks, err := crypto.OpenKeyStore("/var/lib/onionrelay/keys.db", []byte(passphrase))
//	kp, created, err := ks.LoadOrGenerate("relay-3", scheme)
//
// # Secure Memory Handling
//
// Symmetric keys and intermediate plaintext are wiped as soon as a layer is
// processed:
//
//	defer crypto.ZeroBytes(plaintextLayer)
//	defer crypto.WipeKeyPair(keyPair)
package crypto
