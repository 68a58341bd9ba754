package crypto

import (
	"bytes"
	"testing"
)

func TestSecureWipe(t *testing.T) {
	data := []byte("sensitive data that should be wiped")
	if err := SecureWipe(data); err != nil {
		t.Fatalf("SecureWipe returned error: %v", err)
	}
	if !bytes.Equal(data, make([]byte, len(data))) {
		t.Errorf("data not wiped: %x", data)
	}

	if err := SecureWipe(nil); err == nil {
		t.Error("expected error for nil data")
	}
}

func TestWipeKeyPair(t *testing.T) {
	kp, err := NaCl().GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	public := append([]byte(nil), kp.Public...)

	if err := WipeKeyPair(kp); err != nil {
		t.Fatalf("WipeKeyPair returned error: %v", err)
	}
	if !bytes.Equal(kp.Private, make([]byte, len(kp.Private))) {
		t.Error("private key not wiped")
	}
	if !bytes.Equal(kp.Public, public) {
		t.Error("public key must be left intact")
	}
	if err := WipeKeyPair(nil); err == nil {
		t.Error("expected error for nil key pair")
	}
}
