package crypto_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bdobrica/Tasuki/common/crypto"
)

func makeKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	key := makeKey(t)
	plaintext := []byte("super-secret-api-key-value-123")

	ciphertext, err := crypto.Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if bytes.Equal(ciphertext, plaintext) {
		t.Fatal("ciphertext should not equal plaintext")
	}

	recovered, err := crypto.Decrypt(key, ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}

	if !bytes.Equal(recovered, plaintext) {
		t.Errorf("recovered %q, want %q", recovered, plaintext)
	}
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	key := makeKey(t)
	plaintext := []byte("same plaintext")

	c1, err := crypto.Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("first Encrypt: %v", err)
	}
	c2, err := crypto.Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("second Encrypt: %v", err)
	}
	if bytes.Equal(c1, c2) {
		t.Error("two encryptions of the same plaintext should differ (random nonce)")
	}
}

func TestEncrypt_RejectsBadKeySize(t *testing.T) {
	if _, err := crypto.Encrypt([]byte("short"), []byte("data")); err != crypto.ErrInvalidKeySize {
		t.Errorf("expected ErrInvalidKeySize, got %v", err)
	}
}

func TestDecrypt_RejectsShortCiphertext(t *testing.T) {
	key := makeKey(t)
	if _, err := crypto.Decrypt(key, []byte{1, 2, 3}); err != crypto.ErrCiphertextTooShort {
		t.Errorf("expected ErrCiphertextTooShort, got %v", err)
	}
}

func TestDecrypt_RejectsTamperedCiphertext(t *testing.T) {
	key := makeKey(t)
	ciphertext, err := crypto.Encrypt(key, []byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xff
	if _, err := crypto.Decrypt(key, ciphertext); err == nil {
		t.Error("expected authentication failure on tampered ciphertext")
	}
}

func TestParseMasterKey(t *testing.T) {
	valid := strings.Repeat("ab", crypto.KeySize)
	key, err := crypto.ParseMasterKey(valid)
	if err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
	if len(key) != crypto.KeySize {
		t.Errorf("key length = %d, want %d", len(key), crypto.KeySize)
	}

	if _, err := crypto.ParseMasterKey(""); err == nil {
		t.Error("empty key should be rejected")
	}
	if _, err := crypto.ParseMasterKey("zz"); err == nil {
		t.Error("non-hex key should be rejected")
	}
	if _, err := crypto.ParseMasterKey("abcd"); err == nil {
		t.Error("short key should be rejected")
	}
}
