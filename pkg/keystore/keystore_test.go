package keystore

import (
	"errors"
	"path/filepath"
	"testing"

	"chain-vault/pkg/errno"
)

func TestEncryptDecryptMnemonic(t *testing.T) {
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	password := "secure-password"

	// 1. Encrypt
	keyJSON, err := EncryptMnemonic(mnemonic, password)
	if err != nil {
		t.Fatalf("Encryption failed: %v", err)
	}

	if keyJSON.Crypto.Cipher != "aes-256-gcm" {
		t.Errorf("Expected cipher aes-256-gcm, got %s", keyJSON.Crypto.Cipher)
	}
	if keyJSON.Kind != KindMnemonic {
		t.Errorf("Expected kind %s, got %s", KindMnemonic, keyJSON.Kind)
	}

	// 2. Decrypt with correct password
	plaintext, err := DecryptMnemonic(keyJSON, password)
	if err != nil {
		t.Fatalf("Decryption failed: %v", err)
	}

	if plaintext != mnemonic {
		t.Errorf("Decryption mismatch. Expected %s, got %s", mnemonic, plaintext)
	}

	// 3. Decrypt with wrong password
	_, err = DecryptMnemonic(keyJSON, "wrong-password")
	if !errors.Is(err, errno.PasswordIncorrect) {
		t.Errorf("Expected PasswordIncorrect, got %v", err)
	}
}

func TestEncryptSecretLight(t *testing.T) {
	secret := []byte{0x01, 0x02, 0x03}
	keyJSON, err := EncryptSecret(secret, "pw", KindPrivateKey, LightScryptN)
	if err != nil {
		t.Fatalf("EncryptSecret failed: %v", err)
	}
	if keyJSON.Crypto.KDFParams.N != LightScryptN {
		t.Errorf("Expected N=%d, got %d", LightScryptN, keyJSON.Crypto.KDFParams.N)
	}

	out, err := DecryptSecret(keyJSON, "pw")
	if err != nil {
		t.Fatalf("DecryptSecret failed: %v", err)
	}
	if string(out) != string(secret) {
		t.Errorf("Content mismatch")
	}

	Zero(out)
	for _, b := range out {
		if b != 0 {
			t.Fatalf("Zero did not clear buffer")
		}
	}
}

func TestFileSaveLoad(t *testing.T) {
	mnemonic := "test mnemonic"
	password := "123456"
	filename := filepath.Join(t.TempDir(), "test_wallet.json")

	// Encrypt
	keyJSON, _ := EncryptSecret([]byte(mnemonic), password, KindMnemonic, LightScryptN)

	// Save
	err := keyJSON.SaveToFile(filename)
	if err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	// Load
	loadedJSON, err := LoadFromFile(filename)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	// Verify
	if loadedJSON.Id != keyJSON.Id {
		t.Errorf("ID mismatch after load")
	}

	// Decrypt Loaded
	decrypted, err := DecryptMnemonic(loadedJSON, password)
	if err != nil {
		t.Fatalf("Decrypt loaded failed: %v", err)
	}
	if decrypted != mnemonic {
		t.Errorf("Content mismatch")
	}
}
