package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"

	"github.com/galette-community/plugin-stripe/internal/settings/domain"
)

type encryptedPayload struct {
	Version    int    `json:"version"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

func (s *Service) encrypt(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	if len(s.encKey) == 0 {
		return "", domain.ErrEncryptionKeyMissing
	}

	gcm, err := s.cipher()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plain), nil)
	out, err := json.Marshal(encryptedPayload{
		Version:    1,
		Nonce:      base64.RawStdEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawStdEncoding.EncodeToString(ciphertext),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (s *Service) decrypt(stored string) (string, error) {
	if stored == "" {
		return "", nil
	}
	if len(s.encKey) == 0 {
		return "", domain.ErrEncryptionKeyMissing
	}

	var payload encryptedPayload
	if err := json.Unmarshal([]byte(stored), &payload); err != nil || payload.Version != 1 {
		return "", domain.ErrDecryptFailed
	}
	nonce, err := base64.RawStdEncoding.DecodeString(payload.Nonce)
	if err != nil {
		return "", domain.ErrDecryptFailed
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return "", domain.ErrDecryptFailed
	}

	gcm, err := s.cipher()
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", domain.ErrDecryptFailed
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", domain.ErrDecryptFailed
	}
	return string(plain), nil
}

func (s *Service) cipher() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.encKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
