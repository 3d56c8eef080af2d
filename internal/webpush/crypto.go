package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	authSecretLen  = 16
	saltLen        = 16
	keyLen         = 16
	nonceLen       = 12
	publicKeyLen   = 65
	headerFixedLen = saltLen + 4 + 1
	// MaxPayloadBytes bounds an encrypted push body.
	MaxPayloadBytes = 8 << 10
)

var (
	ErrMalformedBody = errors.New("webpush: malformed aes128gcm body")
	ErrDecrypt       = errors.New("webpush: payload authentication failed")
)

// Keys are the client half of a subscription: the ECDH key pair advertised
// as p256dh and the shared auth secret.
type Keys struct {
	Private *ecdh.PrivateKey
	Auth    []byte
}

func GenerateKeys() (Keys, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return Keys{}, err
	}
	auth := make([]byte, authSecretLen)
	if _, err := rand.Read(auth); err != nil {
		return Keys{}, err
	}
	return Keys{Private: priv, Auth: auth}, nil
}

func (k Keys) PublicKey() []byte {
	return k.Private.PublicKey().Bytes()
}

// Decrypt opens an RFC 8291 aes128gcm message addressed to k.
func Decrypt(k Keys, body []byte) ([]byte, error) {
	if len(body) < headerFixedLen {
		return nil, ErrMalformedBody
	}
	salt := body[:saltLen]
	recordSize := int(binary.BigEndian.Uint32(body[saltLen : saltLen+4]))
	idLen := int(body[saltLen+4])
	if idLen != publicKeyLen || len(body) < headerFixedLen+idLen || recordSize <= 17 {
		return nil, ErrMalformedBody
	}
	senderKey, err := ecdh.P256().NewPublicKey(body[headerFixedLen : headerFixedLen+idLen])
	if err != nil {
		return nil, fmt.Errorf("%w: sender key: %w", ErrMalformedBody, err)
	}
	ciphertext := body[headerFixedLen+idLen:]
	if len(ciphertext) == 0 {
		return nil, ErrMalformedBody
	}

	shared, err := k.Private.ECDH(senderKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	gcm, nonce, err := contentKeys(shared, k.Auth, k.PublicKey(), senderKey.Bytes(), salt)
	if err != nil {
		return nil, err
	}

	var plaintext []byte
	for seq := uint64(0); len(ciphertext) > 0; seq++ {
		n := min(recordSize, len(ciphertext))
		record, err := gcm.Open(nil, recordNonce(nonce, seq), ciphertext[:n], nil)
		if err != nil {
			return nil, ErrDecrypt
		}
		ciphertext = ciphertext[n:]
		last := len(ciphertext) == 0
		record, err = unpad(record, last)
		if err != nil {
			return nil, err
		}
		plaintext = append(plaintext, record...)
	}
	return plaintext, nil
}

// contentKeys derives the AES-GCM content key and base nonce (RFC 8291 §3.4,
// RFC 8188 §2.2).
func contentKeys(shared, auth, receiverKey, senderKey, salt []byte) (cipher.AEAD, []byte, error) {
	keyInfo := make([]byte, 0, 14+len(receiverKey)+len(senderKey))
	keyInfo = append(keyInfo, "WebPush: info\x00"...)
	keyInfo = append(keyInfo, receiverKey...)
	keyInfo = append(keyInfo, senderKey...)
	ikm, err := expand(hkdf.Extract(sha256.New, shared, auth), keyInfo, 32)
	if err != nil {
		return nil, nil, err
	}

	prk := hkdf.Extract(sha256.New, ikm, salt)
	cek, err := expand(prk, []byte("Content-Encoding: aes128gcm\x00"), keyLen)
	if err != nil {
		return nil, nil, err
	}
	nonce, err := expand(prk, []byte("Content-Encoding: nonce\x00"), nonceLen)
	if err != nil {
		return nil, nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	return gcm, nonce, nil
}

func expand(prk, info []byte, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, info), out); err != nil {
		return nil, err
	}
	return out, nil
}

func recordNonce(base []byte, seq uint64) []byte {
	nonce := make([]byte, len(base))
	copy(nonce, base)
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], seq)
	for i := range ctr {
		nonce[nonceLen-8+i] ^= ctr[i]
	}
	return nonce
}

// unpad strips the record delimiter (0x02 on the last record, 0x01 before)
// and any trailing zero padding.
func unpad(record []byte, last bool) ([]byte, error) {
	i := len(record) - 1
	for i >= 0 && record[i] == 0 {
		i--
	}
	if i < 0 {
		return nil, ErrMalformedBody
	}
	want := byte(0x01)
	if last {
		want = 0x02
	}
	if record[i] != want {
		return nil, ErrMalformedBody
	}
	return record[:i], nil
}
