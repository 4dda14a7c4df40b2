package credential

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"sync"

	"exstream/pkg/exception"

	"github.com/awnumar/memguard"
	"github.com/yanun0323/errors"
)

// Signer signs request payloads with an API secret kept in a memguard enclave.
// The secret is decrypted only for the duration of one signature.
type Signer struct {
	key        string
	passphrase string

	mu      sync.Mutex
	enclave *memguard.Enclave
}

// NewSigner seals secret. The secret slice is wiped.
func NewSigner(key string, secret []byte, passphrase string) (*Signer, error) {
	if key == "" || len(secret) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "empty api key or secret")
	}
	return &Signer{
		key:        key,
		passphrase: passphrase,
		enclave:    memguard.NewEnclave(secret),
	}, nil
}

func (s *Signer) Key() string {
	return s.key
}

func (s *Signer) Passphrase() string {
	return s.passphrase
}

// HMACSHA256 returns the raw HMAC-SHA256 of message.
func (s *Signer) HMACSHA256(message string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enclave == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "signer destroyed")
	}
	buf, err := s.enclave.Open()
	if err != nil {
		return nil, errors.Wrap(err, "open enclave")
	}
	defer buf.Destroy()

	mac := hmac.New(sha256.New, buf.Bytes())
	mac.Write([]byte(message))
	return mac.Sum(nil), nil
}

func (s *Signer) HMACSHA256Base64(message string) (string, error) {
	sum, err := s.HMACSHA256(message)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sum), nil
}

// Destroy drops the sealed secret. Later signatures fail.
func (s *Signer) Destroy() {
	s.mu.Lock()
	s.enclave = nil
	s.mu.Unlock()
}
