package internal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
)

// Opener decrypts sealed message content before it reaches the timeline builder
type Opener interface {
	Open(sealed []byte) ([]byte, error)
}

// Sealer encrypts message content for storage
type Sealer interface {
	Seal(content []byte) ([]byte, error)
}

// ErrNoOpener is returned when a sealed message is loaded without an opener
var ErrNoOpener = errors.New("message is sealed and no identity is configured")

// AgeOpener opens age-encrypted content with X25519 identities
type AgeOpener struct {
	identities []age.Identity
}

var _ Opener = (*AgeOpener)(nil)

// NewAgeOpener creates an opener for the given identities
func NewAgeOpener(identities ...age.Identity) *AgeOpener {
	return &AgeOpener{identities: identities}
}

// LoadAgeOpener reads an age identity file
func LoadAgeOpener(path string) (*AgeOpener, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing identity file %s: %w", path, err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in %s", path)
	}

	return NewAgeOpener(identities...), nil
}

// Open implements Opener
func (o *AgeOpener) Open(sealed []byte) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(sealed), o.identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting message: %w", err)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted message: %w", err)
	}
	return content, nil
}

// Sealer returns a sealer for the recipients matching the opener's X25519
// identities
func (o *AgeOpener) Sealer() (*AgeSealer, error) {
	var recipients []age.Recipient
	for _, id := range o.identities {
		if x, ok := id.(*age.X25519Identity); ok {
			recipients = append(recipients, x.Recipient())
		}
	}
	if len(recipients) == 0 {
		return nil, errors.New("no X25519 identity to derive a recipient from")
	}
	return NewAgeSealer(recipients...), nil
}

// AgeSealer encrypts content to one or more age recipients
type AgeSealer struct {
	recipients []age.Recipient
}

var _ Sealer = (*AgeSealer)(nil)

// NewAgeSealer creates a sealer for the given recipients
func NewAgeSealer(recipients ...age.Recipient) *AgeSealer {
	return &AgeSealer{recipients: recipients}
}

// Seal implements Sealer
func (s *AgeSealer) Seal(content []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, s.recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		return nil, fmt.Errorf("encrypting message: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateIdentityFile writes a fresh X25519 identity to path
func GenerateIdentityFile(path string) (*age.X25519Identity, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating identity: %w", err)
	}
	data := fmt.Sprintf("# public key: %s\n%s\n", identity.Recipient(), identity)
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		return nil, fmt.Errorf("writing identity file: %w", err)
	}
	return identity, nil
}
