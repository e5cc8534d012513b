// Package hasher provides password hashing implementations.
package hasher

import (
	"errors"

	"github.com/artpar/crudgate/ports"
	"golang.org/x/crypto/bcrypt"
)

// ErrTooLong is returned for passwords bcrypt would truncate.
var ErrTooLong = errors.New("password exceeds 72 bytes")

// Bcrypt uses bcrypt for hashing.
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a bcrypt hasher with the given cost. Out of range costs fall
// back to bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash generates a bcrypt hash from plaintext.
func (h *Bcrypt) Hash(plaintext string) ([]byte, error) {
	if len(plaintext) > 72 {
		return nil, ErrTooLong
	}
	return bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
}

// Compare checks if plaintext matches hash.
func (h *Bcrypt) Compare(hash []byte, plaintext string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plaintext)) == nil
}

// NeedsRehash reports whether hash was produced with a different cost.
func (h *Bcrypt) NeedsRehash(hash []byte) bool {
	cost, err := bcrypt.Cost(hash)
	return err != nil || cost != h.cost
}

var (
	_ ports.Hasher        = (*Bcrypt)(nil)
	_ ports.RehashChecker = (*Bcrypt)(nil)
)

// Fake stores plaintext behind a marker prefix (NOT FOR PRODUCTION).
type Fake struct{}

func (Fake) Hash(plaintext string) ([]byte, error) {
	return []byte("fake$" + plaintext), nil
}

func (Fake) Compare(hash []byte, plaintext string) bool {
	return string(hash) == "fake$"+plaintext
}

var _ ports.Hasher = Fake{}
