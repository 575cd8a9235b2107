package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/kaokai/furniture-backend/pkg/config"
)

var ErrInvalidHash = errors.New("invalid argon2id hash")

const phcPrefix = "$argon2id$v=19$"

var b64 = base64.RawStdEncoding

// Argon2Params are the cost settings encoded into every stored hash, so
// old hashes keep verifying after the configured cost changes.
type Argon2Params struct {
	MemoryKB uint32
	Time     uint32
	Threads  uint8
	SaltLen  uint32
	KeyLen   uint32
}

// ParamsFor bounds the configured values to ranges argon2 accepts.
func ParamsFor(cfg config.PasswordConfig) Argon2Params {
	return Argon2Params{
		MemoryKB: uint32(bound(cfg.ArgonMemoryKB, 8, 512*1024)),
		Time:     uint32(bound(cfg.ArgonTime, 1, 10)),
		Threads:  uint8(bound(cfg.ArgonParallelism, 1, 255)),
		SaltLen:  uint32(bound(cfg.ArgonSaltLen, 8, 64)),
		KeyLen:   uint32(bound(cfg.ArgonKeyLen, 16, 64)),
	}
}

func (p Argon2Params) key(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKB, p.Threads, p.KeyLen)
}

// HashPassword returns a PHC formatted argon2id hash.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	p := ParamsFor(cfg)
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return fmt.Sprintf("%sm=%d,t=%d,p=%d$%s$%s",
		phcPrefix, p.MemoryKB, p.Time, p.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(p.key(password, salt)),
	), nil
}

// VerifyPassword compares in constant time. A false result with a nil
// error means the password is wrong; an error means the hash is corrupt.
func VerifyPassword(password, encoded string) (bool, error) {
	p, salt, want, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(want, p.key(password, salt)) == 1, nil
}

// NeedsRehash reports whether encoded was produced with other cost
// settings than cfg currently asks for.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	got, _, _, err := parseHash(encoded)
	if err != nil {
		return true
	}
	return got != ParamsFor(cfg)
}

func parseHash(encoded string) (Argon2Params, []byte, []byte, error) {
	rest, ok := strings.CutPrefix(encoded, phcPrefix)
	if !ok {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 3 {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}

	var p Argon2Params
	if n, err := fmt.Sscanf(fields[0], "m=%d,t=%d,p=%d", &p.MemoryKB, &p.Time, &p.Threads); err != nil || n != 3 {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}
	salt, err := b64.DecodeString(fields[1])
	if err != nil || len(salt) == 0 {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}
	sum, err := b64.DecodeString(fields[2])
	if err != nil || len(sum) == 0 {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}
	p.SaltLen, p.KeyLen = uint32(len(salt)), uint32(len(sum))
	return p, salt, sum, nil
}

func bound(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
