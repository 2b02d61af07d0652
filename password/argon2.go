package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

// Config holds the argon2id cost parameters.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns moderate interactive-login parameters.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        2,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher hashes and verifies secrets with argon2id in PHC string format.
// Safe for concurrent use.
type Hasher struct {
	config Config
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
	keyLength   uint32
}

// NewHasher validates the cost parameters and returns a Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Hasher{config: cfg}, nil
}

// Hash derives an argon2id hash of the secret with a fresh random salt and
// encodes it in PHC format.
func (h *Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret must not be empty")
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey(
		[]byte(secret),
		salt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(hash),
	), nil
}

// Compare reports whether the secret matches the encoded hash. The
// comparison is constant-time over the derived keys; cost parameters come
// from the encoded string so old hashes remain verifiable after a config
// change.
func (h *Hasher) Compare(secret string, encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(secret),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		parsed.keyLength,
	)

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return fmt.Errorf("memory must be at least %d KB", minMemoryKB)
	}
	if cfg.Time < minTimeCost {
		return errors.New("time cost must be at least 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("parallelism must be at least 1")
	}
	if cfg.SaltLength < minSaltLength {
		return fmt.Errorf("salt length must be at least %d bytes", minSaltLength)
	}
	if cfg.KeyLength < minKeyLength {
		return fmt.Errorf("key length must be at least %d bytes", minKeyLength)
	}
	return nil
}

func parsePHC(encoded string) (*parsedPHC, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, errors.New("malformed argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, errors.New("malformed argon2id version")
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	parsed := &parsedPHC{}
	for _, param := range strings.Split(parts[3], ",") {
		kv := strings.SplitN(param, "=", 2)
		if len(kv) != 2 {
			return nil, errors.New("malformed argon2id parameters")
		}
		value, err := strconv.ParseUint(kv[1], 10, 32)
		if err != nil {
			return nil, errors.New("malformed argon2id parameters")
		}
		switch kv[0] {
		case "m":
			parsed.memory = uint32(value)
		case "t":
			parsed.time = uint32(value)
		case "p":
			if value > 255 {
				return nil, errors.New("malformed argon2id parallelism")
			}
			parsed.parallelism = uint8(value)
		default:
			return nil, errors.New("unknown argon2id parameter")
		}
	}

	if parsed.memory == 0 || parsed.time == 0 || parsed.parallelism == 0 {
		return nil, errors.New("malformed argon2id parameters")
	}

	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, errors.New("malformed argon2id salt")
	}
	hash, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, errors.New("malformed argon2id hash payload")
	}

	parsed.salt = salt
	parsed.hash = hash
	parsed.keyLength = uint32(len(hash))

	return parsed, nil
}
