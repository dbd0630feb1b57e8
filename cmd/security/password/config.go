package password

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Config is the single configuration surface for this package.
type Config struct {
	// Cost is the bcrypt cost factor. Each +1 doubles hashing time.
	Cost int
}

// DefaultConfig returns a baseline suitable for interactive logins.
// Values can be overridden via env.
func DefaultConfig() Config {
	return Config{
		Cost: bcrypt.DefaultCost,
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - TECHHEAL_BCRYPT_COST
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("TECHHEAL_BCRYPT_COST"); ok {
		n, err := atoiInRange(v, bcrypt.MinCost, bcrypt.MaxCost)
		if err != nil {
			return Config{}, fmt.Errorf("TECHHEAL_BCRYPT_COST: %w", err)
		}
		cfg.Cost = n
	}

	return cfg, nil
}

func atoiInRange(s string, minVal, maxVal int) (int, error) {
	s = strings.TrimSpace(s)
	i64, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}

	i := int(i64)
	if i < minVal || i > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return i, nil
}
