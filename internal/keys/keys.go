package keys

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
)

const (
	// PayerKeyEnv overrides the keypair file with a base58-encoded secret key.
	PayerKeyEnv = "SURFREPLAY_PAYER_KEY"

	// PayerPubkeyEnv carries the payer public key into build subprocesses.
	PayerPubkeyEnv = "PAYER_PUBKEY"
)

// Payer is the funded local identity that signs every replayed transaction.
type Payer struct {
	key solana.PrivateKey
}

// DefaultKeypairPath returns the Solana CLI default keypair location
// (~/.config/solana/id.json).
func DefaultKeypairPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "solana", "id.json")
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}

// LoadPayer resolves the payer identity. The SURFREPLAY_PAYER_KEY environment
// variable (base58 secret key) takes precedence; otherwise the keypair is read
// from keypairPath, falling back to the Solana CLI default location when the
// path is empty. Keygen files are JSON arrays of 64 bytes.
func LoadPayer(keypairPath string) (*Payer, error) {
	if raw := os.Getenv(PayerKeyEnv); raw != "" {
		key, err := solana.PrivateKeyFromBase58(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", PayerKeyEnv, err)
		}
		return newPayer(key)
	}

	if keypairPath == "" {
		keypairPath = DefaultKeypairPath()
	}

	key, err := solana.PrivateKeyFromSolanaKeygenFile(keypairPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load payer keypair from %s: %w", keypairPath, err)
	}
	return newPayer(key)
}

func newPayer(key solana.PrivateKey) (*Payer, error) {
	// Solana keypairs are 64 bytes: 32-byte seed + 32-byte public key.
	if len(key) != 64 {
		return nil, fmt.Errorf("invalid key length: expected 64 bytes, got %d", len(key))
	}
	return &Payer{key: key}, nil
}

// PublicKey returns the payer's public key.
func (p *Payer) PublicKey() solana.PublicKey {
	return p.key.PublicKey()
}

// Signer returns the key getter used by solana.Transaction.Sign. It yields the
// private key only for the payer's own public key.
func (p *Payer) Signer() func(key solana.PublicKey) *solana.PrivateKey {
	return func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(p.key.PublicKey()) {
			return &p.key
		}
		return nil
	}
}
