package service

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrBadAdminSignature   = errors.New("administrative signature is invalid")
	ErrStaleAdminChallenge = errors.New("administrative challenge timestamp is too old")
)

// adminChallengeWindow bounds how old a signed admin challenge may be, so a
// captured signature cannot be replayed later.
const adminChallengeWindow = 5 * time.Minute

type AdminCredentials struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// loadOrGenerateAdminKey restores the administrator's ECDSA key from
// admin_credentials.json under dataDir, generating and persisting a fresh one
// on first run.
func loadOrGenerateAdminKey(dataDir string) (*ecdsa.PrivateKey, error) {
	adminKeyPath := filepath.Join(dataDir, "admin_credentials.json")

	if data, err := os.ReadFile(adminKeyPath); err == nil {
		var creds AdminCredentials
		if err := json.Unmarshal(data, &creds); err != nil {
			return nil, fmt.Errorf("failed to parse admin credentials: %v", err)
		}
		privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(creds.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("failed to restore admin private key: %v", err)
		}
		return privateKey, nil
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate admin key: %v", err)
	}

	creds := AdminCredentials{
		PublicKey:  hexutil.Encode(crypto.FromECDSAPub(&privateKey.PublicKey)),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(privateKey)),
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal admin credentials: %v", err)
	}
	if err := os.WriteFile(adminKeyPath, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to save admin credentials: %v", err)
	}

	return privateKey, nil
}

// adminChallengeDigest derives the digest an administrator signs to authorize
// a privileged action at a given moment.
func adminChallengeDigest(action string, unixTime int64) []byte {
	return crypto.Keccak256([]byte(fmt.Sprintf("bharote-admin|%s|%d", action, unixTime)))
}

// authorizeAdminAction verifies that signatureHex is the admin key's signature
// over the action challenge and that the challenge is fresh.
func (vs *VotingService) authorizeAdminAction(action, signatureHex string, unixTime int64) error {
	age := time.Since(time.Unix(unixTime, 0))
	if age > adminChallengeWindow || age < -adminChallengeWindow {
		return ErrStaleAdminChallenge
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(signatureHex, "0x"))
	if err != nil || len(sig) != crypto.SignatureLength {
		return ErrBadAdminSignature
	}

	recovered, err := crypto.SigToPub(adminChallengeDigest(action, unixTime), sig)
	if err != nil {
		return ErrBadAdminSignature
	}
	if crypto.PubkeyToAddress(*recovered) != crypto.PubkeyToAddress(vs.adminKey.PublicKey) {
		return ErrBadAdminSignature
	}
	return nil
}

// SignAdminAction produces the signature for an admin challenge with the
// node's own admin key. It backs operator tooling; remote administrators sign
// with the credentials from GetAdminCredentials.
func (vs *VotingService) SignAdminAction(action string, unixTime int64) (string, error) {
	sig, err := crypto.Sign(adminChallengeDigest(action, unixTime), vs.adminKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign admin challenge: %v", err)
	}
	return hexutil.Encode(sig), nil
}

// SignChallengeWithKey signs an admin challenge with a hex-encoded private
// key, for administrators holding the exported credentials rather than a
// running node.
func SignChallengeWithKey(privateKeyHex, action string, unixTime int64) (string, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("failed to parse admin private key: %v", err)
	}
	sig, err := crypto.Sign(adminChallengeDigest(action, unixTime), privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign admin challenge: %v", err)
	}
	return hexutil.Encode(sig), nil
}

// GetAdminCredentials reads back the persisted admin key pair.
func (vs *VotingService) GetAdminCredentials() (*AdminCredentials, error) {
	data, err := os.ReadFile(filepath.Join(vs.dataDir, "admin_credentials.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read admin credentials: %v", err)
	}
	var creds AdminCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse admin credentials: %v", err)
	}
	return &creds, nil
}
