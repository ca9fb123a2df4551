package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Backup code defaults: 15 codes of 8 hex characters
const (
	DefaultBackupCodeLength = 8
	DefaultBackupCodeCount  = 15
)

// BackupCodeGenerator creates random single-use codes
type BackupCodeGenerator struct {
	codeLength int
	codeCount  int
}

// NewBackupCodeGenerator creates a generator. codeLength must be even.
func NewBackupCodeGenerator(codeLength, codeCount int) (*BackupCodeGenerator, error) {
	if codeLength <= 0 || codeLength%2 != 0 {
		return nil, fmt.Errorf("backup code length must be a positive even number, got %d", codeLength)
	}
	if codeCount <= 0 {
		return nil, fmt.Errorf("backup code count must be positive, got %d", codeCount)
	}
	return &BackupCodeGenerator{codeLength: codeLength, codeCount: codeCount}, nil
}

// GenerateCode returns a single random code
func (g *BackupCodeGenerator) GenerateCode() (string, error) {
	buf := make([]byte, g.codeLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate backup code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateCodeSet returns a full set of codes
func (g *BackupCodeGenerator) GenerateCodeSet() ([]string, error) {
	codes := make([]string, 0, g.codeCount)
	for len(codes) < g.codeCount {
		code, err := g.GenerateCode()
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// BackupCodeManager keeps the backup codes of a user consistent with the
// other second factors.
type BackupCodeManager struct {
	generator *BackupCodeGenerator
}

// NewBackupCodeManager creates a manager using generator
func NewBackupCodeManager(generator *BackupCodeGenerator) *BackupCodeManager {
	return &BackupCodeManager{generator: generator}
}

// EnableBackupCodes generates codes if the user has none yet
func (m *BackupCodeManager) EnableBackupCodes(u *User) error {
	if len(u.BackupCodes) > 0 {
		return nil
	}
	return m.RegenerateBackupCodes(u)
}

// DisableBackupCodesIfUnused clears the codes when no other 2FA method is active
func (m *BackupCodeManager) DisableBackupCodesIfUnused(u *User) {
	if u.IsGoogleAuthenticatorEnabled() {
		return
	}
	u.SetBackupCodes(nil)
}

// RegenerateBackupCodes replaces the codes with a fresh set
func (m *BackupCodeManager) RegenerateBackupCodes(u *User) error {
	codes, err := m.generator.GenerateCodeSet()
	if err != nil {
		return err
	}
	u.SetBackupCodes(codes)
	return nil
}
