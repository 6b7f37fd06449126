package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/odvcencio/grit/pkg/object"
	"github.com/odvcencio/grit/pkg/repo"
)

// commitSignaturePrefix tags the sshsig header value:
//
//	sshsig-v1:<format>:<base64 public key>:<base64 signature blob>
const commitSignaturePrefix = "sshsig-v1"

var (
	errUnsignedCommit   = errors.New("commit is not signed")
	errMalformedSig     = errors.New("malformed commit signature")
	errSignatureInvalid = errors.New("signature does not verify")
)

// sshCommitSig is the decoded form of a commit's sshsig header.
type sshCommitSig struct {
	key ssh.PublicKey
	sig *ssh.Signature
}

func (s sshCommitSig) encode() string {
	return strings.Join([]string{
		commitSignaturePrefix,
		s.sig.Format,
		base64.StdEncoding.EncodeToString(s.key.Marshal()),
		base64.StdEncoding.EncodeToString(s.sig.Blob),
	}, ":")
}

func parseSSHCommitSig(v string) (sshCommitSig, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return sshCommitSig{}, errUnsignedCommit
	}
	parts := strings.Split(v, ":")
	if len(parts) != 4 || parts[0] != commitSignaturePrefix {
		return sshCommitSig{}, errMalformedSig
	}
	keyRaw, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return sshCommitSig{}, fmt.Errorf("%w: public key: %v", errMalformedSig, err)
	}
	key, err := ssh.ParsePublicKey(keyRaw)
	if err != nil {
		return sshCommitSig{}, fmt.Errorf("%w: public key: %v", errMalformedSig, err)
	}
	blob, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return sshCommitSig{}, fmt.Errorf("%w: signature: %v", errMalformedSig, err)
	}
	return sshCommitSig{key: key, sig: &ssh.Signature{Format: parts[1], Blob: blob}}, nil
}

// newSSHCommitSigner loads a private key (keyPath, or the first default key
// under ~/.ssh) and returns a signer plus the path it loaded.
func newSSHCommitSigner(keyPath string) (repo.CommitSigner, string, error) {
	path, err := resolveSigningKeyPath(keyPath)
	if err != nil {
		return nil, "", err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read signing key: %w", err)
	}
	key, err := ssh.ParsePrivateKey(raw)
	if err != nil {
		return nil, "", fmt.Errorf("parse signing key %s: %w", path, err)
	}

	return func(payload []byte) (string, error) {
		sig, err := key.Sign(rand.Reader, payload)
		if err != nil {
			return "", err
		}
		return sshCommitSig{key: key.PublicKey(), sig: sig}.encode(), nil
	}, path, nil
}

// verifyCommitSignature checks c's sshsig header against its signing payload
// and returns the signing key.
func verifyCommitSignature(c *object.CommitObj) (ssh.PublicKey, error) {
	s, err := parseSSHCommitSig(c.Signature)
	if err != nil {
		return nil, err
	}
	if err := s.key.Verify(object.CommitSigningPayload(c), s.sig); err != nil {
		return s.key, fmt.Errorf("%w: %v", errSignatureInvalid, err)
	}
	return s.key, nil
}

var defaultSigningKeys = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

func resolveSigningKeyPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		return expandUserPath(path)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	for _, name := range defaultSigningKeys {
		candidate := filepath.Join(home, ".ssh", name)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no SSH private key found in %s (tried %s)", filepath.Join(home, ".ssh"), strings.Join(defaultSigningKeys, ", "))
}

func expandUserPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}
