package runner

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
)

// HashExecutable computes the SHA-256 of the resolved executable's content,
// in sha256:hex form. When the target cannot be resolved or read (shell
// builtins, races with deployment), it falls back to hashing the command
// string so the metric is always present.
func HashExecutable(target string) string {
	execPath, err := exec.LookPath(target)
	if err != nil {
		return hashString(target)
	}

	absPath, err := filepath.Abs(execPath)
	if err != nil {
		return hashString(target)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return hashString(target)
	}

	return hashBytes(content)
}

func hashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

func hashString(s string) string {
	return hashBytes([]byte(s))
}
