package video

import (
	"errors"
	"fmt"
	"os/exec"
)

// FindRuntime resolves the capture binary on PATH
func FindRuntime(runtime string) (string, error) {
	binPath, err := exec.LookPath(runtime)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", NewRuntimeError(fmt.Sprintf("%s not found in PATH", runtime))
		}
		return "", err
	}

	return binPath, nil
}
