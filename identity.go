package hotpatch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"k8s.io/klog/v2"
)

var (
	// DefaultExitFn is invoked by functions ending in the "OrExit" suffix
	// when an error occurs.
	DefaultExitFn = func(err error) {
		klog.ErrorS(err, "hotpatch: fatal")
		klog.FlushAndExit(klog.ExitFlushTimeout, 1)
	}

	executableName = sync.OnceValues(resolveExecutableName)
)

func resolveExecutableName() (string, error) {
	path, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIdentityResolution, err)
	}
	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: unusable executable path %q", ErrIdentityResolution, path)
	}
	return name, nil
}

// ExecutableName returns the file name (without directory) of the running
// executable. It is resolved once; later calls return the cached result.
func ExecutableName() (string, error) {
	return executableName()
}

// ExecutableNameOrExit is ExecutableName, but failure is fatal: patch
// selection depends on the exact name, so there is nothing sensible to
// continue with.
func ExecutableNameOrExit() string {
	name, err := ExecutableName()
	if err != nil {
		DefaultExitFn(err)
	}
	return name
}
