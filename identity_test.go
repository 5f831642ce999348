package hotpatch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutableName(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	name, err := ExecutableName()
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(exe), name)

	again, err := ExecutableName()
	require.NoError(t, err)
	assert.Equal(t, name, again)
}

func TestExecutableNameOrExit(t *testing.T) {
	oldExit := DefaultExitFn
	defer func() { DefaultExitFn = oldExit }()

	var exitErr error
	DefaultExitFn = func(err error) { exitErr = err }

	name := ExecutableNameOrExit()
	assert.NotEmpty(t, name)
	assert.NoError(t, exitErr)
}

func TestIdentityFailureIsFatal(t *testing.T) {
	oldExit := DefaultExitFn
	oldName := executableName
	defer func() {
		DefaultExitFn = oldExit
		executableName = oldName
	}()

	var exitErr error
	DefaultExitFn = func(err error) { exitErr = err }
	executableName = func() (string, error) {
		return "", errors.Join(ErrIdentityResolution, os.ErrNotExist)
	}

	ExecutableNameOrExit()
	assert.ErrorIs(t, exitErr, ErrIdentityResolution)
}
