package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kstenerud/go-hotpatch"
)

func newIdentityCommand() *cobra.Command {
	var pid int
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Print the executable name that plan entries are matched against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := identityOf(pid)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
	cmd.Flags().IntVar(&pid, "pid", 0, "process to inspect (default: this process)")
	return cmd
}

func identityOf(pid int) (string, error) {
	if pid == 0 {
		return hotpatch.ExecutableName()
	}
	path, err := os.Readlink(filepath.Join("/proc", strconv.Itoa(pid), "exe"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", hotpatch.ErrIdentityResolution, err)
	}
	return filepath.Base(strings.TrimSuffix(path, " (deleted)")), nil
}
