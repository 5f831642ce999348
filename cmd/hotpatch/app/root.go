// Package app implements the hotpatch inspection command.
package app

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/kstenerud/go-hotpatch"
)

// NewHotpatchCommand returns the root command. It inspects processes and plan
// files; it never patches anything.
func NewHotpatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "hotpatch",
		Short:        "Inspect module bases and patch plans",
		SilenceUsage: true,
	}

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	cmd.AddCommand(newIdentityCommand(), newModulesCommand(), newPlanCommand())
	return cmd
}

func locatorFor(pid int) *hotpatch.Locator {
	iterator := hotpatch.SelfModules()
	if pid != 0 {
		iterator = hotpatch.ProcessModules(pid)
	}
	return &hotpatch.Locator{Iterator: iterator, Biases: hotpatch.DefaultBiasRules}
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
}

func orMain(name string) string {
	if name == "" {
		return "(main image)"
	}
	return name
}

func hex(address uintptr) string {
	return fmt.Sprintf("%#016x", address)
}
