package main

import (
	"os"

	"k8s.io/klog/v2"

	"github.com/kstenerud/go-hotpatch/cmd/hotpatch/app"
)

func main() {
	command := app.NewHotpatchCommand()
	err := command.Execute()
	klog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
