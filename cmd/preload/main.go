// Command preload is a shared library that patches the process it is loaded
// into before the process's own main runs.
//
//	go build -buildmode=c-shared -o libhotpatch.so ./cmd/preload
//	LD_PRELOAD=/path/to/libhotpatch.so HOTPATCH_PLAN=/etc/hotpatch/plan.yaml workerd
//
// The constructor in ctor.c calls hotpatchInit, which blocks the loading
// thread until the Go runtime is up and the plan has been applied.
package main

import "C"

import (
	"errors"
	"io/fs"

	"k8s.io/klog/v2"

	"github.com/kstenerud/go-hotpatch"
	"github.com/kstenerud/go-hotpatch/internal/config"
	"github.com/kstenerud/go-hotpatch/plan"
)

//export hotpatchInit
func hotpatchInit() {
	defer klog.Flush()

	cfg, err := config.Load()
	if err != nil {
		klog.Errorf("hotpatch: %v; continuing unpatched", err)
		return
	}
	if cfg.Disabled {
		return
	}
	if err = cfg.ConfigureLogging(); err != nil {
		klog.Errorf("hotpatch: %v", err)
	}

	executable := hotpatch.ExecutableNameOrExit()

	p, err := plan.Load(cfg.PlanPath)
	if errors.Is(err, fs.ErrNotExist) {
		klog.V(1).Infof("hotpatch: %v: no plan at %v", executable, cfg.PlanPath)
		return
	}
	if err != nil {
		klog.Errorf("hotpatch: %v: %v; continuing unpatched", executable, err)
		return
	}

	applier := plan.NewApplier(hotpatch.DefaultLocator)
	applier.DryRun = cfg.DryRun
	report := applier.Apply(p, executable)
	if err = report.Err(); err != nil {
		klog.Errorf("hotpatch: %v: %v (%v)", executable, err, report)
		return
	}
	klog.V(1).Infof("hotpatch: %v: %v", executable, report)
}

func main() {}
