// Command standalone_test exercises go-hotpatch from a dynamically linked
// binary, where real shared objects are loaded by ld.so. Run it with
// CGO_ENABLED=1 on linux.
package main

// #include <stdlib.h>
import "C"

import (
	"fmt"
	"os"
)

type test struct {
	name string
	run  func() error
}

func runTests(tests []test) bool {
	fmt.Printf("Running standalone tests...\n")
	success := true
	for _, test := range tests {
		if err := test.run(); err != nil {
			fmt.Printf("Test %v failed: %v\n", test.name, err)
			success = false
		}
	}
	return success
}

func main() {
	if !runTests([]test{
		{"TestExecutableName", TestExecutableName},
		{"TestFindLibc", TestFindLibc},
		{"TestFindMissingModule", TestFindMissingModule},
		{"TestPatchMemory", TestPatchMemory},
		{"TestPatchUint32", TestPatchUint32},
	}) {
		fmt.Printf("Tests failed\n")
		os.Exit(1)
	}
}
