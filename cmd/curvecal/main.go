// Command curvecal calibrates multi-curve sets from a YAML request and
// reports curves, Jacobians, quote risk and bump-and-recalibrate checks.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
