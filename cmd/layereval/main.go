// Command layereval evaluates every combination of evidence layers over a
// query set and reports which combinations rank best.
package main

import (
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if apperrors.IsConfigError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
