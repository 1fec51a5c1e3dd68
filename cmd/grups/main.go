// grups estimates genetic relatedness between ancient-DNA sample pairs:
// it streams a multi-sample pileup through an observed pairwise-mismatch
// counter and, optionally, a Monte-Carlo pedigree simulation, classifying
// each declared pair against fixed relatedness thresholds.
package main

import (
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/MaelLefeuvre/grups-rs/cmd/grups/cmd"
)

func main() {
	shutdown := grail.Init()
	defer shutdown()

	if err := cmd.Run(os.Args[1:]); err != nil {
		log.Panicf("%v", err)
	}
}
