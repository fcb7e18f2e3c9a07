// Command infobserve runs the event-processing pipeline: feeders pull
// envelopes from a Redis-backed work queue, processors scan them
// against a YARA rule set, and loaders persist matched events to
// PostgreSQL.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
