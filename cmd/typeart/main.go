// Command typeart inspects type catalogs and replays allocation traces.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
