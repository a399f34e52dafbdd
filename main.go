// The main package for the tgcrawl executable.
package main

import (
	"github.com/jobscout/telegram-job-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
