// mom produces speaker-attributed meeting transcripts.
//
// Usage:
//
//	mom run -k 3 meeting.mp3
package main

import (
	"os"

	"github.com/maastricht-university/mom-pipeline/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
