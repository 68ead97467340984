// Command netlockctl reads and changes auditorium network locks from a
// terminal.
package main

import "os"

func main() {
	if err := rootCMD.Execute(); err != nil {
		os.Exit(1)
	}
}
