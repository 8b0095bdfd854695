// Command shelfctl is the operator CLI for linkshelf: it creates the schema,
// imports the one-time seed file and inspects the collection without going
// through the web UI.
//
//	shelfctl init
//	shelfctl seed links.yaml
//	shelfctl categories list
//	shelfctl categories add tools "Tools"
//	shelfctl links list --search go --category dev --sort rating
//
// It reads the same DATABASE_URL / DATABASE_AUTH_TOKEN settings as the server.
package main

import (
	"fmt"
	"os"
)

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	// Cobra skips post-run hooks after a failed command, so the
	// connection is released here.
	if cerr := a.Close(); cerr != nil {
		fmt.Fprintln(os.Stderr, "closing database:", cerr)
	}
	if err != nil {
		// cobra has already printed the error.
		os.Exit(1)
	}
}
