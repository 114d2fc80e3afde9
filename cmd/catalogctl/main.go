// Command catalogctl queries, inspects and exports catalog index files.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/catalog/cmd/catalogctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
