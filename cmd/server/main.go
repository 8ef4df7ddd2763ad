// Command server is the container entrypoint: it only serves. Use
// cmd/storefront for migrations, seeding and the standalone workers.
package main

import (
	"fmt"
	"os"

	_ "github.com/naturelovers/storefront/database/migrations"
	"github.com/naturelovers/storefront/internal/server"
)

func main() {
	if err := server.Start(server.Options{}); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
