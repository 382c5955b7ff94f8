// Command streamctl is the operator CLI: migrations, analytics reconcile jobs and dev tokens.
package main

import "github.com/sportcast/backend/cmd/streamctl/cmd"

func main() {
	cmd.Execute()
}
