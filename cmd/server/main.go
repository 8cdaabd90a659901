package main

import "github.com/teranga-events/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
