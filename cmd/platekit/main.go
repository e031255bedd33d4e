package main

import "github.com/MeKo-Tech/platekit/cmd/platekit/cmd"

func main() {
	cmd.Execute()
}
