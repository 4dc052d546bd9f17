package main

import "github.com/Togather-Foundation/social-events/cmd/server/cmd"

func main() {
	cmd.Execute()
}
