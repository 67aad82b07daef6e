package main

import "github.com/mautops/backoffice-gin/cmd"

func main() {
	cmd.Execute()
}
