package main

import "github.com/counselcms/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
