package main

import "github.com/calidata/opsaudit/cmd"

func main() {
	cmd.Execute()
}
