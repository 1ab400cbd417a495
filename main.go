package main

import "github.com/taigaio/taiga/cmd"

func main() {
	cmd.Execute()
}
