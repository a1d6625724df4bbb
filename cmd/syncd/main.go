package main

import "github.com/Kamar-Folarin/propsync/internal/cli"

func main() {
	cli.Execute()
}
