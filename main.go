package main

import "github.com/iksnae/doc-history/cmd"

func main() {
	cmd.Execute()
}
