package main

import "chatpdf/internal/cli"

func main() {
	cli.Execute()
}
