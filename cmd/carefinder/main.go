package main

import "github.com/zatekoja/carefinder/internal/cli"

func main() {
	cli.Execute()
}
