package main

import (
	"github.com/jakabjo/cmdb-inventory/pkg/cli"
)

func main() {
	cli.Execute()
}
