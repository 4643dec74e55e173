package main

import (
	"os"

	"github.com/yumeka/bili2tg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
