package main

import (
	"fmt"

	"github.com/actorkit/kernel/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
