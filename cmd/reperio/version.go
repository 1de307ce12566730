package main

import (
	"fmt"

	"github.com/ternarybob/reperio/internal/common"
)

func printVersion() {
	common.LoadVersionFromFile()
	fmt.Printf("Reperio version %s\n", common.GetFullVersion())
}
