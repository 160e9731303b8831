// Package main is the entry point for the pancstage CLI.
package main

import (
	"fmt"
	"os"

	"github.com/pancstage/pancstage/cmd"
	"github.com/pancstage/pancstage/internal/store"
)

func main() {
	cmd.SetStoreManager(store.Manager)
	err := cmd.Execute()

	store.CloseStores()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		fmt.Fprintln(os.Stderr, "❌", stopErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
