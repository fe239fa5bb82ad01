package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

func getFlag(cmd *cobra.Command, name string) bool {
	r, err := cmd.Flags().GetBool(name)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return r
}

func getString(cmd *cobra.Command, name string) string {
	r, err := cmd.Flags().GetString(name)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return r
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
