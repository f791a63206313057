package main

import "os"

func main() {
	rootCmd.AddCommand(reindexCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
