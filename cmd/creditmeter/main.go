// Package main is the entry point for creditmeter.
package main

func main() {
	Execute()
}
