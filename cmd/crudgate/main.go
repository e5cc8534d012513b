// Package main is the entry point for crudgate.
package main

func main() {
	Execute()
}
