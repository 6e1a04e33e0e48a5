// Package main provides the coldcall command line tool.
package main

func main() {
	Execute()
}
