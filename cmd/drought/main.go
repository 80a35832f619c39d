// Command drought serves and inspects the monthly drought tables.
package main

func main() {
	Execute()
}
