// Command flowedit works with a running flow service from the
// terminal: list flows, export backups, compile a flow to the runtime
// format, and upload media assets.
package main

func main() {
	Execute()
}
