package main

import "shomiti/process/sanitize"

func main() {
	sanitize.Run()
}
