package main

import "github.com/ekarhu/tropeshelf/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
