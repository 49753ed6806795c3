package main

import "github.com/apidoor/restq/cmd/restq"

func main() {
	restq.Main()
}
