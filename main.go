package main

import "github.com/lehigh-university-libraries/saftools/cmd"

func main() {
	cmd.Execute()
}
