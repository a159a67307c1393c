// Command polprofile researches an Indian politician with a pipeline of
// search-grounded model calls and prints a short profile: title, current
// status and biography.
//
// Usage:
//
//	polprofile --name "Amit Shah"
//	polprofile            # prompts for the name
//
// Settings come from the environment, optionally through a .env file. Exit
// codes: 0 profile printed, 1 failure, 2 the name is not a politician.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, newApp(), os.Args[1:])
	stop()
	os.Exit(code)
}
