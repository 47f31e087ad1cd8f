// Command runloop-demo animates a scene on a run loop, exiting when the loop
// quits or a timeout elapses.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

func main() {
	code, err := execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) (int, error) {
	var code int
	cmd := newRootCmd(&code)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1, err
	}
	return code, nil
}
