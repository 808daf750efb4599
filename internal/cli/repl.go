package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for REPL output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Report(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context, id string) error
	Pending(ctx context.Context) error
	Resolve(ctx context.Context, id string) error
}

// runREPL reads one command per line from reader and dispatches it to a.
// It returns on end of input, on "exit"/"quit", or when ctx is done. Command
// errors are reported by the commands themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("rd %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: report, (l)ist, show <id>, pending, resolve <id>, whoami, logout, exit")
			} else {
				printlnFn("Available commands: register, login, whoami, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "report":
			_ = a.Report(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "show":
			if len(args) == 0 {
				printlnFn("Usage: show <id>")
				continue
			}
			_ = a.Show(ctx, args[0])

		case "pending":
			_ = a.Pending(ctx)

		case "resolve":
			if len(args) == 0 {
				printlnFn("Usage: resolve <id>")
				continue
			}
			_ = a.Resolve(ctx, args[0])

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
