// Command peerrouter runs the peer assignment service and small client tools.
//
// Usage:
//
//	peerrouter [run] [flags]           serve get-peers/resolve-peers over NATS
//	peerrouter resolve [flags] <key>   resolve a key through a running router
//	peerrouter watch [flags]           print assignment events as JSON lines
//	peerrouter register [flags] <key>  add peers to the KV peer registry
package main

import (
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := "run"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = serve(args)
	case "resolve":
		err = resolve(args)
	case "watch":
		err = watch(args)
	case "register":
		err = register(args)
	default:
		err = fmt.Errorf("unknown command %q (want run, resolve, watch or register)", cmd)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "peerrouter:", err)
		return 1
	}

	return 0
}
