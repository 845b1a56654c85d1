// wlbg draws a background on every output of a wlroots-based Wayland
// compositor.
//
// Usage:
//
//	wlbg [color]
//
// Without arguments, a gradient is drawn. Otherwise the background is
// filled with the named SVG 1.1 color, such as "midnightblue".
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/image/colornames"

	wl "deedles.dev/wlbg/client"
	"deedles.dev/wlbg/pattern"
	"deedles.dev/wlbg/renderer"
)

func parsePattern(args []string) (pattern.Func, error) {
	switch len(args) {
	case 0:
		return pattern.Gradient, nil
	case 1:
		c, ok := colornames.Map[strings.ToLower(args[0])]
		if !ok {
			return nil, fmt.Errorf("unknown color %q", args[0])
		}
		return pattern.Solid(c), nil
	default:
		return nil, errors.New("too many arguments")
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := parsePattern(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\nusage: wlbg [color]\n", err)
		os.Exit(2)
	}

	client, err := wl.Dial()
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer client.Close()

	r := renderer.New(client)
	r.Pattern = p
	err = r.Run(ctx)
	if err != nil {
		client.Close()
		log.Fatalf("run: %v", err)
	}
}
