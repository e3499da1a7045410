// Package main provides a minimal line-oriented peer client for the
// Gridlands tick server. It mirrors the authoritative world state and
// forwards moves, chat, and interactions; rendering proper is left to
// richer frontends.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	neturl "net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/gridlands/gridlands/internal/client"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "server host:port")
	name := flag.String("name", "", "display name")
	flag.Parse()

	logCfg := zap.NewDevelopmentConfig()
	logger, err := logCfg.Build()
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	url := fmt.Sprintf("ws://%s/ws", *addr)
	if *name != "" {
		url += "?name=" + neturl.QueryEscape(*name)
	}

	peer, err := client.Dial(url, logger)
	if err != nil {
		log.Fatalf("connecting to %s: %v", url, err)
	}
	defer peer.Close()

	fmt.Printf("connected as %s\n", peer.Mirror().PlayerID())
	fmt.Println("commands: move <x> <y> | say <text> | interact <id> | who | state | quit")

	go printEvents(peer)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !runCommand(peer, line) {
			return
		}
	}
}

// runCommand executes one REPL line. Returns false when the client should
// exit.
func runCommand(peer *client.Peer, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "move":
		if len(fields) != 3 {
			fmt.Println("usage: move <x> <y>")
			return true
		}
		x, errX := strconv.Atoi(fields[1])
		y, errY := strconv.Atoi(fields[2])
		if errX != nil || errY != nil {
			fmt.Println("usage: move <x> <y>")
			return true
		}
		if err := peer.SendMove(x, y); err != nil {
			fmt.Printf("move failed: %v\n", err)
		}

	case "say":
		if err := peer.SendChat(strings.TrimPrefix(line, "say ")); err != nil {
			fmt.Printf("say failed: %v\n", err)
		}

	case "interact":
		if len(fields) != 2 {
			fmt.Println("usage: interact <id>")
			return true
		}
		if err := peer.SendInteract(fields[1]); err != nil {
			fmt.Printf("interact failed: %v\n", err)
		}

	case "who":
		state := peer.Mirror().State()
		names := make([]string, 0, len(state.Players))
		for _, p := range state.Players {
			names = append(names, fmt.Sprintf("%s at (%d,%d)", p.Name, p.Position.X, p.Position.Y))
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Println(n)
		}

	case "state":
		state := peer.Mirror().State()
		fmt.Printf("tick %d, %d players, %d chat messages, %d objects\n",
			state.Tick, len(state.Players), len(state.ChatMessages), len(state.WorldObjects))
		if self, ok := peer.Mirror().Self(); ok {
			fmt.Printf("you: %s at (%d,%d), energy %.1f\n",
				self.Name, self.Position.X, self.Position.Y, self.RunEnergy)
		}

	case "quit", "exit":
		return false

	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
	return true
}

func printEvents(peer *client.Peer) {
	for ev := range peer.Events() {
		switch {
		case ev.Chat != nil:
			fmt.Printf("[chat] %s: %s\n", ev.Chat.PlayerName, ev.Chat.Content)
		case ev.Player != nil:
			fmt.Printf("[join] %s (%s)\n", ev.Player.Name, ev.Player.ID)
		case ev.PlayerID != "":
			fmt.Printf("[left] %s\n", ev.PlayerID)
		case ev.Error != "":
			fmt.Printf("[server error] %s\n", ev.Error)
		}
	}
}
