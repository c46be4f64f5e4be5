package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// consoleChatID is the single operator session on the terminal surface.
const consoleChatID = "console"

// ConsoleGateway is a line-oriented read loop on stdin. One operator,
// one session; each input is fully processed before the next prompt.
type ConsoleGateway struct {
	Responder Responder
	In        io.Reader
	Out       io.Writer
}

func NewConsoleGateway(responder Responder) *ConsoleGateway {
	return &ConsoleGateway{
		Responder: responder,
		In:        os.Stdin,
		Out:       os.Stdout,
	}
}

func (c *ConsoleGateway) Start(ctx context.Context) error {
	scanner := bufio.NewScanner(c.In)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	fmt.Fprintln(c.Out, "Type 'help' for commands, 'quit' to exit.")

	for {
		fmt.Fprint(c.Out, "\nYou: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if lowered := strings.ToLower(input); lowered == "quit" || lowered == "exit" {
			fmt.Fprintln(c.Out, "Goodbye!")
			return nil
		}

		reply := c.Responder.HandleTurn(ctx, consoleChatID, input)
		if reply != "" {
			fmt.Fprintln(c.Out, "\nAssistant:", reply)
		}
	}
}

func (c *ConsoleGateway) Send(_ string, text string) error {
	_, err := fmt.Fprintln(c.Out, text)
	return err
}

func (c *ConsoleGateway) Stop() error { return nil }
