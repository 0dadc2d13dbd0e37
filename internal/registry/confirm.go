package registry

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirmer picks an entry out of the partial matches for a query, or
// reports that none applies. Injected so resolution can run without a
// terminal.
type Confirmer interface {
	Confirm(query string, candidates []Entry) (Entry, bool)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(query string, candidates []Entry) (Entry, bool)

func (f ConfirmerFunc) Confirm(query string, candidates []Entry) (Entry, bool) {
	return f(query, candidates)
}

// RejectAll never confirms a candidate; partial matches always fail.
func RejectAll() Confirmer {
	return ConfirmerFunc(func(string, []Entry) (Entry, bool) {
		return Entry{}, false
	})
}

// ConsoleConfirmer walks the candidates on Out and accepts the first one
// answered with "y" on In.
type ConsoleConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (c *ConsoleConfirmer) Confirm(query string, candidates []Entry) (Entry, bool) {
	fmt.Fprintf(c.Out, "There is no country with the exact name %q.\n", query)
	fmt.Fprintf(c.Out, "The following countries contain %q. If one of them is the country you are looking for, press \"y\".\n", query)

	scanner := bufio.NewScanner(c.In)
	for _, candidate := range candidates {
		fmt.Fprintf(c.Out, "%d %s [y?] ", candidate.Code, candidate.Name)
		if !scanner.Scan() {
			return Entry{}, false
		}
		if strings.TrimSpace(scanner.Text()) == "y" {
			return candidate, true
		}
	}
	return Entry{}, false
}
