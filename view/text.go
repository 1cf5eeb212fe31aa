package view

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const barCells = 20

// WriteText writes the page as a plain table for terminals
func WriteText(w io.Writer, page Page) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s [%s]\n\n", page.Title, page.Status.Text())
	if page.Placeholder != nil {
		fmt.Fprintf(tw, "%s\n%s\n", page.Placeholder.Title, page.Placeholder.Subtitle)
		return tw.Flush()
	}
	for _, card := range page.Cards {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", card.Group, card.Temperature, textBar(card.Bar), card.Timestamp)
	}
	return tw.Flush()
}

func textBar(percent float64) string {
	filled := int(percent / 100 * barCells)
	return strings.Repeat("█", filled) + strings.Repeat("░", barCells-filled)
}
