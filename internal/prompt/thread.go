// Package prompt builds the generator prompts for a feed cycle and keeps them
// inside the configured context window.
package prompt

import (
	"fmt"
	"math"
	"strings"

	"synthfeed/internal/persona"
	"synthfeed/internal/types"
)

// SystemInstruction frames every comment-thread request.
const SystemInstruction = "You are an API that generates a simulated Reddit comment section for a given headline."

// Options shapes the comment-thread prompt.
type Options struct {
	Style          string
	MinUpvotes     int
	MaxUpvotes     int
	ShortFormWords int
	// ShortFormRatio is the share of comments that should be short-form, 0 disables the hint.
	ShortFormRatio float64
	// HasImage tells the model an image of the story is attached.
	HasImage bool
}

// BuildThread assembles the comment-thread prompt for one headline.
func BuildThread(h types.Headline, roster persona.Roster, opts Options) (string, error) {
	var sb strings.Builder

	sb.WriteString("Your task is to use the provided personas to create a series of comments and replies in a nested structure. ")
	if opts.Style != "" {
		sb.WriteString(strings.TrimSpace(opts.Style))
		sb.WriteString(" ")
	}
	if opts.ShortFormRatio > 0 && opts.ShortFormWords > 0 {
		pct := int(math.Round(opts.ShortFormRatio * 100))
		fmt.Fprintf(&sb, "About %d%% of the comments should be short reactions of fewer than %d words; the rest can run longer. ", pct, opts.ShortFormWords)
	}
	sb.WriteString("Every author must be one of the personas, and personas may reply to each other. ")

	sb.WriteString("The final output must be a single, valid JSON array and nothing else. Do not include any explanatory text before or after the JSON. ")
	sb.WriteString("The array holds the top-level comment objects. ")
	sb.WriteString("Each comment object must have the following keys:\n")
	sb.WriteString(" - 'author': (string) The name of the persona posting the comment.\n")
	sb.WriteString(" - 'comment': (string) The text of the comment.\n")
	fmt.Fprintf(&sb, " - 'upvotes': (integer) A randomly generated number of upvotes based on how popular the comment would be in real life, e.g., between %d and %d.\n", opts.MinUpvotes, opts.MaxUpvotes)
	sb.WriteString(" - 'replies': (list) A list of other comment objects that are replies to this one. This list can be empty.\n\n")

	if len(roster) > 0 {
		doc, err := roster.YAML()
		if err != nil {
			return "", err
		}
		sb.WriteString("Here are your personas:\n")
		sb.WriteString(doc)
		sb.WriteString("\n")
	} else {
		sb.WriteString("No personas were provided; invent a handful of distinct commenters.\n\n")
	}

	fmt.Fprintf(&sb, "Here is the headline: %q\n", h.Title)
	if body := strings.TrimSpace(h.Body); body != "" {
		fmt.Fprintf(&sb, "Here is the story text:\n%s\n", body)
	}
	if opts.HasImage {
		sb.WriteString("An image from the story is attached; commenters may react to it.\n")
	}
	sb.WriteString("\nGenerate the JSON output now.")

	return sb.String(), nil
}
