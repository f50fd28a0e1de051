package core

import (
	"fmt"
	"strings"

	"github.com/tabslayer/tabslayer-server/internal/store"
)

// BuildLinkContext serializes every link, one per line, for the query prompt.
// The whole vault is sent: there is no size bound.
func BuildLinkContext(links []store.Link) string {
	var b strings.Builder
	for i, l := range links {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "ID: %s, Title: %s, Desc: %s, URL: %s, Tags: %s",
			l.ID, l.Title, l.Description, l.URL, strings.Join(l.Tags, ", "))
	}
	return b.String()
}

func annotationPrompt(url string) string {
	return fmt.Sprintf("Analyze this URL and provide a concise title, a 1-sentence description, and 3-5 relevant tags. URL: %s", url)
}

func queryPrompt(question string, links []store.Link) string {
	return fmt.Sprintf("You are an intelligent link assistant. Based on the user's query and the list of links below, "+
		"answer their question and identify which links (by ID) are most relevant.\n\n"+
		"Query: %q\n\n"+
		"Links Context:\n%s\n\n"+
		"Format your response as JSON.", question, BuildLinkContext(links))
}
