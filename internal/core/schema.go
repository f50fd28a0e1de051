package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// Annotation is the model's metadata for one URL. Any field may be empty;
// callers fill defaults.
type Annotation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// QueryResult is the model's answer to a vault question. RelatedLinkIDs may
// name links that do not exist.
type QueryResult struct {
	Answer         string   `json:"answer"`
	RelatedLinkIDs []string `json:"relatedLinkIds"`
}

var annotationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":       {Type: genai.TypeString},
		"description": {Type: genai.TypeString},
		"tags": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"title", "description", "tags"},
}

var queryResultSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"answer": {
			Type:        genai.TypeString,
			Description: "Your conversational answer to the user's question.",
		},
		"relatedLinkIds": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "List of link IDs that directly relate to the query.",
		},
	},
	Required: []string{"answer", "relatedLinkIds"},
}

// parseAnnotation checks the structure of an annotation payload. Missing
// fields are fine; wrong types or a non-object body are not.
func parseAnnotation(text string) (Annotation, error) {
	var a Annotation
	if err := decodeObject(text, &a); err != nil {
		return Annotation{}, err
	}
	return a, nil
}

func parseQueryResult(text string) (QueryResult, error) {
	var r QueryResult
	if err := decodeObject(text, &r); err != nil {
		return QueryResult{}, err
	}
	return r, nil
}

func decodeObject(text string, target interface{}) error {
	body := stripCodeFence(strings.TrimSpace(text))
	if !strings.HasPrefix(body, "{") {
		return fmt.Errorf("%w: expected a JSON object", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(body), target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// stripCodeFence removes a surrounding ```json ... ``` block if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: no text parts", ErrMalformedResponse)
	}
	return b.String(), nil
}
