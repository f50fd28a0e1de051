package core

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Annotation
		wantErr bool
	}{
		{
			name: "complete",
			body: `{"title":"Go","description":"The Go site.","tags":["go","lang"]}`,
			want: Annotation{Title: "Go", Description: "The Go site.", Tags: []string{"go", "lang"}},
		},
		{
			name: "missing fields are not an error",
			body: `{"title":"Only a title"}`,
			want: Annotation{Title: "Only a title"},
		},
		{
			name: "empty object",
			body: `{}`,
			want: Annotation{},
		},
		{
			name: "fenced json",
			body: "```json\n{\"title\":\"Fenced\"}\n```",
			want: Annotation{Title: "Fenced"},
		},
		{name: "wrong type", body: `{"title":42}`, wantErr: true},
		{name: "tags not an array", body: `{"tags":"go"}`, wantErr: true},
		{name: "array body", body: `["go"]`, wantErr: true},
		{name: "null body", body: `null`, wantErr: true},
		{name: "prose", body: `Sorry, I cannot browse.`, wantErr: true},
		{name: "truncated", body: `{"title":"Go"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnnotation(tt.body)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseQueryResult(t *testing.T) {
	got, err := parseQueryResult(`{"answer":"Two links.","relatedLinkIds":["a","b"]}`)
	require.NoError(t, err)
	assert.Equal(t, QueryResult{Answer: "Two links.", RelatedLinkIDs: []string{"a", "b"}}, got)

	got, err = parseQueryResult(`{"answer":"None."}`)
	require.NoError(t, err)
	assert.Equal(t, "None.", got.Answer)
	assert.Empty(t, got.RelatedLinkIDs)

	_, err = parseQueryResult(`{"relatedLinkIds":[1,2]}`)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"title":`), genai.Text(`"Go"}`)}},
		}},
	}
	text, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Go"}`, text)

	for name, resp := range map[string]*genai.GenerateContentResponse{
		"nil":           nil,
		"no candidates": {},
		"nil content":   {Candidates: []*genai.Candidate{{}}},
		"no text parts": {Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}}}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := responseText(resp)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestSchemasDeclareAllFieldsRequired(t *testing.T) {
	assert.ElementsMatch(t, []string{"title", "description", "tags"}, annotationSchema.Required)
	assert.Equal(t, genai.TypeArray, annotationSchema.Properties["tags"].Type)
	assert.ElementsMatch(t, []string{"answer", "relatedLinkIds"}, queryResultSchema.Required)
	assert.Equal(t, genai.TypeString, queryResultSchema.Properties["relatedLinkIds"].Items.Type)
}
