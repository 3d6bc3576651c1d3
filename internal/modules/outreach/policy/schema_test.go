package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultValidatorAcceptsCompleteResult(t *testing.T) {
	v, err := NewResultValidator()
	require.NoError(t, err)

	res, err := v.Decode([]byte(`{"subject":" Hello ","preview_text":"p","body_html":"<p>hi</p>","sentiment_analysis":null}`))
	require.NoError(t, err)
	assert.Equal(t, "Hello", res.Subject)
	assert.Equal(t, "<p>hi</p>", res.BodyHTML)
	assert.Empty(t, res.SentimentAnalysis)

	res, err = v.Decode([]byte(`{"subject":"s","preview_text":"p","body_html":"b","sentiment_analysis":"warm"}`))
	require.NoError(t, err)
	assert.Equal(t, "warm", res.SentimentAnalysis)
}

func TestResultValidatorRejectsIncompleteResults(t *testing.T) {
	v, err := NewResultValidator()
	require.NoError(t, err)

	cases := map[string]string{
		"missing body":  `{"subject":"s","preview_text":"p"}`,
		"blank subject": `{"subject":"   ","preview_text":"p","body_html":"b"}`,
		"wrong type":    `{"subject":"s","preview_text":"p","body_html":42}`,
		"not an object": `["s","p","b"]`,
		"not json":      `subject: s`,
		"null":          `null`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Decode([]byte(raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidResult))
		})
	}
}

func TestResultSchemaListsRequiredFields(t *testing.T) {
	s := ResultSchema()
	req, ok := s["required"].([]string)
	require.True(t, ok)
	for _, f := range []string{"subject", "preview_text", "body_html"} {
		assert.Contains(t, req, f)
	}
}
