package urlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Example.COM/Post", "https://example.com/Post"},
		{"strips default https port", "https://example.com:443/a", "https://example.com/a"},
		{"strips default http port", "http://example.com:80/a", "http://example.com/a"},
		{"keeps custom port", "https://example.com:8443/a", "https://example.com:8443/a"},
		{"drops fragment", "https://example.com/a#section", "https://example.com/a"},
		{"trims trailing slash", "https://example.com/a/", "https://example.com/a"},
		{"keeps root slash", "https://example.com/", "https://example.com/"},
		{"trims whitespace", "  https://example.com/a ", "https://example.com/a"},
		{"keeps query", "https://example.com/a?x=1", "https://example.com/a?x=1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"",
		"not a url",
		"ftp://example.com/file",
		"//example.com/relative",
		"/just/a/path",
		"https://",
	} {
		_, err := Normalize(in)
		require.Error(t, err, "input %q", in)
	}
}
