package trace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeBasename(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"root", "https://example.com", "example.com"},
		{"root slash", "https://example.com/", "example.com"},
		{"path", "https://example.com/en-US/docs", "example.com_en-US_docs"},
		{"port stripped", "https://example.com:8080/x", "example.com_x"},
		{"unparseable", "::not a url::", "_not_a_url_"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, SafeBasename(tc.raw))
		})
	}
}

func TestFilename(t *testing.T) {
	t.Parallel()
	require.Equal(t, "example.com-wpt-1.trace.json", Filename("https://example.com", SourceWPT, 1))
	require.Equal(t, "example.com-unthrottled-9.trace.json", Filename("https://example.com", SourceUnthrottled, 9))
}

func TestEntryComplete(t *testing.T) {
	t.Parallel()
	e := Entry{
		URL:         "https://example.com",
		WPT:         []string{"a", "b"},
		Unthrottled: []string{"c", "d"},
	}
	require.True(t, e.Complete(2))
	require.False(t, e.Complete(3))
	require.False(t, Entry{URL: "https://example.com"}.Complete(2))
}
