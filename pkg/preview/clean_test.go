package preview

import "testing"

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{
			name:     "plain title untouched",
			title:    "A perfectly normal headline",
			expected: "A perfectly normal headline",
		},
		{
			name:     "on Instagram phrase removed",
			title:    "Check out this post on Instagram: Beautiful sunset",
			expected: "Check out this post Beautiful sunset",
		},
		{
			name:     "trailing handle suffix removed",
			title:    "Amazing photo - @photographer",
			expected: "Amazing photo",
		},
		{
			name:     "instagram dash suffix removed",
			title:    "Morning run - Instagram photos and videos",
			expected: "Morning run",
		},
		{
			name:     "bullet handle suffix removed",
			title:    "Great picture • @someuser likes this",
			expected: "Great picture",
		},
		{
			name:     "surrounding quotes stripped",
			title:    `"Quoted headline"`,
			expected: "Quoted headline",
		},
		{
			name:     "unicode quotes stripped",
			title:    "“Curly quoted headline”",
			expected: "Curly quoted headline",
		},
		{
			name:     "leading mention removed",
			title:    "@someuser great shot of the harbor",
			expected: "great shot of the harbor",
		},
		{
			name:     "inline mention removed",
			title:    "sunset with @someuser at the beach",
			expected: "sunset with at the beach",
		},
		{
			name:     "whitespace collapsed",
			title:    "too    many     spaces",
			expected: "too many spaces",
		},
		{
			name:     "empty title",
			title:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanTitle(tt.title)
			if got != tt.expected {
				t.Errorf("CleanTitle(%q) = %q, expected %q", tt.title, got, tt.expected)
			}

			// Cleaning must be a fixpoint: a clean title stays clean
			if again := CleanTitle(got); again != got {
				t.Errorf("CleanTitle is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestDecodeEntities(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "hex entity",
			text:     "it&#x27;s fine",
			expected: "it's fine",
		},
		{
			name:     "decimal entity",
			text:     "curly&#8217;s",
			expected: "curly’s",
		},
		{
			name:     "named entities",
			text:     "&quot;Fish &amp; Chips&quot; &lt;best&gt;",
			expected: `"Fish & Chips" <best>`,
		},
		{
			name:     "apos entity",
			text:     "it&apos;s",
			expected: "it's",
		},
		{
			name:     "no entities",
			text:     "plain text",
			expected: "plain text",
		},
		{
			name:     "empty string",
			text:     "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeEntities(tt.text); got != tt.expected {
				t.Errorf("DecodeEntities(%q) = %q, expected %q", tt.text, got, tt.expected)
			}
		})
	}
}
