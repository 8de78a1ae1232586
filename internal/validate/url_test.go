package validate

import (
	"errors"
	"testing"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		c       URLConstraints
		wantErr error
	}{
		{"https", "https://img.example.com/a.png", ImageURLConstraints, nil},
		{"http", "http://img.example.com/a.png", ImageURLConstraints, nil},
		{"empty", " ", ImageURLConstraints, ErrEmpty},
		{"bad scheme", "ftp://img.example.com/a.png", ImageURLConstraints, ErrDisallowedScheme},
		{"javascript", "javascript:alert(1)", ImageURLConstraints, ErrDisallowedScheme},
		{"no host", "https:///a.png", ImageURLConstraints, ErrInvalidURL},
		{"localhost", "http://localhost/a.png", ImageURLConstraints, ErrPrivateHost},
		{"loopback", "http://127.0.0.1/a.png", ImageURLConstraints, ErrPrivateHost},
		{"private", "http://10.1.2.3/a.png", ImageURLConstraints, ErrPrivateHost},
		{"link local", "http://169.254.169.254/latest", ImageURLConstraints, ErrPrivateHost},
		{"ipv6 loopback", "http://[::1]/a.png", ImageURLConstraints, ErrPrivateHost},
		{"public ip", "http://203.0.113.10/a.png", ImageURLConstraints, nil},
		{"private allowed", "http://10.1.2.3/a.png", URLConstraints{AllowedSchemes: []string{"http"}}, nil},
		{"too long", "https://example.com/abcdef", URLConstraints{MaxLength: 10}, ErrStringTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := URL(tt.input, tt.c); !errors.Is(err, tt.wantErr) {
				t.Errorf("URL(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestImageURL_EmptyAllowed(t *testing.T) {
	got, err := ImageURL("  ")
	if err != nil || got != "" {
		t.Errorf("ImageURL(blank) = %q, %v", got, err)
	}
}
