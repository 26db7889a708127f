package sheets

import (
	"errors"
	"testing"
)

func TestSpreadsheetIDFromURL(t *testing.T) {
	const id = "1AbC_dEf-GhIjKlMnOpQrStUvWxYz0123456789"
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"edit url", "https://docs.google.com/spreadsheets/d/" + id + "/edit#gid=0", id, false},
		{"plain url", "https://docs.google.com/spreadsheets/d/" + id, id, false},
		{"bare id", "  " + id + " ", id, false},
		{"empty", "", "", true},
		{"other site", "https://example.com/sheet", "", true},
		{"short token", "abc", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SpreadsheetIDFromURL(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSheetURL) {
					t.Fatalf("expected ErrInvalidSheetURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("SpreadsheetIDFromURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
