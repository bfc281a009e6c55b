package isbn_test

import (
	"errors"
	"testing"

	"github.com/IyadElwy/AiBookSummarizer/internal/isbn"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "9780134685991", want: "9780134685991"},
		{in: "978-0-13-468599-1", want: "9780134685991"},
		{in: " 0134685997 ", want: "0134685997"},
		{in: "0-8044-2957-x", want: "080442957X"},
		{in: "9780134685992", wantErr: true},
		{in: "0134685998", wantErr: true},
		{in: "12345", wantErr: true},
		{in: "978013468599A", wantErr: true},
		{in: "X134685997", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		got, err := isbn.Normalize(tc.in)
		if tc.wantErr {
			if !errors.Is(err, isbn.ErrInvalid) {
				t.Errorf("Normalize(%q) expected ErrInvalid, got %q, %v", tc.in, got, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Normalize(%q) returned error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTo13(t *testing.T) {
	got, err := isbn.To13("0-13-468599-7")
	if err != nil {
		t.Fatalf("To13 returned error: %v", err)
	}
	if got != "9780134685991" {
		t.Fatalf("To13 = %q, want 9780134685991", got)
	}
	if !isbn.Valid(got) {
		t.Fatalf("converted isbn %q should validate", got)
	}
}
