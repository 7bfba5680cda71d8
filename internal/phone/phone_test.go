package phone

import "testing"

func TestDigits(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"555-123-4567", "5551234567"},
		{"+52 1 55 1234 5678", "5215512345678"},
		{"(55) 1234 5678", "5512345678"},
		{"no digits here", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := Digits(c.in); got != c.want {
			t.Errorf("Digits(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSuffixKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"5215512345678", "5512345678"},
		{"55-1234-5678", "5512345678"},
		{"12345", "12345"},
		{"", ""},
	}
	for _, c := range cases {
		if got := SuffixKey(c.in); got != c.want {
			t.Errorf("SuffixKey(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRecipient(t *testing.T) {
	cases := []struct {
		in   string
		cc   string
		want string
	}{
		{"55-1234-5678", "521", "5215512345678"},
		{"5215512345678", "521", "5215512345678"},
		{"123", "521", "123"},
		{"---", "521", ""},
		{"5512345678", "", "5512345678"},
	}
	for _, c := range cases {
		if got := Recipient(c.in, c.cc); got != c.want {
			t.Errorf("Recipient(%q, %q) = %q, want %q", c.in, c.cc, got, c.want)
		}
	}
}
