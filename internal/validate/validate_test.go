package validate

import "testing"

func TestUsername(t *testing.T) {
	cases := []struct {
		name    string
		wantErr bool
	}{
		{"ab", true},                                // too short
		{"abc", false},                               // minimum valid length
		{"red-team_01", false},                        // valid with hyphen/underscore
		{"1abc", true},                                 // cannot start with a digit
		{".abc", true},                                 // cannot start with a dot
		{"this-is-a-very-long-username-indeed-sir", true}, // too long
	}
	for _, c := range cases {
		err := Username(c.name)
		if (err != nil) != c.wantErr {
			t.Errorf("Username(%q) error = %v, wantErr %v", c.name, err, c.wantErr)
		}
	}
}

func TestEmail(t *testing.T) {
	cases := []struct {
		email   string
		wantErr bool
	}{
		{"player@example.com", false},
		{"player+tag@sub.example.co", false},
		{"not-an-email", true},
		{"missing@tld", true},
	}
	for _, c := range cases {
		err := Email(c.email)
		if (err != nil) != c.wantErr {
			t.Errorf("Email(%q) error = %v, wantErr %v", c.email, err, c.wantErr)
		}
	}
}

func TestPassword(t *testing.T) {
	if err := Password("short"); err == nil {
		t.Error("expected error for password under 8 characters")
	}
	if err := Password("longenough1"); err != nil {
		t.Errorf("unexpected error for valid password: %v", err)
	}
}
