package utils

import "testing"

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPasswordHash("correct horse battery staple", hash) {
		t.Error("valid password rejected")
	}
	if CheckPasswordHash("wrong password", hash) {
		t.Error("invalid password accepted")
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"user@example.com", "first.last+tag@sub.domain.io"}
	invalid := []string{"", "plain", "@nohost.com", "user@", "user@host", "user with space@x.com"}

	for _, email := range valid {
		if !IsValidEmail(email) {
			t.Errorf("IsValidEmail(%q) = false, want true", email)
		}
	}
	for _, email := range invalid {
		if IsValidEmail(email) {
			t.Errorf("IsValidEmail(%q) = true, want false", email)
		}
	}
}
