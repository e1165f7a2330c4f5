package utils

import "testing"

func TestRandString(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		s := RandString(8)
		if len(s) != 8 {
			t.Fatalf("len = %d, want 8", len(s))
		}
		seen[s] = true
	}
	if len(seen) < 45 {
		t.Errorf("only %d distinct values out of 50", len(seen))
	}
}

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"  User@Example.COM ": "user@example.com",
		"user@example.com":    "user@example.com",
		"":                    "",
		"   ":                 "",
	}
	for in, want := range cases {
		if got := NormalizeEmail(in); got != want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidEmail(t *testing.T) {
	valid := []string{"user@example.com", "a.b+c@sub.example.org"}
	for _, addr := range valid {
		if !ValidEmail(addr) {
			t.Errorf("ValidEmail(%q) = false", addr)
		}
	}
	invalid := []string{"", "not-an-email", "user@", "@example.com", "Name <user@example.com>"}
	for _, addr := range invalid {
		if ValidEmail(addr) {
			t.Errorf("ValidEmail(%q) = true", addr)
		}
	}
}

func TestStringToInt(t *testing.T) {
	if got := StringToInt("42"); got != 42 {
		t.Errorf("StringToInt(42) = %d", got)
	}
	if got := StringToInt("abc"); got != 0 {
		t.Errorf("StringToInt(abc) = %d, want 0", got)
	}
	if got := StringToInt(""); got != 0 {
		t.Errorf("StringToInt(empty) = %d, want 0", got)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter2" {
		t.Fatal("password stored in clear")
	}
	if !CheckPassword(hash, "hunter2") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}
