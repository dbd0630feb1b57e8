package app

import (
	"testing"
	"time"
)

func TestEnvString(t *testing.T) {
	t.Setenv("TEST_ENV_STRING", "  value  ")
	if got := EnvString("TEST_ENV_STRING", "def"); got != "value" {
		t.Errorf("EnvString = %q", got)
	}
	if got := EnvString("TEST_ENV_STRING_MISSING", "def"); got != "def" {
		t.Errorf("EnvString missing = %q", got)
	}
}

func TestEnvStrings(t *testing.T) {
	t.Setenv("TEST_ENV_STRINGS", "a, b ,,c")
	got := EnvStrings("TEST_ENV_STRINGS", nil)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("EnvStrings = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("EnvStrings = %v, want %v", got, want)
		}
	}

	def := []string{"x"}
	if got := EnvStrings("TEST_ENV_STRINGS_MISSING", def); len(got) != 1 || got[0] != "x" {
		t.Errorf("EnvStrings missing = %v", got)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("TEST_ENV_BOOL", "true")
	if !EnvBool("TEST_ENV_BOOL", false) {
		t.Error("EnvBool(true) = false")
	}
	t.Setenv("TEST_ENV_BOOL_BAD", "nope")
	if EnvBool("TEST_ENV_BOOL_BAD", false) {
		t.Error("EnvBool(invalid) did not fall back")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("TEST_ENV_INT", "42")
	if got := EnvInt("TEST_ENV_INT", 1); got != 42 {
		t.Errorf("EnvInt = %d", got)
	}
	t.Setenv("TEST_ENV_INT_NEG", "-5")
	if got := EnvInt("TEST_ENV_INT_NEG", 1); got != 1 {
		t.Errorf("EnvInt(negative) = %d, want default", got)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TEST_ENV_DUR", "45s")
	if got := EnvDuration("TEST_ENV_DUR", time.Second); got != 45*time.Second {
		t.Errorf("EnvDuration = %v", got)
	}
	t.Setenv("TEST_ENV_DUR_BAD", "soon")
	if got := EnvDuration("TEST_ENV_DUR_BAD", time.Second); got != time.Second {
		t.Errorf("EnvDuration(invalid) = %v, want default", got)
	}
}
