package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version || info.GitSHA != GitSHA || info.BuildTime != BuildTime {
		t.Errorf("Get() = %+v, does not match package vars", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestString_ShortensSHA(t *testing.T) {
	origVersion, origSHA := Version, GitSHA
	defer func() { Version, GitSHA = origVersion, origSHA }()

	Version = "1.2.3"
	GitSHA = "0123456789abcdef"
	s := String()
	if !strings.Contains(s, "1.2.3") || !strings.Contains(s, "(0123456,") {
		t.Errorf("String() = %q", s)
	}

	GitSHA = "abc"
	if s := String(); !strings.Contains(s, "(abc,") {
		t.Errorf("String() with short sha = %q", s)
	}
}
