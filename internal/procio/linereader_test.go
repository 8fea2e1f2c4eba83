package procio

import (
	"bufio"
	"strings"
	"testing"
)

func TestScanLinesCRLFMixed(t *testing.T) {
	input := "one\r\ntwo\nthree\r\n"
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Split(scanLinesCRLF)

	var got []string
	for scanner.Scan() {
		got = append(got, scanner.Text())
	}

	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScanLinesCRLFTrailingBareCR(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader("partial\r"))
	scanner.Split(scanLinesCRLF)
	scanner.Scan()
	if got := scanner.Text(); got != "partial" {
		t.Errorf("got %q, want %q", got, "partial")
	}
}
