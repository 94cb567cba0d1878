package render

import (
	"reflect"
	"testing"
)

func TestInputManagerIndicesFollowRegistrationOrder(t *testing.T) {
	m := &InputManager{}
	if got := m.Add("/bg.png", "-loop", "1"); got != 0 {
		t.Fatalf("first index = %d", got)
	}
	if got := m.Add("/audio.m4a"); got != 1 {
		t.Fatalf("second index = %d", got)
	}
	if got := m.Add("/intro.mov"); got != 2 {
		t.Fatalf("third index = %d", got)
	}
	if m.Count() != 3 {
		t.Fatalf("count = %d", m.Count())
	}
}

func TestInputManagerCommandArgs(t *testing.T) {
	m := &InputManager{}
	m.Add("/bg.png", "-loop", "1", "-framerate", "30")
	m.Add("/audio.m4a")
	got := m.CommandArgs()
	want := []string{"-loop", "1", "-framerate", "30", "-i", "/bg.png", "-i", "/audio.m4a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CommandArgs = %v, want %v", got, want)
	}
}
