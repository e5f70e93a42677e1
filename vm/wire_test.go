package vm

import (
	"bytes"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	res := run(
		"mov r0,7",
		"mov r1,2.5",
		"mov r2,1+2j",
		`mov r3,"text"`,
		"write r3",
	)
	if !res.OK {
		t.Fatalf("run failed: %s", res.Output)
	}

	snap := NewSnapshot(res)
	data, err := MarshalSnapshot(snap)
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}
	got, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot: %v", err)
	}

	if !got.OK || got.State != "halted" || got.Output != "text\n" || got.Steps != 5 {
		t.Errorf("snapshot header = %+v", got)
	}
	if len(got.Registers) != 4 {
		t.Fatalf("registers = %d, want 4", len(got.Registers))
	}

	env, err := got.Environment()
	if err != nil {
		t.Fatalf("Environment: %v", err)
	}
	for _, r := range []Register{R0, R1, R2, R3} {
		if !env.Get(r).Equal(res.Env.Get(r)) {
			t.Errorf("%s = %v, want %v", r, env.Get(r), res.Env.Get(r))
		}
	}
}

func TestSnapshotOfFailure(t *testing.T) {
	res := run("mov r0,1", "oops")
	snap := NewSnapshot(res)
	if snap.OK || snap.State != "failed" || snap.Line != 2 || snap.Error == "" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestSnapshotEncodingIsDeterministic(t *testing.T) {
	res := run("mov r0,1", "mov r5,\"x\"")
	a, err := MarshalSnapshot(NewSnapshot(res))
	if err != nil {
		t.Fatal(err)
	}
	b, err := MarshalSnapshot(NewSnapshot(res))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("canonical encoding differs between identical snapshots")
	}
}

func TestUnmarshalSnapshotRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalSnapshot([]byte{0xff, 0x00}); err == nil {
		t.Error("expected error for invalid CBOR")
	}
}

func TestRegisterSnapshotUnknownKind(t *testing.T) {
	s := &Snapshot{Registers: []RegisterSnapshot{{Name: "r0", Kind: "matrix"}}}
	if _, err := s.Environment(); err == nil {
		t.Error("expected error for unknown kind")
	}
	s = &Snapshot{Registers: []RegisterSnapshot{{Name: "r99", Kind: "int"}}}
	if _, err := s.Environment(); err == nil {
		t.Error("expected error for unknown register")
	}
}
