package commands

import (
	"errors"
	"testing"

	"todochat/internal/task"
)

func TestParseTaskRef(t *testing.T) {
	tests := []struct {
		arg     string
		want    int
		wantErr string
	}{
		{arg: "1", want: 1},
		{arg: "12", want: 12},
		{arg: "007", want: 7},
		{arg: "", wantErr: "task reference required"},
		{arg: "0", wantErr: "invalid task reference: 0"},
		{arg: "-1", wantErr: "invalid task reference: -1"},
		{arg: "a1", wantErr: "invalid task reference: a1"},
		{arg: "1.5", wantErr: "invalid task reference: 1.5"},
		{arg: "99999999999999999999", wantErr: "invalid task reference: 99999999999999999999"},
	}
	for _, tt := range tests {
		got, err := ParseTaskRef(tt.arg)
		if tt.wantErr != "" {
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("ParseTaskRef(%q): expected error %q, got %v", tt.arg, tt.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTaskRef(%q): unexpected error: %v", tt.arg, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTaskRef(%q) = %d, want %d", tt.arg, got, tt.want)
		}
	}
}

func TestParseTaskRefs(t *testing.T) {
	refs, err := ParseTaskRefs([]string{"3", "1"}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refs[0] != 3 || refs[1] != 1 {
		t.Errorf("refs = %v", refs)
	}
}

func TestParseTaskRefs_Missing(t *testing.T) {
	if _, err := ParseTaskRefs([]string{"3"}, 2); !errors.Is(err, ErrTaskRefRequired) {
		t.Errorf("expected ErrTaskRefRequired, got %v", err)
	}
	if _, err := ParseTaskRefs(nil, 1); !errors.Is(err, ErrTaskRefRequired) {
		t.Errorf("expected ErrTaskRefRequired, got %v", err)
	}
}

func TestParseTaskRefs_Extra(t *testing.T) {
	_, err := ParseTaskRefs([]string{"1", "2"}, 1)
	if err == nil || err.Error() != "unexpected argument: 2" {
		t.Errorf("expected unexpected argument error, got %v", err)
	}
}

func TestTaskAt(t *testing.T) {
	tasks := []task.Task{{ID: "a"}, {ID: "b"}}

	got, err := taskAt(tasks, 2)
	if err != nil || got.ID != "b" {
		t.Errorf("taskAt(2) = %+v, %v", got, err)
	}
	for _, n := range []int{0, 3} {
		if _, err := taskAt(tasks, n); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("taskAt(%d): expected ErrOutOfRange, got %v", n, err)
		}
	}
}
