package validate

import (
	"strings"
	"testing"
)

func TestValidate_ForbiddenTokens(t *testing.T) {
	v := New(Config{})

	cases := []struct {
		arg       string
		wantToken string
	}{
		{"nginx; rm -rf /", ";"},
		{"a | b", "|"},
		{"a && b", "&&"},
		{"a || b", "||"},
		{"`whoami`", "`"},
		{"$(cat /etc/passwd)", "$("},
	}
	for _, tc := range cases {
		rej := v.Validate("listContainers", []string{"--filter", tc.arg})
		if rej == nil {
			t.Errorf("Validate accepted argument %q", tc.arg)
			continue
		}
		if rej.Category != CategoryForbiddenToken {
			t.Errorf("arg %q: category = %s, want %s", tc.arg, rej.Category, CategoryForbiddenToken)
		}
		if rej.Token != tc.wantToken {
			t.Errorf("arg %q: token = %q, want %q", tc.arg, rej.Token, tc.wantToken)
		}
	}
}

func TestValidate_DoubledOperatorsReportedFully(t *testing.T) {
	v := New(Config{})

	// "&&" contains no ";" but does contain "|"-free text; make sure the
	// doubled form is named, not its single-character substring.
	rej := v.Validate("listContainers", []string{"a && b"})
	if rej == nil || rej.Token != "&&" {
		t.Fatalf("got %+v, want token &&", rej)
	}
	rej = v.Validate("listContainers", []string{"a || b"})
	if rej == nil || rej.Token != "||" {
		t.Fatalf("got %+v, want token ||", rej)
	}
}

func TestValidate_CommandScannedToo(t *testing.T) {
	v := New(Config{})

	rej := v.Validate("list;Containers", nil)
	if rej == nil || rej.Category != CategoryForbiddenToken {
		t.Fatalf("got %+v, want forbidden_token rejection", rej)
	}
}

func TestValidate_EmptyCommand(t *testing.T) {
	v := New(Config{})

	for _, command := range []string{"", "   ", "\t"} {
		rej := v.Validate(command, nil)
		if rej == nil || rej.Category != CategoryEmptyCommand {
			t.Errorf("command %q: got %+v, want empty_command rejection", command, rej)
		}
	}
}

func TestValidate_AllowList(t *testing.T) {
	v := New(Config{AllowedCommands: []string{"listContainers", "removeImage"}})

	if rej := v.Validate("listContainers", nil); rej != nil {
		t.Errorf("allow-listed command rejected: %+v", rej)
	}
	rej := v.Validate("launchMissiles", nil)
	if rej == nil || rej.Category != CategoryUnknownCommand {
		t.Fatalf("got %+v, want unknown_command rejection", rej)
	}
	if rej.Token != "launchMissiles" {
		t.Errorf("token = %q, want launchMissiles", rej.Token)
	}
}

func TestValidate_NoAllowListAcceptsAnyIdentifier(t *testing.T) {
	v := New(Config{})

	if rej := v.Validate("someFutureCommand", []string{"arg"}); rej != nil {
		t.Errorf("rejected without an allow-list: %+v", rej)
	}
}

func TestValidate_OversizedArgument(t *testing.T) {
	v := New(Config{MaxArgumentLength: 64})

	rej := v.Validate("listContainers", []string{strings.Repeat("x", 65)})
	if rej == nil || rej.Category != CategoryOversizedArgument {
		t.Fatalf("got %+v, want oversized_argument rejection", rej)
	}

	if rej := v.Validate("listContainers", []string{strings.Repeat("x", 64)}); rej != nil {
		t.Errorf("argument at the limit rejected: %+v", rej)
	}
}

func TestValidate_OversizedArgumentSmallLimit(t *testing.T) {
	// Limits below the reporting abbreviation width must still produce a
	// structured rejection for short oversized arguments.
	v := New(Config{MaxArgumentLength: 10})

	arg := strings.Repeat("x", 11)
	rej := v.Validate("listContainers", []string{arg})
	if rej == nil || rej.Category != CategoryOversizedArgument {
		t.Fatalf("got %+v, want oversized_argument rejection", rej)
	}
	if rej.Token != arg {
		t.Errorf("token = %q, want the argument itself", rej.Token)
	}

	long := strings.Repeat("y", 50)
	rej = v.Validate("listContainers", []string{long})
	if rej == nil || rej.Token != long[:32]+"..." {
		t.Fatalf("got %+v, want abbreviated token", rej)
	}
}

func TestValidate_AllOrNothing(t *testing.T) {
	v := New(Config{})

	// One bad argument among clean ones rejects the whole action.
	rej := v.Validate("containerLogs", []string{"--tail", "100", "web; reboot"})
	if rej == nil {
		t.Fatal("action with one unsafe argument was accepted")
	}
}

func TestRejection_Message(t *testing.T) {
	rej := &Rejection{Category: CategoryForbiddenToken, Token: ";", Reason: "argument contains forbidden sequence \";\""}
	msg := rej.Message()
	if !strings.Contains(msg, "forbidden_token") {
		t.Errorf("message %q does not name the category", msg)
	}
}
