package rank

import "testing"

func TestParse(t *testing.T) {
	r, err := Parse("admin")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r != Admin {
		t.Errorf("Parse = %q, want admin", r)
	}
	if _, err := Parse("superuser"); err == nil {
		t.Error("Parse unknown rank should fail")
	}
}

func TestOrder(t *testing.T) {
	order := []Rank{Developer, Admin, Moderator, Werknemer, Gebruiker}
	for i := 0; i < len(order)-1; i++ {
		if !order[i].Outranks(order[i+1]) {
			t.Errorf("%s should outrank %s", order[i], order[i+1])
		}
		if order[i+1].Outranks(order[i]) {
			t.Errorf("%s should not outrank %s", order[i+1], order[i])
		}
	}
	if Admin.Outranks(Admin) {
		t.Error("a rank must not outrank itself")
	}
}

func TestHasPermission(t *testing.T) {
	cases := []struct {
		rank Rank
		perm Permission
		want bool
	}{
		{Developer, PermViewErrorLogs, true},
		{Admin, PermViewErrorLogs, false},
		{Admin, PermForceLogoutUsers, true},
		{Moderator, PermForceLogoutUsers, false},
		{Moderator, PermViewAllSessions, true},
		{Werknemer, PermViewUsers, true},
		{Werknemer, PermEditUsers, false},
		{Gebruiker, PermViewUsers, false},
		{Rank("bogus"), PermViewUsers, false},
	}
	for _, c := range cases {
		if got := HasPermission(c.rank, c.perm); got != c.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", c.rank, c.perm, got, c.want)
		}
	}
}

func TestVisibleRanks_NoSeniorLeak(t *testing.T) {
	for _, r := range All {
		for _, v := range VisibleRanks(r) {
			if v.Outranks(r) {
				t.Errorf("VisibleRanks(%s) includes senior rank %s", r, v)
			}
		}
	}
}

func TestVisibleRanks_Convention(t *testing.T) {
	// Developer sees everything including itself.
	dev := VisibleRanks(Developer)
	if len(dev) != len(All) {
		t.Errorf("VisibleRanks(developer) = %v, want all ranks", dev)
	}
	// Everyone else sees strictly below, own rank excluded.
	for _, r := range []Rank{Admin, Moderator, Werknemer, Gebruiker} {
		for _, v := range VisibleRanks(r) {
			if v == r {
				t.Errorf("VisibleRanks(%s) must not include own rank", r)
			}
			if !r.Outranks(v) {
				t.Errorf("VisibleRanks(%s) includes non-junior rank %s", r, v)
			}
		}
	}
	if CanSee(Admin, Admin) {
		t.Error("admin must not see peer admins")
	}
	if !CanSee(Admin, Moderator) {
		t.Error("admin should see moderators")
	}
}

func TestCanManage(t *testing.T) {
	if !CanManage(Admin, Moderator) {
		t.Error("admin should manage moderator")
	}
	if CanManage(Admin, Admin) {
		t.Error("peer must not be manageable")
	}
	if CanManage(Moderator, Admin) {
		t.Error("junior must not manage senior")
	}
	if CanManage(Rank("bogus"), Gebruiker) {
		t.Error("unknown actor rank must not manage anyone")
	}
}

func TestEffective(t *testing.T) {
	if got := Effective(Developer, "moderator"); got != Moderator {
		t.Errorf("developer simulating moderator: got %s", got)
	}
	if got := Effective(Developer, ""); got != Developer {
		t.Errorf("empty header: got %s, want developer", got)
	}
	if got := Effective(Developer, "bogus"); got != Developer {
		t.Errorf("unknown simulated rank: got %s, want developer", got)
	}
	// Non-developers can never simulate, not even downward.
	if got := Effective(Admin, "gebruiker"); got != Admin {
		t.Errorf("admin simulating: got %s, want admin", got)
	}
	if got := Effective(Admin, "developer"); got != Admin {
		t.Errorf("admin simulating upward: got %s, want admin", got)
	}
}
