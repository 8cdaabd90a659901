package roles

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Role
		ok    bool
	}{
		{"owner", RoleOwner, true},
		{"Admin", RoleAdmin, true},
		{"  staff ", RoleStaff, true},
		{"FINANCE", RoleFinance, true},
		{"editor", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := Parse(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Parse(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIn(t *testing.T) {
	if !RoleOwner.In(RoleOwner, RoleAdmin) {
		t.Error("expected owner to match allowed set")
	}
	if RoleStaff.In(RoleOwner, RoleAdmin) {
		t.Error("staff should not match owner/admin set")
	}
	if RoleOwner.In() {
		t.Error("empty allowed set should match nothing")
	}
}

func TestNoImplicitHierarchy(t *testing.T) {
	// Owner does not imply admin: the check is strict set membership.
	if RoleOwner.In(RoleAdmin) {
		t.Error("owner must not satisfy an admin-only check")
	}
}
