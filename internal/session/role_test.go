package session

import (
	"testing"

	"github.com/freeindiatools/freetools/internal/model"
)

func TestComputeRole(t *testing.T) {
	allowList := buildAllowList([]string{"Admin@FreeIndiaTools.com", " ops@freeindiatools.com "})

	tests := []struct {
		name       string
		email      string
		storedRole string
		want       string
	}{
		{
			name:       "許可リストのメールアドレスはadmin",
			email:      "admin@freeindiatools.com",
			storedRole: model.RoleUser,
			want:       model.RoleAdmin,
		},
		{
			name:       "大文字小文字を無視して照合する",
			email:      "ADMIN@freeindiatools.COM",
			storedRole: model.RoleUser,
			want:       model.RoleAdmin,
		},
		{
			name:       "保存済みroleがadminなら許可リスト外でもadmin",
			email:      "user@example.com",
			storedRole: model.RoleAdmin,
			want:       model.RoleAdmin,
		},
		{
			name:       "どちらにも該当しなければuser",
			email:      "user@example.com",
			storedRole: model.RoleUser,
			want:       model.RoleUser,
		},
		{
			name:       "保存済みroleが空でもuserに落ちる",
			email:      "user@example.com",
			storedRole: "",
			want:       model.RoleUser,
		},
		{
			name:       "moderatorはadminには昇格しない",
			email:      "mod@example.com",
			storedRole: model.RoleModerator,
			want:       model.RoleUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeRole(tt.email, tt.storedRole, allowList); got != tt.want {
				t.Errorf("computeRole(%q, %q) = %q, want %q", tt.email, tt.storedRole, got, tt.want)
			}
		})
	}
}

func TestBuildAllowList(t *testing.T) {
	list := buildAllowList([]string{"A@b.com", "", "  c@d.com  "})
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if _, ok := list["a@b.com"]; !ok {
		t.Error("expected normalized a@b.com in allow list")
	}
	if _, ok := list["c@d.com"]; !ok {
		t.Error("expected trimmed c@d.com in allow list")
	}
}
