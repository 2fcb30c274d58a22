package session

import (
	"strings"

	"github.com/freeindiatools/freetools/internal/model"
)

// computeRole はメールアドレスと保存済みロールからセッションのロールを導出する。
// 管理者許可リストに含まれるメールアドレスは、保存済みロールに関係なくadminになる。
// 許可リストに含まれない場合は、保存済みロールがadminのときのみadminになる。
func computeRole(email, storedRole string, allowList map[string]struct{}) string {
	if _, ok := allowList[strings.ToLower(email)]; ok {
		return model.RoleAdmin
	}
	if storedRole == model.RoleAdmin {
		return model.RoleAdmin
	}
	return model.RoleUser
}

// buildAllowList はメールアドレスのスライスから小文字正規化済みの集合を作る。
func buildAllowList(emails []string) map[string]struct{} {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}
