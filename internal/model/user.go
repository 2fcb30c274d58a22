// Package model はドメインモデルを定義する。
package model

import "time"

// ユーザーロール。
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// Identity は外部IDプロバイダーが保持する認証レコードのミラーを表す。
// セッションマネージャーはこの値を参照するのみで、変更しない。
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// User はアプリケーション自身が保持するプロファイルレコードを表す。
// 初回サインアップまたは初回フェデレーテッドログイン時に1回だけ作成され、
// 以降はプロファイル編集操作以外で上書きされない。
type User struct {
	ID             string
	Email          string
	Name           string
	PhotoURL       string
	Role           string
	SubmittedTools int
	Favorites      []string
	CreatedAt      time.Time
}
