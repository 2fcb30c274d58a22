// Package identity は外部IDプロバイダー能力のインターフェースと実装を提供する。
package identity

import (
	"context"

	"github.com/freeindiatools/freetools/internal/model"
)

// ChangeCallback はサインイン状態の変化を受け取るコールバック。
// identがnilの場合はサインアウト状態（absent）を示す。
type ChangeCallback func(ident *model.Identity)

// Provider はIDプロバイダー能力のインターフェース。
// セッションマネージャーはこのインターフェースのみに依存する。
//
// 変更通知は到着順に1件ずつ配送される。OnChangeは購読解除関数を返し、
// 購読直後に現在のサインイン状態で1回コールバックを呼び出す。
type Provider interface {
	// CreateIdentity は新しいIDを作成し、そのままサインイン状態にする。
	// メールアドレスが登録済みの場合はエラーを返す。
	CreateIdentity(ctx context.Context, email, password string) (*model.Identity, error)

	// Authenticate はメールアドレスとパスワードで認証しサインインする。
	Authenticate(ctx context.Context, email, password string) (*model.Identity, error)

	// AuthenticateFederated はフェデレーテッドIdPの認可コードで認証しサインインする。
	AuthenticateFederated(ctx context.Context, code string) (*model.Identity, error)

	// SignOut は現在のサインイン状態を終了する。
	SignOut(ctx context.Context) error

	// UpdateDisplayName は指定UIDのIDの表示名を更新する。
	UpdateDisplayName(ctx context.Context, uid, name string) error

	// OnChange はサインイン状態の変更通知を購読する。
	// 返り値の関数を呼ぶと購読を解除する。解除は何度呼んでも安全。
	OnChange(cb ChangeCallback) (unsubscribe func())
}
