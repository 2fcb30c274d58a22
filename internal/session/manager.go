// Package session は「現在誰がアプリを使っているか」の単一の正を管理する。
//
// Managerは外部IDプロバイダーの変更通知ストリームを購読し、通知のたびに
// プロファイルレコードを取得・マージして統合セッションを公開する。
// 公開されるセッション値はManagerだけが書き換え、消費側は読み取りのみを行う。
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/freeindiatools/freetools/internal/identity"
	"github.com/freeindiatools/freetools/internal/model"
)

// Session は外部IDとプロファイルを統合した現在ユーザーのビューを表す。
// 消費側から見てイミュータブルであり、すべての変更はManagerの操作を通じて行われる。
type Session struct {
	Identity model.Identity

	// Profile はアプリケーション自身のプロファイルレコード。
	// プロファイル取得に失敗した場合やレコード未作成の場合はnilになる
	// （その場合もセッション自体は有効で、ロールは許可リストのみから導出される）。
	Profile *model.User

	// DisplayName はIDの表示名を優先し、空ならプロファイルの名前、
	// それも空なら空文字列となるマージ結果。
	DisplayName string

	IsAdmin bool
	Role    string
}

// ProfileStore はプロファイルレコードの保存能力のインターフェース。
// キーはIDプロバイダーのUID。
type ProfileStore interface {
	// Get は指定IDのプロファイルを取得する。見つからない場合はnilを返す。
	Get(ctx context.Context, id string) (*model.User, error)
	// Set は指定IDのプロファイルを保存する。
	Set(ctx context.Context, id string, user *model.User) error
}

// Observer はセッションのライフサイクルイベントを観測するインターフェース。
// メトリクス収集に使用する。すべてのメソッドは軽量であることが求められる。
type Observer interface {
	// SessionPublished はセッションが公開されたときに呼ばれる。absentの場合roleは空。
	SessionPublished(role string)
	// StaleMergeDropped は古い通知のマージ結果が破棄されたときに呼ばれる。
	StaleMergeDropped()
	// ProfileFetchFailed はプロファイル取得が失敗しID単独セッションに
	// フォールバックしたときに呼ばれる。
	ProfileFetchFailed()
}

// Config はManagerの設定。
type Config struct {
	// AdminEmails は管理者ロールを付与するメールアドレスの許可リスト。
	AdminEmails []string
	// Observer は任意のライフサイクル観測者。nilの場合は何も記録しない。
	Observer Observer
}

// Manager は現在セッションの単一の正を保持し、変更する唯一の正規手段を提供する。
// 明示的に生成し、必要とする側へ参照として渡す（暗黙のグローバルにはしない）。
type Manager struct {
	provider  identity.Provider
	store     ProfileStore
	allowList map[string]struct{}
	observer  Observer

	mu      sync.RWMutex
	current *Session
	loading bool
	seq     uint64 // 最新の変更通知のシーケンス番号

	unsubscribe func()
	closeOnce   sync.Once
}

// NewManager はManagerを生成し、IDプロバイダーの変更通知ストリームを購読する。
// 購読はManagerの生存期間中ちょうど1回だけ確立され、Closeで解除される。
// 最初の通知が解決するまでLoadingはtrueを返す。
func NewManager(provider identity.Provider, store ProfileStore, cfg Config) *Manager {
	m := &Manager{
		provider:  provider,
		store:     store,
		allowList: buildAllowList(cfg.AdminEmails),
		observer:  cfg.Observer,
		loading:   true,
	}
	m.unsubscribe = provider.OnChange(m.handleChange)
	return m
}

// Close は変更通知の購読を解除する。複数回呼んでも安全。
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
	})
}

// Current は公開中のセッションを返す。サインインしていない場合はnil。
// すべての消費側が同一の値を観測する。
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Loading は最初の変更通知がまだ解決していない、または直近の通知の
// プロファイルマージが進行中かどうかを返す。
// 「まだ分からない」と「サインインしていないことが確定した」を区別するための値。
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// handleChange はIDプロバイダーからの変更通知を処理する。
// 通知は到着順に配送されるが、プロファイル取得は非同期に行われるため、
// 古い通知の取得結果が新しい通知の後に完了することがある。
// シーケンス番号により最新でないマージ結果は破棄する。
func (m *Manager) handleChange(ident *model.Identity) {
	m.mu.Lock()
	m.seq++
	seq := m.seq

	if ident == nil {
		// サインアウト確定。取得は不要なのでこの場で公開する。
		m.current = nil
		m.loading = false
		m.mu.Unlock()
		if m.observer != nil {
			m.observer.SessionPublished("")
		}
		return
	}

	m.loading = true
	m.mu.Unlock()

	go m.mergeAndPublish(seq, *ident)
}

// mergeAndPublish はプロファイルを取得してセッションをマージし、
// 自身のシーケンス番号がまだ最新の場合のみ公開する。
// 取得失敗時はID単独のセッションへフォールバックし、loadingのまま
// 停滞することを避ける。
func (m *Manager) mergeAndPublish(seq uint64, ident model.Identity) {
	profile, err := m.store.Get(context.Background(), ident.UID)
	if err != nil {
		slog.Error("profile fetch failed, falling back to identity-only session",
			slog.String("uid", ident.UID),
			slog.String("error", err.Error()),
		)
		if m.observer != nil {
			m.observer.ProfileFetchFailed()
		}
		profile = nil
	}

	sess := m.buildSession(ident, profile)

	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		slog.Warn("discarding stale session merge",
			slog.String("uid", ident.UID),
			slog.Uint64("seq", seq),
		)
		if m.observer != nil {
			m.observer.StaleMergeDropped()
		}
		return
	}
	m.current = sess
	m.loading = false
	m.mu.Unlock()

	if m.observer != nil {
		m.observer.SessionPublished(sess.Role)
	}
}

// buildSession はIDミラーとプロファイルから統合セッションを組み立てる。
func (m *Manager) buildSession(ident model.Identity, profile *model.User) *Session {
	displayName := ident.DisplayName
	if displayName == "" && profile != nil {
		displayName = profile.Name
	}

	storedRole := ""
	if profile != nil {
		storedRole = profile.Role
	}
	role := computeRole(ident.Email, storedRole, m.allowList)

	return &Session{
		Identity:    ident,
		Profile:     profile,
		DisplayName: displayName,
		IsAdmin:     role == model.RoleAdmin,
		Role:        role,
	}
}

// SignUp は新しいIDを作成し、表示名を設定し、デフォルトのプロファイル
// レコードを1件だけ作成する。セッションの公開は変更通知リスナーが独立して行う。
// 入力のバリデーションは呼び出し側がvalidationパッケージで事前に行うこと。
func (m *Manager) SignUp(ctx context.Context, name, email, password string) error {
	ident, err := m.provider.CreateIdentity(ctx, email, password)
	if err != nil {
		return err
	}

	if err := m.provider.UpdateDisplayName(ctx, ident.UID, name); err != nil {
		return fmt.Errorf("failed to set display name: %w", err)
	}

	profile := &model.User{
		ID:             ident.UID,
		Email:          email,
		Name:           name,
		Role:           computeRole(email, "", m.allowList),
		SubmittedTools: 0,
		Favorites:      []string{},
		CreatedAt:      time.Now(),
	}
	if err := m.store.Set(ctx, ident.UID, profile); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	slog.Info("user signed up", slog.String("uid", ident.UID))
	return nil
}

// LogIn はメールアドレスとパスワードで認証する。
// セッションの構築・公開は行わない（変更通知リスナーに委ねる）。
func (m *Manager) LogIn(ctx context.Context, email, password string) error {
	if _, err := m.provider.Authenticate(ctx, email, password); err != nil {
		return err
	}
	slog.Info("user logged in", slog.String("email", email))
	return nil
}

// LogInWithGoogle はフェデレーテッド認証を実行し、プロファイルレコードが
// 存在しない場合のみ、フェデレーテッドIDの情報からデフォルトのプロファイルを作成する。
func (m *Manager) LogInWithGoogle(ctx context.Context, code string) error {
	ident, err := m.provider.AuthenticateFederated(ctx, code)
	if err != nil {
		return err
	}

	existing, err := m.store.Get(ctx, ident.UID)
	if err != nil {
		return fmt.Errorf("failed to check profile: %w", err)
	}
	if existing == nil {
		profile := &model.User{
			ID:             ident.UID,
			Email:          ident.Email,
			Name:           ident.DisplayName,
			PhotoURL:       ident.PhotoURL,
			Role:           computeRole(ident.Email, "", m.allowList),
			SubmittedTools: 0,
			Favorites:      []string{},
			CreatedAt:      time.Now(),
		}
		if err := m.store.Set(ctx, ident.UID, profile); err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		slog.Info("profile created for federated login", slog.String("uid", ident.UID))
	}

	return nil
}

// LogOut は外部セッションを終了する。absentセッションの公開はリスナーが行う。
func (m *Manager) LogOut(ctx context.Context) error {
	if err := m.provider.SignOut(ctx); err != nil {
		return err
	}
	slog.Info("user logged out")
	return nil
}
