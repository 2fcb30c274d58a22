package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/freeindiatools/freetools/internal/model"
)

// Credential はローカルIDプロバイダーが保持する資格情報レコードを表す。
type Credential struct {
	UID          string
	Email        string
	PasswordHash string
	DisplayName  string
	PhotoURL     string
	CreatedAt    time.Time
}

// CredentialRepository は資格情報の永続化インターフェース。
type CredentialRepository interface {
	// FindByEmail はメールアドレスで資格情報を検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	// Create は資格情報を作成する。
	Create(ctx context.Context, cred *Credential) error
	// UpdateDisplayName は指定UIDの表示名を更新する。
	UpdateDisplayName(ctx context.Context, uid, name string) error
}

// FederatedExchanger はフェデレーテッドIdPの認可コードをIDに交換するインターフェース。
type FederatedExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*model.Identity, error)
}

// LocalProvider はメールアドレス+パスワード認証によるProviderの実装。
// 資格情報はbcryptハッシュとしてCredentialRepositoryに保存する。
// フェデレーテッドログインはFederatedExchangerへ委譲する（任意）。
//
// サインイン状態はプロセス内で1つだけ保持し、状態が変わるたびに
// 購読者へ到着順に通知する。
type LocalProvider struct {
	repo      CredentialRepository
	federated FederatedExchanger

	mu      sync.Mutex
	current *model.Identity
	subs    map[int]ChangeCallback
	nextSub int
}

// NewLocalProvider はLocalProviderを生成する。
// federatedがnilの場合、AuthenticateFederatedはエラーを返す。
func NewLocalProvider(repo CredentialRepository, federated FederatedExchanger) *LocalProvider {
	return &LocalProvider{
		repo:      repo,
		federated: federated,
		subs:      map[int]ChangeCallback{},
	}
}

// CreateIdentity は新しいIDを作成し、そのままサインイン状態にする。
// メールアドレスが登録済みの場合はエラーを返す（重複作成の防止はここで保証する）。
func (p *LocalProvider) CreateIdentity(ctx context.Context, email, password string) (*model.Identity, error) {
	existing, err := p.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateEmailError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	cred := &Credential{
		UID:          uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := p.repo.Create(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	ident := credentialIdentity(cred)
	p.setCurrent(ident)
	return ident, nil
}

// Authenticate はメールアドレスとパスワードで認証しサインインする。
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (*model.Identity, error) {
	cred, err := p.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}
	if cred == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	ident := credentialIdentity(cred)
	p.setCurrent(ident)
	return ident, nil
}

// AuthenticateFederated はフェデレーテッドIdPの認可コードで認証しサインインする。
func (p *LocalProvider) AuthenticateFederated(ctx context.Context, code string) (*model.Identity, error) {
	if p.federated == nil {
		return nil, fmt.Errorf("federated login is not configured")
	}

	ident, err := p.federated.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("federated code exchange failed: %w", err)
	}

	p.setCurrent(ident)
	return ident, nil
}

// SignOut は現在のサインイン状態を終了し、absent通知を配送する。
func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.setCurrent(nil)
	return nil
}

// UpdateDisplayName は指定UIDのIDの表示名を更新する。
// サインイン中のIDと一致する場合はミラーも更新するが、追加の変更通知は配送しない
// （プロファイル側の表示名はセッションマネージャーが別途マージする）。
func (p *LocalProvider) UpdateDisplayName(ctx context.Context, uid, name string) error {
	if err := p.repo.UpdateDisplayName(ctx, uid, name); err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}

	p.mu.Lock()
	if p.current != nil && p.current.UID == uid {
		updated := *p.current
		updated.DisplayName = name
		p.current = &updated
	}
	p.mu.Unlock()
	return nil
}

// OnChange はサインイン状態の変更通知を購読する。
// 購読直後に現在の状態で1回コールバックを同期的に呼び出すため、
// 購読者は購読前の状態を観測することがない。
// 初回スナップショットはロックを保持したまま配送する。ロック解放後に配送すると、
// 割り込んだsetCurrentの通知が初回スナップショットより先に届き、順序が逆転する。
func (p *LocalProvider) OnChange(cb ChangeCallback) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = cb
	cb(p.current)
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// setCurrent はサインイン状態を更新し、全購読者へ到着順に通知する。
// ロックを保持したまま通知するため、通知の順序はsetCurrentの呼び出し順に一致する。
func (p *LocalProvider) setCurrent(ident *model.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = ident
	for _, cb := range p.subs {
		cb(ident)
	}
}

// credentialIdentity は資格情報レコードからIDミラーを組み立てる。
func credentialIdentity(cred *Credential) *model.Identity {
	return &model.Identity{
		UID:         cred.UID,
		Email:       cred.Email,
		DisplayName: cred.DisplayName,
		PhotoURL:    cred.PhotoURL,
	}
}

// compile-time interface check
var _ Provider = (*LocalProvider)(nil)
