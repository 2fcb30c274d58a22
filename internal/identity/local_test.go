package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/freeindiatools/freetools/internal/model"
)

// --- モック定義 ---

type mockCredentialRepo struct {
	mu    sync.Mutex
	creds map[string]*Credential // email -> credential

	findErr   error
	createErr error
	updateErr error
}

func newMockCredentialRepo() *mockCredentialRepo {
	return &mockCredentialRepo{creds: map[string]*Credential{}}
}

func (r *mockCredentialRepo) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.creds[email], nil
}

func (r *mockCredentialRepo) Create(ctx context.Context, cred *Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.creds[cred.Email] = cred
	return nil
}

func (r *mockCredentialRepo) UpdateDisplayName(ctx context.Context, uid, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	for _, cred := range r.creds {
		if cred.UID == uid {
			cred.DisplayName = name
		}
	}
	return nil
}

type mockExchanger struct {
	exchangeFn func(ctx context.Context, code string) (*model.Identity, error)
}

func (m *mockExchanger) ExchangeCode(ctx context.Context, code string) (*model.Identity, error) {
	return m.exchangeFn(ctx, code)
}

var _ CredentialRepository = (*mockCredentialRepo)(nil)
var _ FederatedExchanger = (*mockExchanger)(nil)

// --- テスト ---

func TestLocalProvider_CreateIdentity(t *testing.T) {
	repo := newMockCredentialRepo()
	p := NewLocalProvider(repo, nil)

	ident, err := p.CreateIdentity(context.Background(), "asha@example.com", "Abcdef1!")
	if err != nil {
		t.Fatalf("CreateIdentity returned error: %v", err)
	}
	if ident.UID == "" {
		t.Error("expected non-empty UID")
	}
	if ident.Email != "asha@example.com" {
		t.Errorf("Email = %q, want %q", ident.Email, "asha@example.com")
	}

	// パスワードは平文で保存されないこと
	cred := repo.creds["asha@example.com"]
	if cred == nil {
		t.Fatal("expected credential record")
	}
	if cred.PasswordHash == "Abcdef1!" {
		t.Error("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte("Abcdef1!")); err != nil {
		t.Errorf("stored hash does not verify original password: %v", err)
	}
}

func TestLocalProvider_CreateIdentity_DuplicateEmail(t *testing.T) {
	repo := newMockCredentialRepo()
	p := NewLocalProvider(repo, nil)

	if _, err := p.CreateIdentity(context.Background(), "dup@example.com", "Abcdef1!"); err != nil {
		t.Fatalf("first CreateIdentity returned error: %v", err)
	}

	_, err := p.CreateIdentity(context.Background(), "dup@example.com", "Other123!")
	if err == nil {
		t.Fatal("expected error for duplicate email")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeDuplicateEmail {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeDuplicateEmail)
	}
}

func TestLocalProvider_Authenticate(t *testing.T) {
	repo := newMockCredentialRepo()
	p := NewLocalProvider(repo, nil)

	if _, err := p.CreateIdentity(context.Background(), "asha@example.com", "Abcdef1!"); err != nil {
		t.Fatalf("CreateIdentity returned error: %v", err)
	}
	p.SignOut(context.Background())

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{name: "正しい資格情報", email: "asha@example.com", password: "Abcdef1!", wantErr: false},
		{name: "誤ったパスワード", email: "asha@example.com", password: "Wrong999!", wantErr: true},
		{name: "未登録のメールアドレス", email: "none@example.com", password: "Abcdef1!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ident, err := p.Authenticate(context.Background(), tt.email, tt.password)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				// 存在しないメールと誤ったパスワードは区別できないエラーであること
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCredentials {
					t.Errorf("expected INVALID_CREDENTIALS, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate returned error: %v", err)
			}
			if ident.Email != tt.email {
				t.Errorf("Email = %q, want %q", ident.Email, tt.email)
			}
		})
	}
}

func TestLocalProvider_AuthenticateFederated_NotConfigured(t *testing.T) {
	p := NewLocalProvider(newMockCredentialRepo(), nil)

	if _, err := p.AuthenticateFederated(context.Background(), "code"); err == nil {
		t.Fatal("expected error when federated exchanger is not configured")
	}
}

func TestLocalProvider_AuthenticateFederated(t *testing.T) {
	exchanger := &mockExchanger{
		exchangeFn: func(ctx context.Context, code string) (*model.Identity, error) {
			if code != "good-code" {
				return nil, errors.New("invalid code")
			}
			return &model.Identity{UID: "google:1", Email: "fed@example.com"}, nil
		},
	}
	p := NewLocalProvider(newMockCredentialRepo(), exchanger)

	ident, err := p.AuthenticateFederated(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("AuthenticateFederated returned error: %v", err)
	}
	if ident.UID != "google:1" {
		t.Errorf("UID = %q, want %q", ident.UID, "google:1")
	}

	if _, err := p.AuthenticateFederated(context.Background(), "bad-code"); err == nil {
		t.Error("expected error for invalid code")
	}
}

// TestLocalProvider_OnChange_NotificationOrder は通知が状態変更の発生順に
// 配送されることと、購読直後に現在の状態で1回呼ばれることを検証する。
func TestLocalProvider_OnChange_NotificationOrder(t *testing.T) {
	repo := newMockCredentialRepo()
	p := NewLocalProvider(repo, nil)

	var mu sync.Mutex
	var seen []string
	unsubscribe := p.OnChange(func(ident *model.Identity) {
		mu.Lock()
		defer mu.Unlock()
		if ident == nil {
			seen = append(seen, "absent")
		} else {
			seen = append(seen, ident.Email)
		}
	})
	defer unsubscribe()

	if _, err := p.CreateIdentity(context.Background(), "a@example.com", "Abcdef1!"); err != nil {
		t.Fatalf("CreateIdentity returned error: %v", err)
	}
	p.SignOut(context.Background())
	if _, err := p.Authenticate(context.Background(), "a@example.com", "Abcdef1!"); err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"absent", "a@example.com", "absent", "a@example.com"}
	if len(seen) != len(want) {
		t.Fatalf("seen %d notifications %v, want %d", len(seen), seen, len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("notification[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
}

// TestLocalProvider_OnChange_ConcurrentSignIn は購読と並行して状態変更が
// 起きても、購読者が最後に受け取る値が最新の状態であることを検証する。
// 初回スナップショットがロック外で配送されると、割り込んだ変更通知の後に
// 古いスナップショットが届き、最後の値が巻き戻る。
func TestLocalProvider_OnChange_ConcurrentSignIn(t *testing.T) {
	ident := &model.Identity{UID: "uid-1", Email: "a@example.com"}

	for i := 0; i < 200; i++ {
		p := NewLocalProvider(newMockCredentialRepo(), nil)

		var mu sync.Mutex
		var seen []*model.Identity

		done := make(chan struct{})
		go func() {
			p.setCurrent(ident)
			close(done)
		}()

		unsubscribe := p.OnChange(func(id *model.Identity) {
			mu.Lock()
			seen = append(seen, id)
			mu.Unlock()
		})
		<-done
		unsubscribe()

		mu.Lock()
		last := seen[len(seen)-1]
		mu.Unlock()
		if last != ident {
			t.Fatalf("iteration %d: last notification = %v, want signed-in identity", i, last)
		}
	}
}

// TestLocalProvider_OnChange_Unsubscribe は購読解除後に通知が届かないことと、
// 解除関数を複数回呼んでも安全なことを検証する。
func TestLocalProvider_OnChange_Unsubscribe(t *testing.T) {
	p := NewLocalProvider(newMockCredentialRepo(), nil)

	count := 0
	unsubscribe := p.OnChange(func(ident *model.Identity) { count++ })
	if count != 1 {
		t.Fatalf("expected immediate initial callback, got %d calls", count)
	}

	unsubscribe()
	unsubscribe() // 2回呼んでも安全

	if _, err := p.CreateIdentity(context.Background(), "b@example.com", "Abcdef1!"); err != nil {
		t.Fatalf("CreateIdentity returned error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected no notifications after unsubscribe, got %d calls", count)
	}
}

// TestLocalProvider_UpdateDisplayName_NoNotification は表示名更新が
// 追加の変更通知を配送しないことを検証する。
func TestLocalProvider_UpdateDisplayName_NoNotification(t *testing.T) {
	repo := newMockCredentialRepo()
	p := NewLocalProvider(repo, nil)

	ident, err := p.CreateIdentity(context.Background(), "c@example.com", "Abcdef1!")
	if err != nil {
		t.Fatalf("CreateIdentity returned error: %v", err)
	}

	count := 0
	unsubscribe := p.OnChange(func(ident *model.Identity) { count++ })
	defer unsubscribe()

	if err := p.UpdateDisplayName(context.Background(), ident.UID, "New Name"); err != nil {
		t.Fatalf("UpdateDisplayName returned error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected only the initial callback, got %d calls", count)
	}

	// 次回の認証で更新済みの表示名がミラーに現れること
	p.SignOut(context.Background())
	reident, err := p.Authenticate(context.Background(), "c@example.com", "Abcdef1!")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if reident.DisplayName != "New Name" {
		t.Errorf("DisplayName = %q, want %q", reident.DisplayName, "New Name")
	}
}
