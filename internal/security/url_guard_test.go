package security

import (
	"testing"
	"time"
)

func TestURLGuard_ValidateURL(t *testing.T) {
	guard := NewURLGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "通常のhttps URL", url: "https://canva.com", wantErr: false},
		{name: "通常のhttp URL", url: "http://example.com/tool", wantErr: false},
		{name: "パブリックIPアドレス", url: "https://8.8.8.8/", wantErr: false},
		{name: "空文字列", url: "", wantErr: true},
		{name: "スキームなし", url: "canva.com", wantErr: true},
		{name: "ftpスキーム", url: "ftp://example.com/file", wantErr: true},
		{name: "javascriptスキーム", url: "javascript:alert(1)", wantErr: true},
		{name: "localhost", url: "http://localhost:8080/", wantErr: true},
		{name: "ループバックIP", url: "http://127.0.0.1/", wantErr: true},
		{name: "プライベートIP 10系", url: "http://10.0.0.5/", wantErr: true},
		{name: "プライベートIP 172系", url: "http://172.16.1.1/", wantErr: true},
		{name: "プライベートIP 192系", url: "http://192.168.1.1/admin", wantErr: true},
		{name: "クラウドメタデータIP", url: "http://169.254.169.254/latest/meta-data/", wantErr: true},
		{name: "IPv6ループバック", url: "http://[::1]/", wantErr: true},
		{name: "IPv6リンクローカル", url: "http://[fe80::1]/", wantErr: true},
		{name: "認証情報付きURL", url: "https://canva.com@evil.example.com/", wantErr: true},
		{name: "非標準ポート", url: "https://example.com:8443/", wantErr: true},
		{name: "標準ポート明示", url: "https://example.com:443/", wantErr: false},
		{name: ".localサフィックス", url: "http://nas.local/", wantErr: true},
		{name: ".internalサフィックス", url: "http://db.prod.internal/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.url)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateURL(%q) = nil, want error", tt.url)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateURL(%q) = %v, want nil", tt.url, err)
			}
		})
	}
}

func TestURLGuard_NewSafeClient(t *testing.T) {
	guard := NewURLGuard()

	client := guard.NewSafeClient(5*time.Second, 1024*1024)
	if client == nil {
		t.Fatal("expected non-nil HTTP client")
	}
}
