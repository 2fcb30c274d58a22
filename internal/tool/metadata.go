// Package tool はツールディレクトリのドメインロジックを提供する。
package tool

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// defaultMetadataTimeout はサイトメタデータ取得のデフォルトタイムアウト。
const defaultMetadataTimeout = 10 * time.Second

// defaultMaxMetadataSize はメタデータ取得で読み込むHTMLの最大サイズ（1MB）。
// <title>とfaviconリンクはheadタグ内にあるため、先頭部分だけで十分。
const defaultMaxMetadataSize = 1 * 1024 * 1024

// SiteMetadata は登録URLのページから取得したメタデータを表す。
type SiteMetadata struct {
	Title      string
	FaviconURL string
}

// URLGuard はSSRF検証のインターフェース。
// security.URLGuardServiceを抽象化してテスタビリティを向上させる。
type URLGuard interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// MetadataFetcherService はサイトメタデータ取得のインターフェース。
type MetadataFetcherService interface {
	// Fetch は指定URLのページから<title>とfaviconのURLを取得する。
	// 取得失敗時は空のメタデータを返す（エラーは返さない）。
	// ツール投稿の補助情報であり、失敗しても投稿自体は受け付ける。
	Fetch(ctx context.Context, siteURL string) SiteMetadata
}

// MetadataFetcher はサイトメタデータ取得機能の実装。
type MetadataFetcher struct {
	guard   URLGuard
	timeout time.Duration
	maxSize int64

	// httpClient はテスト用に差し替え可能。nilの場合はguardから安全なクライアントを生成する。
	httpClient *http.Client
}

// NewMetadataFetcher はMetadataFetcherの新しいインスタンスを生成する。
// timeoutとmaxSizeがゼロ値の場合はデフォルト値を使用する。
func NewMetadataFetcher(guard URLGuard, timeout time.Duration, maxSize int64) *MetadataFetcher {
	if timeout <= 0 {
		timeout = defaultMetadataTimeout
	}
	if maxSize <= 0 {
		maxSize = defaultMaxMetadataSize
	}
	return &MetadataFetcher{guard: guard, timeout: timeout, maxSize: maxSize}
}

// Fetch は指定URLのページから<title>とfaviconのURLを取得する。
// faviconリンクがHTMLに存在しない場合は /favicon.ico を既定値として返す。
func (f *MetadataFetcher) Fetch(ctx context.Context, siteURL string) SiteMetadata {
	if f.guard != nil {
		if err := f.guard.ValidateURL(siteURL); err != nil {
			slog.Warn("metadata fetch blocked", "url", siteURL, "error", err)
			return SiteMetadata{}
		}
	}

	client := f.getHTTPClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, siteURL, nil)
	if err != nil {
		slog.Warn("metadata fetch: failed to create request", "url", siteURL, "error", err)
		return SiteMetadata{}
	}
	req.Header.Set("User-Agent", "FreeIndiaTools/1.0 Directory Bot")
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("metadata fetch: request failed", "url", siteURL, "error", err)
		return SiteMetadata{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("metadata fetch: unexpected status", "url", siteURL, "status", resp.StatusCode)
		return SiteMetadata{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize))
	if err != nil {
		slog.Warn("metadata fetch: failed to read body", "url", siteURL, "error", err)
		return SiteMetadata{}
	}

	meta := parseSiteMetadata(body, siteURL)
	if meta.FaviconURL == "" {
		meta.FaviconURL = defaultFaviconURL(siteURL)
	}
	return meta
}

// getHTTPClient はHTTPクライアントを返す。
func (f *MetadataFetcher) getHTTPClient() *http.Client {
	if f.httpClient != nil {
		return f.httpClient
	}
	if f.guard != nil {
		return f.guard.NewSafeClient(f.timeout, f.maxSize)
	}
	return &http.Client{Timeout: f.timeout}
}

// parseSiteMetadata はHTMLのheadタグから<title>とfaviconリンクを解析する。
// 相対URLはbaseURLを基準に絶対URLに解決される。
func parseSiteMetadata(htmlBody []byte, baseURL string) SiteMetadata {
	var meta SiteMetadata

	baseU, err := url.Parse(baseURL)
	if err != nil {
		return meta
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	inHead := false
	inTitle := false

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return meta

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			name := strings.ToLower(token.Data)

			switch name {
			case "head":
				inHead = true
			case "title":
				if inHead {
					inTitle = true
				}
			case "link":
				if inHead && meta.FaviconURL == "" {
					if href := faviconHref(token); href != "" {
						if resolved := resolveURL(baseU, href); resolved != "" {
							meta.FaviconURL = resolved
						}
					}
				}
			case "body":
				// headの終了タグが省略されたHTMLでも解析を打ち切れるようにする
				return meta
			}

		case html.TextToken:
			if inTitle && meta.Title == "" {
				meta.Title = strings.TrimSpace(tokenizer.Token().Data)
			}

		case html.EndTagToken:
			token := tokenizer.Token()
			switch strings.ToLower(token.Data) {
			case "title":
				inTitle = false
			case "head":
				return meta
			}
		}
	}
}

// faviconHref はlinkタグがfaviconを指す場合にhref属性の値を返す。
func faviconHref(token html.Token) string {
	var rel, href string
	for _, attr := range token.Attr {
		switch strings.ToLower(attr.Key) {
		case "rel":
			rel = strings.ToLower(attr.Val)
		case "href":
			href = attr.Val
		}
	}
	// rel="icon", rel="shortcut icon", rel="apple-touch-icon" 等を受け付ける
	if strings.Contains(rel, "icon") {
		return href
	}
	return ""
}

// resolveURL は相対URLをbaseを基準に絶対URLへ解決する。
func resolveURL(base *url.URL, ref string) string {
	refU, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(refU).String()
}

// defaultFaviconURL はサイトURLから /favicon.ico の既定URLを組み立てる。
func defaultFaviconURL(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/favicon.ico"
}

// compile-time interface check
var _ MetadataFetcherService = (*MetadataFetcher)(nil)
