package invitation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/wedding-letter/letter-api/internal/model"
	"github.com/wedding-letter/letter-api/internal/security"
)

// PreviewFetcher は会場URLのリンクプレビューを取得する。
// 取得先は招待状の所有者が入力した任意のURLであるため、
// SSRF防止付きのHTTPクライアントを必ず使用する。
type PreviewFetcher struct {
	ssrfGuard security.SSRFGuardService
	timeout   time.Duration
	maxSize   int64
}

// NewPreviewFetcher はPreviewFetcherの新しいインスタンスを生成する。
func NewPreviewFetcher(ssrfGuard security.SSRFGuardService, timeout time.Duration, maxSize int64) *PreviewFetcher {
	return &PreviewFetcher{
		ssrfGuard: ssrfGuard,
		timeout:   timeout,
		maxSize:   maxSize,
	}
}

// Fetch は指定URLからOGメタデータを取得する。
// URLがセキュリティポリシーでブロックされた場合はLINK_BLOCKEDを返す。
// OGタグが無いページでは<title>要素にフォールバックする。
func (f *PreviewFetcher) Fetch(ctx context.Context, rawURL string) (*model.LinkPreview, error) {
	// 1. 静的検証（スキーム、ホスト、IPレンジ）
	if err := f.ssrfGuard.ValidateURL(rawURL); err != nil {
		slog.Warn("link preview blocked by URL validation", "url", rawURL, "error", err)
		return nil, model.NewLinkBlockedError(err.Error())
	}

	// 2. SSRF防止付きクライアントで取得
	//    DNS再バインディングはクライアント側のDialer検証で防止される
	client := f.ssrfGuard.NewSafeClient(f.timeout, f.maxSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.NewInvalidRequestError("URLの形式が正しくありません。")
	}
	req.Header.Set("User-Agent", "wedding-letter-preview/1.0")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("link preview request failed", "url", rawURL, "error", err)
		return nil, model.NewLinkBlockedError("URLへのアクセスに失敗しました。")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("プレビュー対象がHTTP %dを返しました。", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return nil, model.NewInvalidRequestError("プレビュー対象がHTMLではありません。")
	}

	// 3. レスポンスサイズを制限してパース
	preview, err := parseOGMetadata(io.LimitReader(resp.Body, f.maxSize))
	if err != nil {
		slog.Warn("link preview parse failed", "url", rawURL, "error", err)
		return nil, model.NewInvalidRequestError("プレビューの解析に失敗しました。")
	}

	preview.URL = rawURL
	return preview, nil
}

// parseOGMetadata はHTMLからOpen Graphメタデータを抽出する。
// og:title が無い場合は<title>要素をタイトルとして使用する。
func parseOGMetadata(r io.Reader) (*model.LinkPreview, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("HTMLのパースに失敗しました: %w", err)
	}

	preview := &model.LinkPreview{}
	var pageTitle string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				property, content := metaAttrs(n)
				switch property {
				case "og:title":
					preview.Title = content
				case "og:description":
					preview.Description = content
				case "og:image":
					preview.ImageURL = content
				}
			case "title":
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					pageTitle = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if preview.Title == "" {
		preview.Title = pageTitle
	}
	return preview, nil
}

// metaAttrs はmeta要素からproperty（またはname）とcontent属性を取り出す。
func metaAttrs(n *html.Node) (property, content string) {
	for _, attr := range n.Attr {
		switch attr.Key {
		case "property", "name":
			if property == "" {
				property = attr.Val
			}
		case "content":
			content = attr.Val
		}
	}
	return property, content
}
