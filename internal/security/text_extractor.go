package security

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractText はHTMLからプレーンテキストを抽出する。
// タグ・属性・コメントをすべて除去し、テキストノードのみを
// 空白1つで連結して返す。script/style要素内のテキストは含めない。
// 不正なHTMLでもエラーにせず、解析できた範囲のテキストを返す。
func ExtractText(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}

	node, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)

	return strings.Join(parts, " ")
}

// TruncateText はテキストを最大maxRunes文字に切り詰める。
// 切り詰めが発生した場合は末尾に省略記号を付ける。
func TruncateText(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}
