// Package format はAPI応答の表示用文字列を組み立てるヘルパーを提供する。
package format

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Number は数値をK/M/Bサフィックス付きの短縮表記にする。
// 1桁の小数で丸め、".0"は取り除く。負数は絶対値で閾値を判定する。
func Number(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1_000_000_000:
		return scaled(n, 1_000_000_000) + "B"
	case abs >= 1_000_000:
		return scaled(n, 1_000_000) + "M"
	case abs >= 1_000:
		return scaled(n, 1_000) + "K"
	}
	return strconv.FormatInt(n, 10)
}

// scaled は除数で割った値を小数1桁で丸め、末尾の".0"を取り除く。
func scaled(n, unit int64) string {
	s := strconv.FormatFloat(float64(n)/float64(unit), 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}

// fileSizeUnits はFileSizeで使用する単位。
var fileSizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FileSize はバイト数を人間可読な文字列にする。小数2桁で丸める。
func FileSize(bytes int64) string {
	if bytes == 0 {
		return "0 Bytes"
	}

	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(fileSizeUnits) {
		i = len(fileSizeUnits) - 1
	}
	value := math.Round(float64(bytes)/math.Pow(1024, float64(i))*100) / 100

	return trimFloat(value) + " " + fileSizeUnits[i]
}

// trimFloat は末尾のゼロを除いた小数表記を返す。
func trimFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// Truncate は指定長を超えるテキストを切り詰めて"..."を付ける。
// 切り詰め位置の直前の空白は取り除く。
func Truncate(text string, length int) string {
	runes := []rune(text)
	if len(runes) <= length {
		return text
	}
	return strings.TrimRight(string(runes[:length]), " ") + "..."
}

// Initials は表示名からアバター用のイニシャルを作る。
// 1語の名前は先頭1文字、複数語は最初と最後の語の頭文字を大文字で返す。
// 空の名前には"?"を返す。
func Initials(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "?"
	}
	first := []rune(parts[0])
	if len(parts) == 1 {
		return strings.ToUpper(string(first[0]))
	}
	last := []rune(parts[len(parts)-1])
	return strings.ToUpper(string(first[0]) + string(last[0]))
}

// Domain はURLからwww.を除いたホスト名を取り出す。解析できない場合は空文字列。
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
