package format

import "testing"

func TestNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1K"},
		{1500, "1.5K"},
		{12345, "12.3K"},
		{1000000, "1M"},
		{2500000, "2.5M"},
		{1000000000, "1B"},
		{1200000000, "1.2B"},
		{-1500, "-1.5K"},
	}

	for _, tt := range tests {
		if got := Number(tt.in); got != tt.want {
			t.Errorf("Number(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{512, "512 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5 MB"},
		{3 * 1024 * 1024 * 1024, "3 GB"},
	}

	for _, tt := range tests {
		if got := FileSize(tt.in); got != tt.want {
			t.Errorf("FileSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		length int
		want   string
	}{
		{name: "短いテキストはそのまま", text: "hello", length: 10, want: "hello"},
		{name: "ちょうど境界", text: "hello", length: 5, want: "hello"},
		{name: "切り詰めて省略記号を付ける", text: "hello world", length: 8, want: "hello wo..."},
		{name: "切り詰め位置の空白を取り除く", text: "hello world", length: 6, want: "hello..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.text, tt.length); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.length, got, tt.want)
			}
		})
	}
}

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "2語の名前", in: "Asha Gupta", want: "AG"},
		{name: "3語の名前は最初と最後", in: "Asha Kumari Gupta", want: "AG"},
		{name: "1語の名前", in: "asha", want: "A"},
		{name: "空文字列", in: "", want: "?"},
		{name: "空白のみ", in: "   ", want: "?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Initials(tt.in); got != tt.want {
				t.Errorf("Initials(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.canva.com/design", "canva.com"},
		{"https://tools.example.org", "tools.example.org"},
		{"http://example.com:8080/x", "example.com"},
		{"not a url", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Domain(tt.in); got != tt.want {
			t.Errorf("Domain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
