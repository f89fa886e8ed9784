package translate

import "testing"

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want string
	}{
		{"Xin chào bạn", LangVietnamese},
		{"em ơi còn hàng không ạ", LangVietnamese},
		{"你好，请问有货吗", LangChinese},
		{"こんにちは", LangJapanese},
		{"カタカナ", LangJapanese},
		{"안녕하세요", LangKorean},
		{"Hello, is this in stock?", LangEnglish},
		{"très bien, merci", LangEnglish},
		{"qué bueno está", LangEnglish},
		{"não temos estoque", LangEnglish},
		{"café olé", LangEnglish},
		{"   ", LangUnknown},
		{"", LangUnknown},
	}
	for _, tc := range cases {
		if got := DetectLanguage(tc.text); got != tc.want {
			t.Fatalf("DetectLanguage(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}
