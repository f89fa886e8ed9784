package translate

import "strings"

// Language tags produced by DetectLanguage.
const (
	LangVietnamese = "vi"
	LangChinese    = "zh"
	LangJapanese   = "ja"
	LangKorean     = "ko"
	LangEnglish    = "en"
	LangUnknown    = "unknown"
)

// vietnameseMarkers holds only letters no other Latin-script language uses:
// đ, the breve and horn vowels with every tone mark, and the hook-above and
// dot-below forms of the plain vowels. Acute and grave vowels are shared with
// French, Spanish and Portuguese and must not count, or Romance-language text
// would be misread as Vietnamese and skip translation entirely. ã and õ are
// excluded for the same reason (Portuguese).
const vietnameseMarkers = "ăâđêôơưĂÂĐÊÔƠƯ" +
	"ắằẳẵặấầẩẫậếềểễệốồổỗộớờởỡợứừửữự" +
	"ạảẹẻẽịỉĩọỏụủũỳỵỷỹ"

// DetectLanguage classifies text by script. It is a cheap heuristic, not a
// language model: uniquely Vietnamese letters win over Latin, then the CJK
// ranges, and anything else Latin-looking is treated as English.
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return LangUnknown
	}
	for _, r := range text {
		switch {
		case strings.ContainsRune(vietnameseMarkers, r):
			return LangVietnamese
		case r >= 0x4E00 && r <= 0x9FA5:
			return LangChinese
		case (r >= 0x3040 && r <= 0x309F) || (r >= 0x30A0 && r <= 0x30FF):
			return LangJapanese
		case r >= 0xAC00 && r <= 0xD7AF:
			return LangKorean
		}
	}
	return LangEnglish
}
