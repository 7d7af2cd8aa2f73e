// Package slug 根据标题生成文件名安全的标识，作为文章去重的唯一依据。
package slug

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLen 是 slug 的最大长度。
const MaxLen = 80

// emptyPrefix 用于标题无法转写出任何字符时。
const emptyPrefix = "yazi-"

// 分解后无法去掉附加符号的字母。
var letterMap = map[rune]string{
	'ı': "i", 'ß': "ss", 'æ': "ae", 'œ': "oe", 'ø': "o", 'đ': "d",
	'ł': "l", 'þ': "th", 'ð': "d", 'ħ': "h", 'ŋ': "n",
	'&': " and ",
}

// 直接删除、不产生连字符的字符。
var dropped = map[rune]bool{
	'\'': true, '’': true, '‘': true, '`': true, '´': true,
}

var pinyinArgs = func() pinyin.Args {
	a := pinyin.NewArgs()
	a.Style = pinyin.Normal
	return a
}()

// Make 由标题生成 slug：小写 ASCII 字母数字和连字符，最长 MaxLen。
// 纯函数，相同标题总是得到相同结果。
func Make(title string) string {
	s := transliterate(strings.ToLower(title))

	var b strings.Builder
	pendingHyphen := false
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case dropped[r]:
		default:
			pendingHyphen = true
		}
	}

	out := b.String()
	if len(out) > MaxLen {
		out = strings.TrimRight(out[:MaxLen], "-")
	}
	if out == "" {
		sum := sha1.Sum([]byte(title))
		return emptyPrefix + hex.EncodeToString(sum[:4])
	}
	return out
}

// transliterate 去掉变音符号，映射特殊字母，汉字转为不带声调的拼音。
func transliterate(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	for _, r := range stripped {
		if mapped, ok := letterMap[r]; ok {
			b.WriteString(mapped)
			continue
		}
		if unicode.Is(unicode.Han, r) {
			py := pinyin.SinglePinyin(r, pinyinArgs)
			if len(py) > 0 {
				b.WriteByte(' ')
				b.WriteString(py[0])
				b.WriteByte(' ')
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
