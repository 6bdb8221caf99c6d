package locale

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	// English 默认语言
	English = "en"
	// SimplifiedChinese 简体中文
	SimplifiedChinese = "zh-CN"
)

// Supported 支持的语言，第一个为默认语言
var Supported = []string{English, SimplifiedChinese}

var matcher = language.NewMatcher([]language.Tag{
	language.English,
	language.MustParse(SimplifiedChinese),
})

// Negotiate 根据 Accept-Language 选择最匹配的语言，无法匹配时返回 English
func Negotiate(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return English
	}

	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return English
	}
	return Supported[index]
}

// IsSupported 判断是否为支持的语言段
func IsSupported(segment string) bool {
	for _, l := range Supported {
		if segment == l {
			return true
		}
	}
	return false
}

// FromPath 拆出路径中的语言段
//
// "/zh-CN/auth" 返回 ("zh-CN", "/auth", true)；
// 首段不是支持的语言时原样返回 rest 且 ok 为 false。
func FromPath(path string) (lang string, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/")
	segment, remainder, _ := strings.Cut(trimmed, "/")
	if !IsSupported(segment) {
		return "", path, false
	}
	return segment, "/" + remainder, true
}

// Prefix 返回带语言段的路径，默认语言不加前缀
func Prefix(lang, path string) string {
	if lang == "" || lang == English {
		return path
	}
	if path == "/" {
		return "/" + lang
	}
	return "/" + lang + path
}
