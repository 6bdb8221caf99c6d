package render

import "tmpmail/backend/internal/locale"

var messages = map[string]map[string]string{
	locale.English: {
		"site.title":        "Temporary Email",
		"home.heading":      "Your temporary inbox",
		"home.current":      "Current address",
		"home.none":         "No address yet.",
		"home.generate":     "Generate address",
		"home.delete":       "Delete address",
		"home.inbox":        "Inbox",
		"home.empty":        "No emails received yet.",
		"home.noSubject":    "(no subject)",
		"home.failed":       "Request failed, please try again.",
		"auth.heading":      "Password required",
		"auth.password":     "Password",
		"auth.submit":       "Continue",
		"auth.invalid":      "Incorrect password.",
		"notfound.heading":  "Page not found",
		"notfound.back":     "Back to home",
		"nav.language":      "中文",
		"nav.language.lang": locale.SimplifiedChinese,
	},
	locale.SimplifiedChinese: {
		"site.title":        "临时邮箱",
		"home.heading":      "你的临时收件箱",
		"home.current":      "当前地址",
		"home.none":         "还没有地址。",
		"home.generate":     "生成地址",
		"home.delete":       "删除地址",
		"home.inbox":        "收件箱",
		"home.empty":        "暂未收到邮件。",
		"home.noSubject":    "（无主题）",
		"home.failed":       "请求失败，请重试。",
		"auth.heading":      "需要密码",
		"auth.password":     "密码",
		"auth.submit":       "继续",
		"auth.invalid":      "密码错误。",
		"notfound.heading":  "页面不存在",
		"notfound.back":     "返回首页",
		"nav.language":      "English",
		"nav.language.lang": locale.English,
	},
}

// translate 查找文案，缺失时回退到英文，仍缺失则返回键名
func translate(lang, key string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	if s, ok := messages[locale.English][key]; ok {
		return s
	}
	return key
}
