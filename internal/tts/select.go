package tts

import "strings"

// DefaultLanguage 默认只在英文音色中分配。
const DefaultLanguage = "en"

// SelectVoice 为音色槽位选择具体音色。
//
// 先按语言族（标签前缀，不区分大小写）过滤 roster，再取 slot % len 个；
// 过滤后为空时退回 roster[0]。roster 为空时返回 false。
func SelectVoice(roster []Voice, slot int, lang string) (Voice, bool) {
	if len(roster) == 0 {
		return Voice{}, false
	}
	if lang == "" {
		lang = DefaultLanguage
	}
	lang = strings.ToLower(lang)

	var family []Voice
	for _, v := range roster {
		if matchesLanguage(v.Lang, lang) {
			family = append(family, v)
		}
	}
	if len(family) == 0 {
		return roster[0], true
	}
	if slot < 0 {
		slot = -slot
	}
	return family[slot%len(family)], true
}

// matchesLanguage 判断 tag 是否属于 lang 语言族：en 匹配 en、en-US、en_GB。
func matchesLanguage(tag, lang string) bool {
	tag = strings.ToLower(tag)
	if !strings.HasPrefix(tag, lang) {
		return false
	}
	rest := tag[len(lang):]
	return rest == "" || rest[0] == '-' || rest[0] == '_'
}
