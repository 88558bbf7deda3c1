package channels

// flagLangs maps flag emoji to target language codes for the ad-hoc
// reaction path.
var flagLangs = map[string]string{
	"🇫🇷": "FR", "🇪🇸": "ES", "🇯🇵": "JA", "🇩🇪": "DE", "🇨🇳": "ZH",
	"🇷🇺": "RU", "🇮🇹": "IT", "🇰🇷": "KO", "🇺🇸": "EN-US", "🇬🇧": "EN-GB",
	"🇬🇷": "EL", "🇸🇦": "AR",
}

// slackFlagLangs is the same table keyed by Slack reaction names.
var slackFlagLangs = map[string]string{
	"flag-fr": "FR", "flag-es": "ES", "flag-jp": "JA", "flag-de": "DE",
	"flag-cn": "ZH", "flag-ru": "RU", "flag-it": "IT", "flag-kr": "KO",
	"flag-us": "EN-US", "flag-gb": "EN-GB", "flag-gr": "EL", "flag-sa": "AR",
	"fr": "FR", "es": "ES", "jp": "JA", "de": "DE", "cn": "ZH", "ru": "RU",
	"it": "IT", "kr": "KO", "us": "EN-US", "gb": "EN-GB",
}

// LangForFlag resolves a reaction (unicode emoji or Slack name) to its
// bound language code.
func LangForFlag(reaction string) (string, bool) {
	if lang, ok := flagLangs[reaction]; ok {
		return lang, true
	}
	lang, ok := slackFlagLangs[reaction]
	return lang, ok
}
