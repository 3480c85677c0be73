package catalog

// DefaultDefinition returns a fresh copy of the built-in catalog content.
func DefaultDefinition() Definition {
	return Definition{
		Email: []PatternDef{
			{Pattern: `urgent|immediate|act now|limited time`, Weight: 0.3},
			{Pattern: `click here|verify account|update information`, Weight: 0.4},
			{Pattern: `suspended|locked|expired|terminated`, Weight: 0.3},
			{Pattern: `free money|win|prize|lottery`, Weight: 0.5},
			{Pattern: `bank|paypal|amazon|apple|microsoft`, Weight: 0.2},
			{Pattern: `http[s]?://[^\s]+`, Weight: 0.3},
			{Pattern: `[^\s]+@[^\s]+\.[^\s]+`, Weight: 0.1},
		},
		Message: []PatternDef{
			{Pattern: `urgent|immediate|act now|limited time`, Weight: 0.3},
			{Pattern: `click here|verify|update|confirm`, Weight: 0.4},
			{Pattern: `suspended|locked|expired|terminated`, Weight: 0.3},
			{Pattern: `free money|win|prize|lottery|congratulations`, Weight: 0.5},
			{Pattern: `bank|paypal|amazon|apple|microsoft|google`, Weight: 0.2},
			{Pattern: `http[s]?://[^\s]+`, Weight: 0.4},
			{Pattern: `call now|text back|reply stop`, Weight: 0.3},
		},
		Screenshot: []PatternDef{
			{Pattern: `urgent|immediate|act now|limited time`, Weight: 0.3},
			{Pattern: `click here|verify|update|confirm|login`, Weight: 0.4},
			{Pattern: `suspended|locked|expired|terminated|security`, Weight: 0.3},
			{Pattern: `free money|win|prize|lottery|congratulations`, Weight: 0.5},
			{Pattern: `bank|paypal|amazon|apple|microsoft|google|facebook`, Weight: 0.2},
			{Pattern: `http[s]?://[^\s]+`, Weight: 0.4},
			{Pattern: `call now|text back|reply stop|unsubscribe`, Weight: 0.3},
			{Pattern: `password|account|login|sign in`, Weight: 0.3},
		},

		// Consumer webmail is a weak signal and a known false-positive source.
		FreeMailDomains: []string{"gmail.com", "yahoo.com", "hotmail.com"},
		SuspiciousTLDs:  []string{".tk", ".ml", ".ga", ".cf", ".click", ".download"},
		// Substring match: "t.co" also hits hosts like microsoft.com.
		Shorteners:      []string{"bit.ly", "tinyurl.com", "short.link", "t.co", "goo.gl"},
		TyposquatTokens: []string{"g0ogle", "go0gle", "g00gle", "faceb00k", "amaz0n", "paypa1", "micr0soft", "app1e", "y0utube"},
		PathKeywords:    []string{"login", "verify", "account", "security", "update", "confirm"},
	}
}
