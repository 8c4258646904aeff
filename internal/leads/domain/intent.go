package domain

import "strings"

// Intent classifies purchase likelihood independently of Stage.
type Intent string

const (
	IntentHigh   Intent = "high"
	IntentMedium Intent = "medium"
	IntentLow    Intent = "low"
	IntentWon    Intent = "won"
	IntentLost   Intent = "lost"
)

var intentLabels = map[Intent]string{
	IntentHigh:   "高",
	IntentMedium: "中",
	IntentLow:    "低",
	IntentWon:    "已成交",
	IntentLost:   "已流失",
}

var intentAliases = map[string]Intent{
	"高意向": IntentHigh,
	"中意向": IntentMedium,
	"低意向": IntentLow,
	"成交":  IntentWon,
	"流失":  IntentLost,
}

// Intents returns the intent vocabulary.
func Intents() []Intent {
	return []Intent{IntentHigh, IntentMedium, IntentLow, IntentWon, IntentLost}
}

func (i Intent) Label() string {
	if label, ok := intentLabels[i]; ok {
		return label
	}
	return string(i)
}

func (i Intent) Valid() bool {
	_, ok := intentLabels[i]
	return ok
}

// ParseIntent accepts an intent code, its localized label or a known alias.
func ParseIntent(raw string) (Intent, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if i := Intent(strings.ToLower(trimmed)); i.Valid() {
		return i, true
	}
	for i, label := range intentLabels {
		if label == trimmed {
			return i, true
		}
	}
	if i, ok := intentAliases[trimmed]; ok {
		return i, true
	}
	return "", false
}
