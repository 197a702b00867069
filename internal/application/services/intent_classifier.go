package services

import (
	"regexp"

	"github.com/medicapp/backend/internal/domain/entities"
)

// IntentRule pairs an intent with the pattern that selects it
type IntentRule struct {
	Intent  entities.Intent
	Pattern *regexp.Regexp
}

// Patterns run against normalized text: lowercase, no diacritics, no
// apostrophes. Elided articles fuse with the next word ("d'urgence" becomes
// "durgence"), so stems match anywhere in a word. Short tokens and stems that
// sit inside common words ("vite" in "evite") are bounded on both sides.
var defaultIntentRules = []IntentRule{
	{entities.IntentEmergency, regexp.MustCompile(`urgen(?:ce|t)|respire|danger|saign|etouff|mourir|\b(?:vite|911|15|112)\b`)},
	{entities.IntentPregnancy, regexp.MustCompile(`accouch|enceinte|grossesse|gyn|obstetri|bebe|foetus|sage ?femme`)},
	{entities.IntentSymptom, regexp.MustCompile(`douleur|tete|ventre|fievre|toux|nausee|vomi|frisson|fatigue|\bmal`)},
	{entities.IntentProvider, regexp.MustCompile(`pharmacie|hopital|clinique|centre|cabinet|medecin|docteur|specialiste|dentiste|laboratoire`)},
	{entities.IntentAdvice, regexp.MustCompile(`vaccin|sante|prevention|conseil|hygiene|medicament|ordonnance`)},
	{entities.IntentConversation, regexp.MustCompile(`bonjour|bonsoir|salut|saluer|merci|\b(?:ca va|comment|hello|hi|hey)\b`)},
	{entities.IntentOrientation, regexp.MustCompile(`direction|itineraire|localiser|\b(?:aller ?a|trouve ?moi|ou est|ou se trouve)\b`)},
}

// IntentClassifier maps normalized text to an intent by evaluating its rules
// in order. The first matching rule wins; rule order is significant.
type IntentClassifier struct {
	rules []IntentRule
}

// NewIntentClassifier creates a classifier with the built-in rule table
func NewIntentClassifier() *IntentClassifier {
	return NewIntentClassifierWithRules(defaultIntentRules)
}

// NewIntentClassifierWithRules creates a classifier over a custom ordered rule table
func NewIntentClassifierWithRules(rules []IntentRule) *IntentClassifier {
	return &IntentClassifier{rules: append([]IntentRule(nil), rules...)}
}

// Classify returns the intent of normalized text, or IntentUnknown when no rule matches
func (c *IntentClassifier) Classify(normalized string) entities.Intent {
	for _, rule := range c.rules {
		if rule.Pattern.MatchString(normalized) {
			return rule.Intent
		}
	}
	return entities.IntentUnknown
}

// Rules returns the ordered rule table
func (c *IntentClassifier) Rules() []IntentRule {
	return append([]IntentRule(nil), c.rules...)
}
