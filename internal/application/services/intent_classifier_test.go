package services

import (
	"regexp"
	"testing"

	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestIntentClassifier_Classify(t *testing.T) {
	classifier := NewIntentClassifier()

	tests := []struct {
		message string
		want    entities.Intent
	}{
		{"C'est une URGENCE, il ne respire plus !", entities.IntentEmergency},
		{"appelez le 15", entities.IntentEmergency},
		{"je saigne beaucoup", entities.IntentEmergency},
		{"Je suis enceinte de 3 mois", entities.IntentPregnancy},
		{"mon bébé a de la fièvre", entities.IntentPregnancy},
		{"J'ai mal à la tête", entities.IntentSymptom},
		{"une grosse fièvre depuis hier", entities.IntentSymptom},
		{"pharmacie de garde à Lyon", entities.IntentProvider},
		{"Hôpital Nord", entities.IntentProvider},
		{"quel vaccin pour voyager", entities.IntentAdvice},
		{"Bonjour", entities.IntentConversation},
		{"ça va ?", entities.IntentConversation},
		{"itinéraire vers la gare", entities.IntentOrientation},
		{"où est la mairie", entities.IntentOrientation},
		{"J'ai besoin d'un médecin d'urgence", entities.IntentEmergency},
		{"Où est le service d'urgence ?", entities.IntentEmergency},
		{"Je m'étouffe", entities.IntentEmergency},
		{"Il faut l'urgence", entities.IntentEmergency},
		{"Je cherche l'hôpital de Toamasina", entities.IntentProvider},
		{"j'ai une douleur à l'épaule", entities.IntentSymptom},
		{"parle moi de la météo", entities.IntentUnknown},
		{"", entities.IntentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.Classify(utils.NormalizeText(tt.message)))
		})
	}
}

func TestIntentClassifier_OrderDecidesOverlaps(t *testing.T) {
	classifier := NewIntentClassifier()

	// emergency outranks symptom
	assert.Equal(t, entities.IntentEmergency, classifier.Classify(utils.NormalizeText("douleur urgente à la poitrine")))
	// symptom outranks provider
	assert.Equal(t, entities.IntentSymptom, classifier.Classify(utils.NormalizeText("mal de ventre, quel médecin ?")))
	// provider outranks conversation
	assert.Equal(t, entities.IntentProvider, classifier.Classify(utils.NormalizeText("bonjour, une pharmacie ?")))
	// pregnancy outranks symptom
	assert.Equal(t, entities.IntentPregnancy, classifier.Classify(utils.NormalizeText("enceinte et fatiguée")))
}

func TestIntentClassifier_ShortTokensNeedBoundaries(t *testing.T) {
	classifier := NewIntentClassifier()

	assert.NotEqual(t, entities.IntentEmergency, classifier.Classify("rendez vous a 15h30"))
	assert.NotEqual(t, entities.IntentEmergency, classifier.Classify("il evite le sucre"))
	assert.NotEqual(t, entities.IntentOrientation, classifier.Classify("le trou est profond"))
	assert.NotEqual(t, entities.IntentConversation, classifier.Classify("chiffre"))
	assert.Equal(t, entities.IntentConversation, classifier.Classify("hi"))
}

func TestIntentClassifier_Total(t *testing.T) {
	classifier := NewIntentClassifier()
	known := map[entities.Intent]bool{entities.IntentUnknown: true}
	for _, rule := range classifier.Rules() {
		known[rule.Intent] = true
	}

	for _, input := range []string{"???", "12345", "   ", "zzz", "é́"} {
		assert.True(t, known[classifier.Classify(utils.NormalizeText(input))], input)
	}
}

func TestIntentClassifier_CustomRules(t *testing.T) {
	classifier := NewIntentClassifierWithRules([]IntentRule{
		{entities.IntentAdvice, regexp.MustCompile(`x`)},
		{entities.IntentEmergency, regexp.MustCompile(`x`)},
	})
	assert.Equal(t, entities.IntentAdvice, classifier.Classify("x"))
}
