package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/medicapp/backend/internal/domain/entities"
)

// SystemPrompt seeds every new session's history
const SystemPrompt = "Vous parlez à un assistant médical francophone. Soyez précis dans vos demandes."

// Fixed replies
const (
	ReplyEmergency = "🚨 URGENCE MÉDICALE 🚨\n\n" +
		"1. Composez immédiatement le 15 (SAMU)\n" +
		"2. Ou le 112 (numéro européen)\n" +
		"3. Je peux vous indiquer les urgences les plus proches si vous partagez votre position."

	ReplySymptom = "ℹ️ Pour des symptômes médicaux :\n\n" +
		"1. Décrivez votre symptôme en détail\n" +
		"2. Précisez depuis combien de temps\n" +
		"3. Indiquez votre localisation pour des conseils adaptés\n\n" +
		"⚠️ En cas d'urgence, appelez le 15 immédiatement."

	ReplyAdvice = "💡 Conseils santé généraux :\n\n" +
		"• Lavez-vous les mains fréquemment\n" +
		"• Hydratez-vous suffisamment\n" +
		"• Dormez 7-8h par nuit\n" +
		"• Consultez un médecin pour des conseils personnalisés\n" +
		"• Pensez à vos vaccins à jour"

	ReplyConversation = "👋 Bonjour ! Je suis votre assistant médical. Comment puis-je vous aider aujourd'hui ?\n\n" +
		"Vous pouvez :\n" +
		"• Chercher un professionnel de santé\n" +
		"• Obtenir des conseils médicaux\n" +
		"• Décrire des symptômes"

	ReplyNoProviders = "Je n’ai trouvé aucun prestataire correspondant à votre demande 🤔.\n" +
		"Essayez de reformuler ou d’être plus précis."

	ReplyGenerativeFailure = "Je rencontre des difficultés techniques. Pouvez-vous reformuler votre demande plus simplement ?"

	ReplyEmptyMessage = "Votre message semble vide. Pouvez-vous reformuler ?"

	ReplyInternalError = "Désolé, un problème technique est survenu. Veuillez réessayer plus tard."

	hoursUnknown = "Horaires non précisés"

	// maxSummaryLines is how many results after the first get a one-line summary
	maxSummaryLines = 2
)

var directReplies = map[entities.Intent]string{
	entities.IntentEmergency:    ReplyEmergency,
	entities.IntentSymptom:      ReplySymptom,
	entities.IntentAdvice:       ReplyAdvice,
	entities.IntentConversation: ReplyConversation,
}

// FormatProviderReply renders ranked lookup results for the user. query is
// echoed verbatim in the header.
func FormatProviderReply(query string, results []entities.RankedProvider) string {
	if len(results) == 0 {
		return ReplyNoProviders
	}

	first := results[0]
	lines := []string{
		fmt.Sprintf("📌 Résultats pour \"%s\":", query),
		"🏥 " + first.Provider.Name + distanceSuffix(first),
		"📍 " + first.Provider.Address,
		"📞 " + first.Provider.Phone,
		"🕒 " + hoursOrDefault(first.Provider.Hours),
	}

	end := len(results)
	if end > 1+maxSummaryLines {
		end = 1 + maxSummaryLines
	}
	for _, r := range results[1:end] {
		line := fmt.Sprintf("\n🔹 %s (%s)", r.Provider.Name, r.Provider.City)
		if r.HasDistance() {
			line += fmt.Sprintf(" - %s km", formatKm(r.DistanceKm))
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

func distanceSuffix(r entities.RankedProvider) string {
	if !r.HasDistance() {
		return ""
	}
	return fmt.Sprintf(" (%s km)", formatKm(r.DistanceKm))
}

func formatKm(km float64) string {
	return fmt.Sprintf("%d", int64(math.Round(km)))
}

func hoursOrDefault(hours string) string {
	if strings.TrimSpace(hours) == "" {
		return hoursUnknown
	}
	return hours
}
