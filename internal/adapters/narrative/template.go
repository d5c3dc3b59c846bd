package narrative

import (
	"context"
	"fmt"
	"strings"
)

// Template is the deterministic generator used when no LLM is configured.
// It composes the summary from fixed phrase tables per language; unknown
// languages fall back to English.
type Template struct{}

// NewTemplate creates the deterministic generator.
func NewTemplate() *Template {
	return &Template{}
}

type phrases struct {
	noData       string
	opening      string
	bandGood     string
	bandMixed    string
	bandPoor     string
	highRisk     string
	overlap      string
	recVet       string
	recDiversify string
	recEngage    string
	recMonitor   string
}

var phraseTables = map[string]phrases{
	"en": {
		noData:       "Not enough public data was available to assess @%s.",
		opening:      "The influencer ecosystem around @%s scores %.1f out of 100 (%s) across %d analyzed accounts.",
		bandGood:     "Engagement patterns look organic and collaboration risk is low.",
		bandMixed:    "Results are mixed; several accounts warrant a closer look before any paid collaboration.",
		bandPoor:     "The ecosystem shows substantial quality problems and should be treated with caution.",
		highRisk:     "%d of the analyzed accounts show elevated fraud indicators.",
		overlap:      "The strongest audience overlap between two accounts is %.1f%%, so combined reach may be lower than follower counts suggest.",
		recVet:       "Manually vet the accounts flagged with elevated fraud indicators before committing budget.",
		recDiversify: "Diversify partnerships across accounts with low audience overlap to maximize unique reach.",
		recEngage:    "Prioritize accounts whose engagement rate exceeds the ecosystem average.",
		recMonitor:   "Re-run the audit quarterly to track ecosystem health over time.",
	},
	"pl": {
		noData:       "Zbyt mało publicznych danych, aby ocenić @%s.",
		opening:      "Ekosystem influencerów wokół @%s uzyskał %.1f na 100 punktów (%s) na podstawie %d przeanalizowanych kont.",
		bandGood:     "Wzorce zaangażowania wyglądają na organiczne, a ryzyko współpracy jest niskie.",
		bandMixed:    "Wyniki są mieszane; kilka kont wymaga dokładniejszej analizy przed płatną współpracą.",
		bandPoor:     "Ekosystem wykazuje istotne problemy jakościowe i wymaga ostrożności.",
		highRisk:     "%d z przeanalizowanych kont wykazuje podwyższone wskaźniki fraudu.",
		overlap:      "Największe nakładanie się odbiorców między dwoma kontami wynosi %.1f%%, więc łączny zasięg może być niższy niż sugerują liczby obserwujących.",
		recVet:       "Przed przeznaczeniem budżetu ręcznie zweryfikuj konta z podwyższonymi wskaźnikami fraudu.",
		recDiversify: "Dywersyfikuj współprace między kontami o niskim nakładaniu się odbiorców, aby zmaksymalizować unikalny zasięg.",
		recEngage:    "Priorytetyzuj konta, których wskaźnik zaangażowania przewyższa średnią ekosystemu.",
		recMonitor:   "Powtarzaj audyt co kwartał, aby śledzić kondycję ekosystemu w czasie.",
	},
}

// Generate builds the summary and recommendations. It never fails.
func (t *Template) Generate(_ context.Context, in Input, language string) (string, []string, error) {
	p, ok := phraseTables[strings.ToLower(language)]
	if !ok {
		p = phraseTables["en"]
	}

	if in.HealthScore == nil {
		return fmt.Sprintf(p.noData, in.Handle), []string{p.recMonitor}, nil
	}

	parts := []string{
		fmt.Sprintf(p.opening, in.Handle, *in.HealthScore, in.HealthBand, in.InfluencerCount),
	}
	switch {
	case *in.HealthScore >= 70:
		parts = append(parts, p.bandGood)
	case *in.HealthScore >= 40:
		parts = append(parts, p.bandMixed)
	default:
		parts = append(parts, p.bandPoor)
	}
	if in.HighRiskCount > 0 {
		parts = append(parts, fmt.Sprintf(p.highRisk, in.HighRiskCount))
	}
	if in.TopOverlapPct != nil && *in.TopOverlapPct >= 20 {
		parts = append(parts, fmt.Sprintf(p.overlap, *in.TopOverlapPct))
	}

	recs := make([]string, 0, 4)
	if in.HighRiskCount > 0 {
		recs = append(recs, p.recVet)
	}
	if in.TopOverlapPct != nil && *in.TopOverlapPct >= 20 {
		recs = append(recs, p.recDiversify)
	}
	if in.AvgEngagement != nil {
		recs = append(recs, p.recEngage)
	}
	recs = append(recs, p.recMonitor)

	return strings.Join(parts, " "), recs, nil
}
