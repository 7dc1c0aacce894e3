package domain

import (
	"strconv"
	"strings"
)

type promptTemplate struct {
	intro      string
	goal       string
	tones      map[ContactTone]string
	rules      []string
	additional string
}

var germanPrompt = promptTemplate{
	intro: "Du bist {agent}, Mitarbeiterin des Deutschen Roten Kreuzes (DRK). " +
		"Du führst ein Telefonat mit {donor}, der das DRK seit {history} mit einer monatlichen Spende von {current} Euro unterstützt.",
	goal: "Ziel des Gesprächs: Bedanke dich herzlich für die bisherige Unterstützung und bitte {donor}, " +
		"die monatliche Spende von {current} Euro auf {target} Euro zu erhöhen.",
	tones: map[ContactTone]string{
		ToneFormal:   "Tonfall: förmlich und respektvoll. Sieze {donor} durchgehend.",
		ToneCasual:   "Tonfall: locker und unkompliziert. Du darfst {donor} duzen.",
		ToneFriendly: "Tonfall: herzlich und freundlich, aber professionell. Sieze {donor}.",
	},
	rules: []string{
		"Sprich ausschließlich Deutsch.",
		"Halte deine Antworten kurz und natürlich, wie in einem echten Telefonat.",
		"Warte, bis sich {donor} am Telefon meldet, bevor du sprichst.",
		"Wenn {donor} ablehnt, akzeptiere die Entscheidung respektvoll und bedanke dich für die Treue.",
	},
	additional: "Zusätzliche Anweisungen: {extra}",
}

var englishPrompt = promptTemplate{
	intro: "You are {agent}, a fundraiser with the German Red Cross (DRK). " +
		"You are on the phone with {donor}, who has supported the Red Cross for {history} with a monthly donation of {current} euros.",
	goal: "Goal of the call: thank {donor} warmly for the support so far and ask whether they would raise " +
		"the monthly donation from {current} euros to {target} euros.",
	tones: map[ContactTone]string{
		ToneFormal:   "Tone: formal and respectful. Address {donor} by surname at all times.",
		ToneCasual:   "Tone: relaxed and easygoing. First names are fine.",
		ToneFriendly: "Tone: warm and friendly while staying professional.",
	},
	rules: []string{
		"Speak English only.",
		"Keep your answers short and natural, like a real phone call.",
		"Wait until {donor} answers the phone before you speak.",
		"If {donor} declines, accept the decision respectfully and thank them for their loyalty.",
	},
	additional: "Additional instructions: {extra}",
}

// GenerateSystemPrompt renders the agent instructions for p. The output is a
// pure function of the structured fields; SystemPrompt and ManualOverride are
// ignored.
func GenerateSystemPrompt(p PersonaConfig) string {
	tpl := germanPrompt
	if p.Language == LanguageEnglish {
		tpl = englishPrompt
	}

	r := strings.NewReplacer(
		"{agent}", strings.TrimSpace(p.AgentName),
		"{donor}", strings.TrimSpace(p.DonorName),
		"{history}", strings.TrimSpace(p.DonationHistory),
		"{current}", formatAmount(p.CurrentAmount),
		"{target}", formatAmount(p.TargetAmount),
		"{extra}", strings.TrimSpace(p.AdditionalInstructions),
	)

	tone, ok := tpl.tones[p.ContactTone]
	if !ok {
		tone = tpl.tones[ToneFriendly]
	}

	var b strings.Builder
	b.WriteString(tpl.intro)
	b.WriteString("\n\n")
	b.WriteString(tpl.goal)
	b.WriteString("\n\n")
	b.WriteString(tone)
	b.WriteString("\n")
	for _, rule := range tpl.rules {
		b.WriteString("\n- ")
		b.WriteString(rule)
	}
	if strings.TrimSpace(p.AdditionalInstructions) != "" {
		b.WriteString("\n\n")
		b.WriteString(tpl.additional)
	}
	return r.Replace(b.String())
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
