// Package prompts holds the immutable prompt tables and builders used across
// the analysis endpoints. Everything here is fixed at compile time; nothing is
// derived per request beyond string assembly.
package prompts

import (
	"fmt"
	"strings"
)

// SystemPreamble is prepended to every generation request.
const SystemPreamble = "You are a helpful and expert medical assistant."

var xrayPrompts = map[string]string{
	"general":   "Analyze this chest X-ray. Describe any abnormalities, findings, and provide a clinical impression.",
	"pneumonia": "Does this chest X-ray show signs of pneumonia? Explain your findings.",
	"fracture":  "Are there any fractures visible in this X-ray? Locate and describe them.",
	"cardiac":   "Evaluate the cardiac silhouette and any cardiac abnormalities in this chest X-ray.",
	"lung":      "Assess the lungs in this X-ray for any abnormalities, masses, or infiltrates.",
}

var xrayPromptsTR = map[string]string{
	"general":   "Bu göğüs röntgenini analiz et. Anormallikleri, bulguları açıkla ve klinik değerlendirmeni sun.",
	"pneumonia": "Bu göğüs röntgeninde pnömoni belirtileri var mı? Bulgularını açıkla.",
	"fracture":  "Bu röntgende görülebilen kırıklar var mı? Yerini belirt ve açıkla.",
	"cardiac":   "Bu göğüs röntgeninde kardiyak silueti ve kalp anormalliklerini değerlendir.",
	"lung":      "Bu röntgende akciğerleri değerlendir, anormallik, kitle veya infiltrasyon var mı?",
}

// XRay returns the X-ray analysis prompt for the given type, falling back to
// the general prompt. Turkish requests get the translated table.
func XRay(analysisType, language string) string {
	table := xrayPrompts
	if language == "tr" {
		table = xrayPromptsTR
	}
	if p, ok := table[analysisType]; ok {
		return p
	}
	return table["general"]
}

var medicalImagePrompts = map[string]map[string]string{
	"ctmr": {
		"brain":    "Bu beyin MR görüntüsünü analiz et. Tümör, kanama, infarkt veya diğer anormallikleri değerlendir.",
		"chest_ct": "Bu toraks CT görüntüsünü analiz et. Akciğer nodülleri, kitleler veya diğer bulguları değerlendir.",
		"abdomen":  "Bu karın CT görüntüsünü analiz et. Organları ve anormallikleri değerlendir.",
		"spine":    "Bu omurga MR görüntüsünü analiz et. Disk, sinir ve yapısal anormallikleri değerlendir.",
		"general":  "Bu CT/MR görüntüsünü analiz et ve bulgularını raporla.",
	},
	"fundus": {
		"diabetic_retinopathy": "Bu fundus görüntüsünde diyabetik retinopati belirtileri var mı? Mikroanevrizma, hemoraji, eksuda varlığını değerlendir.",
		"glaucoma":             "Bu fundus görüntüsünde glokom belirtileri var mı? Optik disk cup/disc oranını ve sinir lifi tabakasını değerlendir.",
		"macular":              "Bu fundus görüntüsünde makula dejenerasyonu belirtileri var mı? Drusen, pigment değişiklikleri değerlendir.",
		"general":              "Bu fundus/retina görüntüsünü analiz et ve bulgularını raporla.",
	},
	"dermo": {
		"melanoma":      "Bu dermoskopi görüntüsünde melanom şüphesi var mı? ABCDE kriterlerini değerlendir.",
		"benign_malign": "Bu cilt lezyonu benign mi malign mi? Dermoskopik özellikleri analiz et.",
		"psoriasis":     "Bu cilt görüntüsünde psoriazis belirtileri var mı? Tipik özellikleri değerlendir.",
		"general":       "Bu dermatolojik görüntüyü analiz et ve bulgularını raporla.",
	},
	"histo": {
		"cancer":  "Bu histopatoloji görüntüsünde kanser hücreleri var mı? Hücre morfolojisini değerlendir.",
		"grading": "Bu patoloji örneğinde tümör derecesi (grade) nedir? Histolojik özellikleri değerlendir.",
		"margins": "Bu patoloji örneğinde cerrahi sınırlar temiz mi? Tümör yayılımını değerlendir.",
		"general": "Bu histopatoloji görüntüsünü analiz et ve bulgularını raporla.",
	},
	"lab": {
		"blood":        "Bu kan tahlili (hemogram) sonuçlarını oku ve yorumla. Normal değerlerin dışında olanları vurgula.",
		"biochemistry": "Bu biyokimya tetkik sonuçlarını oku ve yorumla. Anormal değerleri açıkla.",
		"thyroid":      "Bu tiroid testi sonuçlarını oku ve yorumla. Tiroid fonksiyonunu değerlendir.",
		"lipid":        "Bu lipid profili sonuçlarını oku ve yorumla. Kardiyovasküler risk durumunu değerlendir.",
		"urine":        "Bu idrar tahlili sonuçlarını oku ve yorumla. Anormal bulguları açıkla.",
		"general":      "Bu lab sonuçlarını oku, değerleri çıkar ve yorumla. Anormal olanları vurgula.",
	},
}

// ValidImageType reports whether t names a known medical image category.
func ValidImageType(t string) bool {
	_, ok := medicalImagePrompts[t]
	return ok
}

// MedicalImage returns the prompt for an image type and analysis mode. An
// explicit question always wins; unknown modes fall back to the type's
// general prompt.
func MedicalImage(imageType, analysisType, question string) string {
	if question != "" {
		return question
	}
	table, ok := medicalImagePrompts[imageType]
	if !ok {
		return "Bu tıbbi görüntüyü analiz et."
	}
	if p, ok := table[analysisType]; ok {
		return p
	}
	return table["general"]
}

var comparisonPrompts = map[string]string{
	"progression": "Bu iki görüntüyü karşılaştır (ilki önceki, ikincisi sonraki). Hastalık progresyonu var mı? Değişiklikleri detaylı açıkla.",
	"treatment":   "Bu iki görüntüyü karşılaştır (ilki tedavi öncesi, ikincisi tedavi sonrası). Tedavi yanıtını değerlendir. İyileşme var mı?",
	"general":     "Bu iki görüntüyü karşılaştır ve aralarındaki farkları açıkla.",
}

// Comparison returns the before/after comparison prompt for the given type.
func Comparison(comparisonType string) string {
	if p, ok := comparisonPrompts[comparisonType]; ok {
		return p
	}
	return comparisonPrompts["general"]
}

// DrugInfo builds a drug-information prompt for one of the query types
// general, interactions, side_effects or dosage.
func DrugInfo(drugName, queryType string) string {
	switch queryType {
	case "interactions":
		return fmt.Sprintf("What are the major drug interactions for %s? List contraindications and drugs that should not be combined.", drugName)
	case "side_effects":
		return fmt.Sprintf("List and explain the common and serious side effects of %s.", drugName)
	case "dosage":
		return fmt.Sprintf("What are the standard dosage recommendations for %s for different patient populations?", drugName)
	default:
		return fmt.Sprintf("Provide comprehensive information about the drug %s, including its uses, mechanism of action, and important considerations.", drugName)
	}
}

// SymptomAnalysis builds a triage prompt from a symptom list and optional
// patient demographics, duration and severity.
func SymptomAnalysis(symptoms []string, age int, gender, duration, severity string) string {
	var b strings.Builder
	if age > 0 || gender != "" {
		b.WriteString("Patient: ")
		if age > 0 {
			fmt.Fprintf(&b, "%d year old ", age)
		}
		b.WriteString(gender)
		b.WriteString(". ")
	}
	fmt.Fprintf(&b, "Symptoms: %s", strings.Join(symptoms, ", "))
	if duration != "" {
		fmt.Fprintf(&b, ". Duration: %s", duration)
	}
	if severity != "" {
		fmt.Fprintf(&b, ". Severity: %s", severity)
	}
	b.WriteString("\n\n")
	b.WriteString("Provide a differential diagnosis, urgency assessment, and recommendations for next steps.")
	return b.String()
}

// Turn is one completed user/assistant exchange of a chat conversation.
type Turn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// chatContextTurns bounds how much history feeds the prompt.
const chatContextTurns = 5

// Chat builds the chat prompt from the trailing conversation history and the
// current message.
func Chat(message string, history []Turn) string {
	var b strings.Builder
	start := 0
	if len(history) > chatContextTurns {
		start = len(history) - chatContextTurns
	}
	for _, turn := range history[start:] {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", turn.User, turn.Assistant)
	}
	fmt.Fprintf(&b, "User: %s\nAssistant:", message)
	return b.String()
}

// PatientContext prefixes a prompt with optional patient details the way the
// X-ray endpoint expects them.
func PatientContext(prompt string, age int, gender, historyText string) string {
	if age <= 0 && gender == "" && historyText == "" {
		return prompt
	}
	var parts []string
	if age > 0 {
		parts = append(parts, fmt.Sprintf("Yaş: %d", age))
	}
	if gender != "" {
		parts = append(parts, fmt.Sprintf("Cinsiyet: %s", gender))
	}
	if historyText != "" {
		parts = append(parts, fmt.Sprintf("Klinik Öykü: %s", historyText))
	}
	return "\n\nHasta Bilgileri:\n" + strings.Join(parts, "\n") + "\n\n" + prompt
}
