package prompts

import "strings"

// medicalTermsTR maps Turkish medical terms to English.
var medicalTermsTR = map[string]string{
	// Anatomy
	"akciğer":  "lung",
	"kalp":     "heart",
	"karaciğer": "liver",
	"böbrek":   "kidney",
	"mide":     "stomach",
	"bağırsak": "intestine",
	"beyin":    "brain",
	"kemik":    "bone",

	// Conditions
	"pnömoni":      "pneumonia",
	"kanser":       "cancer",
	"tümör":        "tumor",
	"enfeksiyon":   "infection",
	"kırık":        "fracture",
	"iltihaplanma": "inflammation",

	// Symptoms
	"ağrı":          "pain",
	"ateş":          "fever",
	"öksürük":       "cough",
	"nefes darlığı": "shortness of breath",
	"baş ağrısı":    "headache",
	"bulantı":       "nausea",
	"kusma":         "vomiting",
}

// TranslateTerm translates a medical term between Turkish and English,
// returning the input unchanged when it is not in the dictionary.
func TranslateTerm(term string, toEnglish bool) string {
	lower := strings.ToLower(term)
	if toEnglish {
		if en, ok := medicalTermsTR[lower]; ok {
			return en
		}
		return term
	}
	for tr, en := range medicalTermsTR {
		if en == lower {
			return tr
		}
	}
	return term
}

// MedicalTerms returns a copy of the term dictionary for the examples
// endpoint.
func MedicalTerms() map[string]string {
	out := make(map[string]string, len(medicalTermsTR))
	for k, v := range medicalTermsTR {
		out[k] = v
	}
	return out
}

var exampleQuestionsTR = []string{
	"Bu göğüs röntgeninde anormallik var mı?",
	"Pnömoni belirtileri nelerdir?",
	"Aspirin ile etkileşime giren ilaçlar nelerdir?",
	"Ateş, öksürük ve nefes darlığı semptomlarını değerlendirir misiniz?",
	"Hipertansiyon tedavisinde kullanılan ilaçlar nelerdir?",
}

var exampleQuestionsEN = []string{
	"Are there any abnormalities in this chest X-ray?",
	"What are the symptoms of pneumonia?",
	"What drugs interact with Aspirin?",
	"Can you evaluate symptoms of fever, cough, and shortness of breath?",
	"What medications are used to treat hypertension?",
}

// ExampleQuestions returns the example questions for the given language.
// Turkish is the default for anything other than "en".
func ExampleQuestions(language string) []string {
	if language == "en" {
		return append([]string(nil), exampleQuestionsEN...)
	}
	return append([]string(nil), exampleQuestionsTR...)
}
