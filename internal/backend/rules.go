package backend

import (
	"strings"

	"github.com/wolfman30/medassist-ai/internal/medical"
)

type symptomRule struct {
	keywords   []string
	symptom    string
	disease    string
	department string
	treatment  string
	// priority breaks ties when several rules match; higher wins.
	priority int
}

const (
	DepartmentEmergency   = "emergency department"
	DepartmentInternal    = "internal medicine"
	DepartmentGeneral     = "general outpatient clinic"
	DepartmentENT         = "ENT"
	DepartmentDermatology = "dermatology"
	DepartmentOrthopaedic = "orthopaedics"
	DepartmentNeurology   = "neurology"
	DepartmentGastro      = "gastroenterology"
	DepartmentPaediatrics = "paediatrics"
	DepartmentObstetrics  = "obstetrics and gynaecology"
	DepartmentOphthalmic  = "ophthalmology"
	DepartmentPsychiatry  = "psychiatry"
)

var symptomRules = []symptomRule{
	{[]string{"chest pain", "chest tightness", "胸痛"}, "chest pain", "possible acute coronary syndrome", DepartmentEmergency, "Seek emergency care immediately; ECG and cardiac enzymes are needed to rule out a heart attack.", 100},
	{[]string{"shortness of breath", "can't breathe", "cannot breathe", "difficulty breathing"}, "shortness of breath", "possible respiratory distress", DepartmentEmergency, "Seek emergency care; oxygen saturation and a chest X-ray are needed.", 90},
	{[]string{"unconscious", "fainted", "passed out", "seizure"}, "loss of consciousness", "possible syncope or seizure", DepartmentEmergency, "Call emergency services and keep the patient in the recovery position.", 95},
	{[]string{"severe bleeding", "bleeding heavily"}, "bleeding", "haemorrhage", DepartmentEmergency, "Apply firm pressure and go to the emergency department.", 95},
	{[]string{"numbness", "slurred speech", "face drooping"}, "neurological deficit", "possible stroke", DepartmentEmergency, "Go to the emergency department immediately; time to treatment matters for stroke.", 100},
	{[]string{"headache", "migraine", "头痛"}, "headache", "tension headache or migraine", DepartmentNeurology, "Rest, hydration and over-the-counter analgesics; see a neurologist if headaches recur.", 30},
	{[]string{"dizzy", "dizziness", "vertigo"}, "dizziness", "possible vestibular disorder", DepartmentNeurology, "Avoid sudden movements; seek assessment if it persists.", 30},
	{[]string{"fever", "发烧", "high temperature"}, "fever", "possible viral infection", DepartmentInternal, "Rest, fluids and antipyretics; see a doctor if fever lasts over three days.", 40},
	{[]string{"cough", "咳嗽"}, "cough", "upper respiratory tract infection", DepartmentInternal, "Fluids, rest and cough suppressants; seek care if breathing becomes difficult.", 35},
	{[]string{"sore throat", "runny nose", "ear pain", "earache"}, "sore throat", "pharyngitis", DepartmentENT, "Warm fluids and throat lozenges; an ENT review if it persists beyond a week.", 25},
	{[]string{"stomach ache", "abdominal pain", "stomach pain", "diarrhea", "diarrhoea", "vomiting", "nausea"}, "abdominal pain", "gastroenteritis", DepartmentGastro, "Oral rehydration and a bland diet; seek care for blood in stool or persistent vomiting.", 45},
	{[]string{"rash", "itchy", "itching", "acne", "eczema"}, "skin rash", "dermatitis", DepartmentDermatology, "Avoid irritants and use a moisturiser; a dermatologist can prescribe topical steroids.", 20},
	{[]string{"back pain", "joint pain", "knee pain", "sprain", "fracture"}, "musculoskeletal pain", "musculoskeletal strain", DepartmentOrthopaedic, "Rest, ice and analgesics; imaging if pain follows trauma or does not improve.", 30},
	{[]string{"blurred vision", "eye pain", "red eye"}, "eye discomfort", "possible conjunctivitis", DepartmentOphthalmic, "Avoid rubbing the eye; an eye examination is recommended.", 30},
	{[]string{"pregnant", "pregnancy", "period pain", "menstrual"}, "gynaecological concern", "gynaecological condition", DepartmentObstetrics, "Book an obstetrics and gynaecology appointment.", 40},
	{[]string{"anxiety", "depressed", "depression", "insomnia", "can't sleep"}, "low mood or anxiety", "possible mood disorder", DepartmentPsychiatry, "Talk to a mental health professional; call a crisis line if you feel unsafe.", 35},
}

// RulesReport builds a report from keyword matches alone. It never fails:
// unmatched text yields a general outpatient referral.
func RulesReport(text string, info medical.BasicInfo) medical.MedicalReport {
	lower := strings.ToLower(text)
	report := medical.MedicalReport{BasicInfo: info}

	var best *symptomRule
	for i := range symptomRules {
		rule := &symptomRules[i]
		if !matchesAny(lower, rule.keywords) {
			continue
		}
		report.Prompts.Symptoms = append(report.Prompts.Symptoms, rule.symptom)
		if best == nil || rule.priority > best.priority {
			best = rule
		}
	}

	if best == nil {
		symptom := strings.TrimSpace(text)
		if len(symptom) > 120 {
			symptom = symptom[:120]
		}
		if symptom != "" {
			report.Prompts.Symptoms = []string{symptom}
		}
		department := DepartmentGeneral
		if info.Age > 0 && info.Age < 12 {
			department = DepartmentPaediatrics
		}
		report.Diagnosis = medical.Diagnosis{
			PossibleDisease:  "undetermined",
			Department:       department,
			TreatmentOptions: "A clinician should assess the symptoms in person.",
		}
		return report
	}

	department := best.department
	if department != DepartmentEmergency && info.Age > 0 && info.Age < 12 {
		department = DepartmentPaediatrics
	}
	report.Diagnosis = medical.Diagnosis{
		PossibleDisease:  best.disease,
		Department:       department,
		TreatmentOptions: best.treatment,
	}
	return report
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
