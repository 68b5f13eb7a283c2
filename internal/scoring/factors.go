// Package scoring turns extracted company attributes into a weighted
// multi-factor quality score. Everything here is pure and deterministic:
// the same input always produces bit-identical output, which the regression
// tests rely on.
package scoring

import (
	"sort"
	"strings"

	"github.com/velin/jobradar/internal/types"
)

// Category identifies one of the six score categories.
type Category string

// The six score categories. Each averages four factors.
const (
	CategoryDeveloperExperience  Category = "developerExperience"
	CategoryCultureAndValues     Category = "cultureAndValues"
	CategoryGrowthOpportunities  Category = "growthOpportunities"
	CategoryCompensationBenefits Category = "compensationBenefits"
	CategoryWorkLifeBalance      Category = "workLifeBalance"
	CategoryCompanyStability     Category = "companyStability"
)

// Factor identifies one of the 24 raw factor scores.
type Factor string

// Factors, grouped by category.
const (
	FactorModernTechStack    Factor = "modernTechStack"
	FactorEngineeringCulture Factor = "engineeringCulture"
	FactorToolingAndInfra    Factor = "toolingAndInfra"
	FactorTechnicalGrowth    Factor = "technicalGrowth"

	FactorValuesClarity      Factor = "valuesClarity"
	FactorDiversityInclusion Factor = "diversityInclusion"
	FactorCollaborationStyle Factor = "collaborationStyle"
	FactorMissionDriven      Factor = "missionDriven"

	FactorCareerAdvancement  Factor = "careerAdvancement"
	FactorLearningSupport    Factor = "learningSupport"
	FactorMentorship         Factor = "mentorship"
	FactorCompanyGrowthStage Factor = "companyGrowthStage"

	FactorSalaryTransparency Factor = "salaryTransparency"
	FactorHealthBenefits     Factor = "healthBenefits"
	FactorEquityAndBonus     Factor = "equityAndBonus"
	FactorPerksQuality       Factor = "perksQuality"

	FactorRemoteFlexibility Factor = "remoteFlexibility"
	FactorWorkloadSignals   Factor = "workloadSignals"
	FactorTimeOffPolicy     Factor = "timeOffPolicy"
	FactorFamilySupport     Factor = "familySupport"

	FactorCompanyMaturity  Factor = "companyMaturity"
	FactorCompanySize      Factor = "companySize"
	FactorIndustryOutlook  Factor = "industryOutlook"
	FactorFundingStability Factor = "fundingStability"
)

// categoryOrder fixes the iteration order for deterministic output.
var categoryOrder = []Category{
	CategoryDeveloperExperience,
	CategoryCultureAndValues,
	CategoryGrowthOpportunities,
	CategoryCompensationBenefits,
	CategoryWorkLifeBalance,
	CategoryCompanyStability,
}

// categoryFactors maps each category to its four factors, in a fixed order.
var categoryFactors = map[Category][4]Factor{
	CategoryDeveloperExperience:  {FactorModernTechStack, FactorEngineeringCulture, FactorToolingAndInfra, FactorTechnicalGrowth},
	CategoryCultureAndValues:     {FactorValuesClarity, FactorDiversityInclusion, FactorCollaborationStyle, FactorMissionDriven},
	CategoryGrowthOpportunities:  {FactorCareerAdvancement, FactorLearningSupport, FactorMentorship, FactorCompanyGrowthStage},
	CategoryCompensationBenefits: {FactorSalaryTransparency, FactorHealthBenefits, FactorEquityAndBonus, FactorPerksQuality},
	CategoryWorkLifeBalance:      {FactorRemoteFlexibility, FactorWorkloadSignals, FactorTimeOffPolicy, FactorFamilySupport},
	CategoryCompanyStability:     {FactorCompanyMaturity, FactorCompanySize, FactorIndustryOutlook, FactorFundingStability},
}

// Keyword lists. The lists are fixed so factor scores stay reproducible.
var (
	modernTechKeywords = []string{
		"go", "rust", "kotlin", "typescript", "python", "react", "kubernetes",
		"docker", "aws", "gcp", "azure", "graphql", "terraform", "kafka", "grpc",
	}
	engineeringCultureKeywords = []string{
		"code review", "open source", "tech talks", "hackathon", "engineering blog",
		"pair programming", "agile", "scrum", "clean code",
	}
	toolingKeywords = []string{
		"ci/cd", "docker", "kubernetes", "terraform", "github", "gitlab",
		"monitoring", "observability", "cloud", "automation",
	}
	technicalGrowthKeywords = []string{
		"conference", "training", "certification", "learning budget", "courses",
		"workshops", "education",
	}

	diversityKeywords = []string{
		"diversity", "inclusion", "equal opportunity", "belonging", "accessibility",
	}
	collaborationKeywords = []string{
		"teamwork", "collaboration", "transparency", "open communication",
		"feedback", "trust",
	}
	missionKeywords = []string{
		"mission", "impact", "purpose", "sustainability", "social", "innovation",
	}

	careerKeywords = []string{
		"career path", "promotion", "growth plan", "leadership", "advancement",
		"career development",
	}
	learningKeywords = []string{
		"training", "education budget", "courses", "books", "conference",
		"workshops", "certifications",
	}
	mentorshipKeywords = []string{
		"mentor", "coaching", "onboarding", "buddy", "knowledge sharing",
	}

	salaryKeywords = []string{
		"competitive salary", "salary range", "transparent pay", "pay band",
		"annual review", "salary review",
	}
	healthKeywords = []string{
		"health insurance", "dental", "medical", "wellness", "mental health",
		"gym", "multisport", "sport card",
	}
	equityKeywords = []string{
		"equity", "stock options", "bonus", "profit sharing", "esop", "shares",
	}
	perksKeywords = []string{
		"food", "snacks", "team events", "team building", "parking", "discounts",
		"vouchers", "office", "events",
	}

	workloadKeywords = []string{
		"work-life balance", "work life balance", "flexible hours", "no overtime",
		"flexible schedule", "four-day",
	}
	timeOffKeywords = []string{
		"paid leave", "vacation", "pto", "holidays", "sabbatical",
		"additional days off", "25 days",
	}
	familyKeywords = []string{
		"parental leave", "maternity", "paternity", "childcare", "family",
	}

	fundingKeywords = []string{
		"profitable", "funded", "series", "revenue", "public company", "stable",
		"market leader",
	}
)

// industryOutlookTable holds fixed outlook scores for known industries.
// Unknown industries get a neutral 5.
var industryOutlookTable = map[string]float64{
	"fintech":       9,
	"finance":       8,
	"ai":            9,
	"cybersecurity": 8.5,
	"healthcare":    8,
	"cloud":         8.5,
	"saas":          8,
	"ecommerce":     7,
	"gaming":        7,
	"automotive":    6.5,
	"telecom":       6.5,
	"outsourcing":   5.5,
	"advertising":   5.5,
}

// computeFactors calculates all 24 raw factor scores, each clamped to [0,10].
func computeFactors(attrs types.CompanyAttributes) map[Factor]float64 {
	tech := joinLower(attrs.Technologies)
	benefits := joinLower(attrs.Benefits)
	values := joinLower(attrs.Values)
	description := strings.ToLower(attrs.Description)
	culture := values + " " + benefits + " " + description

	factors := map[Factor]float64{
		FactorModernTechStack:    keywordScore(tech, modernTechKeywords),
		FactorEngineeringCulture: keywordScore(culture+" "+tech, engineeringCultureKeywords),
		FactorToolingAndInfra:    keywordScore(tech+" "+description, toolingKeywords),
		FactorTechnicalGrowth:    keywordScore(benefits+" "+values, technicalGrowthKeywords),

		FactorValuesClarity:      valuesClarityScore(attrs.Values),
		FactorDiversityInclusion: keywordScore(culture, diversityKeywords),
		FactorCollaborationStyle: keywordScore(culture, collaborationKeywords),
		FactorMissionDriven:      keywordScore(culture, missionKeywords),

		FactorCareerAdvancement:  keywordScore(benefits+" "+values, careerKeywords),
		FactorLearningSupport:    keywordScore(benefits, learningKeywords),
		FactorMentorship:         keywordScore(culture, mentorshipKeywords),
		FactorCompanyGrowthStage: growthStageScore(attrs.Size),

		FactorSalaryTransparency: keywordScore(benefits, salaryKeywords),
		FactorHealthBenefits:     keywordScore(benefits, healthKeywords),
		FactorEquityAndBonus:     keywordScore(benefits, equityKeywords),
		FactorPerksQuality:       keywordScore(benefits, perksKeywords),

		FactorRemoteFlexibility: remoteFlexibilityScore(attrs.WorkModel, benefits),
		FactorWorkloadSignals:   keywordScore(culture, workloadKeywords),
		FactorTimeOffPolicy:     keywordScore(benefits, timeOffKeywords),
		FactorFamilySupport:     keywordScore(benefits, familyKeywords),

		FactorCompanyMaturity:  maturityScore(attrs.FoundedYear),
		FactorCompanySize:      sizeScore(attrs.EmployeeCount, attrs.Size),
		FactorIndustryOutlook:  industryOutlookScore(attrs.Industry),
		FactorFundingStability: fundingScore(description + " " + values),
	}

	for f, v := range factors {
		factors[f] = clampFactor(v)
	}
	return factors
}

// keywordScore returns the overlap ratio between the text and the keyword
// list, scaled into 0-10. Matching at half the keywords already yields the
// maximum: these lists are broad and no real company mentions all of them.
func keywordScore(text string, keywords []string) float64 {
	if strings.TrimSpace(text) == "" || len(keywords) == 0 {
		return 0
	}
	matched := 0
	for _, keyword := range keywords {
		if containsKeyword(text, keyword) {
			matched++
		}
	}
	ratio := float64(matched) / (float64(len(keywords)) / 2.0)
	return clampFactor(ratio * 10)
}

// containsKeyword does word-ish matching: multi-word keywords use substring
// search, single words must appear as a whole token.
func containsKeyword(text, keyword string) bool {
	if strings.Contains(keyword, " ") || strings.Contains(keyword, "/") || strings.Contains(keyword, "-") {
		return strings.Contains(text, keyword)
	}
	for _, token := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '+' || r == '#')
	}) {
		if token == keyword {
			return true
		}
	}
	return false
}

// valuesClarityScore rewards companies that spell out their values at all:
// two points per distinct stated value, capped at ten.
func valuesClarityScore(values []string) float64 {
	distinct := map[string]bool{}
	for _, v := range values {
		normalized := strings.ToLower(strings.TrimSpace(v))
		if normalized != "" {
			distinct[normalized] = true
		}
	}
	return clampFactor(float64(len(distinct)) * 2)
}

// growthStageScore maps company size brackets to growth opportunity:
// small companies offer broader roles, large ones move slower.
func growthStageScore(size string) float64 {
	switch strings.ToLower(strings.TrimSpace(size)) {
	case "startup":
		return 8
	case "small":
		return 7
	case "medium":
		return 6
	case "large":
		return 5
	case "enterprise":
		return 4
	default:
		return 5
	}
}

// remoteFlexibilityScore starts from the declared work model and adds a small
// bonus for explicit flexible-hours benefits.
func remoteFlexibilityScore(workModel, benefits string) float64 {
	var base float64
	switch strings.ToLower(strings.TrimSpace(workModel)) {
	case "remote":
		base = 10
	case "hybrid":
		base = 7
	case "onsite", "office":
		base = 3
	default:
		base = 5
	}
	if strings.Contains(benefits, "flexible hours") || strings.Contains(benefits, "flexible working") {
		base += 1
	}
	return clampFactor(base)
}

// maturityScore maps company age brackets into a stability signal.
// The reference year is the founding year's distance from 2026 rather than
// wall-clock time, keeping the function pure.
const maturityReferenceYear = 2026

func maturityScore(foundedYear int) float64 {
	if foundedYear <= 1800 || foundedYear > maturityReferenceYear {
		return 5
	}
	age := maturityReferenceYear - foundedYear
	switch {
	case age < 2:
		return 3
	case age < 5:
		return 5
	case age < 10:
		return 7
	case age < 20:
		return 8.5
	default:
		return 10
	}
}

// sizeScore prefers the concrete employee count; falls back to the size label.
func sizeScore(employeeCount int, size string) float64 {
	if employeeCount > 0 {
		switch {
		case employeeCount < 10:
			return 3
		case employeeCount < 50:
			return 5
		case employeeCount < 200:
			return 6.5
		case employeeCount < 1000:
			return 8
		default:
			return 9.5
		}
	}
	switch strings.ToLower(strings.TrimSpace(size)) {
	case "startup":
		return 3.5
	case "small":
		return 5
	case "medium":
		return 6.5
	case "large":
		return 8
	case "enterprise":
		return 9.5
	default:
		return 5
	}
}

func industryOutlookScore(industry string) float64 {
	normalized := strings.ToLower(strings.TrimSpace(industry))
	if normalized == "" {
		return 5
	}
	if score, ok := industryOutlookTable[normalized]; ok {
		return score
	}
	// Partial match: "financial services" still hits "finance". Keys are
	// walked in sorted order so the result is stable when several match.
	for _, key := range sortedKeys(industryOutlookTable) {
		if strings.Contains(normalized, key) {
			return industryOutlookTable[key]
		}
	}
	return 5
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// fundingScore gives a neutral base plus a bounded lift for explicit
// stability signals in the description.
func fundingScore(text string) float64 {
	matched := 0
	for _, keyword := range fundingKeywords {
		if strings.Contains(text, keyword) {
			matched++
		}
	}
	score := 5 + float64(matched)*1.5
	return clampFactor(score)
}

func joinLower(items []string) string {
	return strings.ToLower(strings.Join(items, " "))
}

func clampFactor(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
