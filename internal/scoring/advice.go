package scoring

import "sort"

// Thresholds for turning factor scores into human-readable advice.
const (
	strengthThreshold = 8.0
	concernThreshold  = 5.0
	maxAdviceItems    = 5
)

// factorStrengths describes what a high score on each factor means.
var factorStrengths = map[Factor]string{
	FactorModernTechStack:    "Modern, in-demand technology stack",
	FactorEngineeringCulture: "Strong engineering culture with visible practices",
	FactorToolingAndInfra:    "Solid development tooling and infrastructure",
	FactorTechnicalGrowth:    "Active investment in technical skill growth",
	FactorValuesClarity:      "Clearly articulated company values",
	FactorDiversityInclusion: "Visible commitment to diversity and inclusion",
	FactorCollaborationStyle: "Collaborative, transparent way of working",
	FactorMissionDriven:      "Clear mission and sense of purpose",
	FactorCareerAdvancement:  "Defined career advancement paths",
	FactorLearningSupport:    "Generous learning and education support",
	FactorMentorship:         "Structured mentorship and onboarding",
	FactorCompanyGrowthStage: "Growth stage offers room to take ownership",
	FactorSalaryTransparency: "Transparent approach to compensation",
	FactorHealthBenefits:     "Comprehensive health and wellness benefits",
	FactorEquityAndBonus:     "Equity or bonus participation on offer",
	FactorPerksQuality:       "Rich set of workplace perks",
	FactorRemoteFlexibility:  "Flexible remote or hybrid work arrangement",
	FactorWorkloadSignals:    "Healthy workload and work-life boundaries",
	FactorTimeOffPolicy:      "Generous time-off policy",
	FactorFamilySupport:      "Strong support for families and parents",
	FactorCompanyMaturity:    "Established company with a track record",
	FactorCompanySize:        "Company size suggests organizational stability",
	FactorIndustryOutlook:    "Operates in an industry with a strong outlook",
	FactorFundingStability:   "Signals of solid funding and financial health",
}

// factorConcerns describes what a low score on each factor means.
var factorConcerns = map[Factor]string{
	FactorModernTechStack:    "Technology stack appears dated or unclear",
	FactorEngineeringCulture: "Few signals of an engineering-first culture",
	FactorToolingAndInfra:    "Little visible investment in tooling and infrastructure",
	FactorTechnicalGrowth:    "No stated support for technical skill growth",
	FactorValuesClarity:      "Company values are not articulated",
	FactorDiversityInclusion: "No visible diversity and inclusion commitments",
	FactorCollaborationStyle: "Collaboration style is unclear",
	FactorMissionDriven:      "No clear mission or purpose communicated",
	FactorCareerAdvancement:  "Career advancement paths are not described",
	FactorLearningSupport:    "No stated learning or education budget",
	FactorMentorship:         "No mentorship or structured onboarding mentioned",
	FactorCompanyGrowthStage: "Company stage may limit growth opportunities",
	FactorSalaryTransparency: "Compensation approach is opaque",
	FactorHealthBenefits:     "Health and wellness benefits are minimal or unstated",
	FactorEquityAndBonus:     "No equity or bonus participation mentioned",
	FactorPerksQuality:       "Few workplace perks on offer",
	FactorRemoteFlexibility:  "Limited remote or flexible work options",
	FactorWorkloadSignals:    "No signals about workload or work-life balance",
	FactorTimeOffPolicy:      "Time-off policy is minimal or unstated",
	FactorFamilySupport:      "No stated support for families and parents",
	FactorCompanyMaturity:    "Company is very young or founding date unknown",
	FactorCompanySize:        "Company size raises stability questions",
	FactorIndustryOutlook:    "Industry outlook is uncertain",
	FactorFundingStability:   "No signals about funding or financial stability",
}

// recommendationRules fire when a factor falls below the concern threshold.
// Order matters: it fixes the output order and the cut at maxAdviceItems.
var recommendationRules = []struct {
	factor Factor
	advice string
}{
	{FactorSalaryTransparency, "Ask about the salary range and review cycle early in the process"},
	{FactorRemoteFlexibility, "Clarify the expected office presence before committing"},
	{FactorCareerAdvancement, "Ask how promotions and career progression are decided"},
	{FactorHealthBenefits, "Request the full benefits package in writing"},
	{FactorMentorship, "Ask how new engineers are onboarded and supported"},
	{FactorWorkloadSignals, "Ask the team directly about overtime and on-call expectations"},
	{FactorFundingStability, "Research the company's funding and financial position independently"},
	{FactorModernTechStack, "Ask the engineering team which technologies are actually in daily use"},
	{FactorTimeOffPolicy, "Confirm the number of vacation days and how freely they can be taken"},
}

// buildAdvice derives strengths, concerns and recommendations from the raw
// factor scores. Output order is deterministic: strengths by score descending,
// concerns by score ascending, ties broken by the fixed factor order.
func buildAdvice(factors map[Factor]float64) (strengths, concerns, recommendations []string) {
	ordered := orderedFactors()

	type scored struct {
		factor Factor
		score  float64
	}
	var high, low []scored
	for _, factor := range ordered {
		score := factors[factor]
		if score >= strengthThreshold {
			high = append(high, scored{factor, score})
		}
		if score <= concernThreshold {
			low = append(low, scored{factor, score})
		}
	}

	sort.SliceStable(high, func(i, j int) bool { return high[i].score > high[j].score })
	sort.SliceStable(low, func(i, j int) bool { return low[i].score < low[j].score })

	for _, item := range high {
		if len(strengths) == maxAdviceItems {
			break
		}
		strengths = append(strengths, factorStrengths[item.factor])
	}
	for _, item := range low {
		if len(concerns) == maxAdviceItems {
			break
		}
		concerns = append(concerns, factorConcerns[item.factor])
	}
	for _, rule := range recommendationRules {
		if len(recommendations) == maxAdviceItems {
			break
		}
		if factors[rule.factor] <= concernThreshold {
			recommendations = append(recommendations, rule.advice)
		}
	}
	return strengths, concerns, recommendations
}

// orderedFactors returns all 24 factors in the fixed category order.
func orderedFactors() []Factor {
	ordered := make([]Factor, 0, 24)
	for _, category := range categoryOrder {
		for _, factor := range categoryFactors[category] {
			ordered = append(ordered, factor)
		}
	}
	return ordered
}
