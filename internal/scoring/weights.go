package scoring

import "strings"

// defaultWeights is the baseline category weighting. The values sum to 1.0;
// resolveWeights renormalizes after adjustments so the sum stays exact.
var defaultWeights = map[Category]float64{
	CategoryDeveloperExperience:  0.20,
	CategoryCultureAndValues:     0.15,
	CategoryGrowthOpportunities:  0.15,
	CategoryCompensationBenefits: 0.20,
	CategoryWorkLifeBalance:      0.15,
	CategoryCompanyStability:     0.15,
}

// industryAdjustments shifts weights for industries where candidates weigh
// categories differently. Deltas within one industry sum to zero so the
// pre-normalization total stays near 1.0.
var industryAdjustments = map[string]map[Category]float64{
	"fintech": {
		CategoryCompanyStability:     0.05,
		CategoryCompensationBenefits: 0.05,
		CategoryWorkLifeBalance:      -0.05,
		CategoryCultureAndValues:     -0.05,
	},
	"gaming": {
		CategoryDeveloperExperience: 0.05,
		CategoryCultureAndValues:    0.05,
		CategoryCompanyStability:    -0.05,
		CategoryWorkLifeBalance:     -0.05,
	},
	"outsourcing": {
		CategoryWorkLifeBalance:     0.05,
		CategoryGrowthOpportunities: 0.05,
		CategoryDeveloperExperience: -0.05,
		CategoryCultureAndValues:    -0.05,
	},
	"healthcare": {
		CategoryCompanyStability:     0.05,
		CategoryCultureAndValues:     0.05,
		CategoryDeveloperExperience:  -0.05,
		CategoryCompensationBenefits: -0.05,
	},
}

// sizeAdjustments shifts weights by company size: startups trade stability
// for growth, enterprises the reverse.
var sizeAdjustments = map[string]map[Category]float64{
	"startup": {
		CategoryGrowthOpportunities:  0.05,
		CategoryDeveloperExperience:  0.03,
		CategoryCompanyStability:     -0.05,
		CategoryCompensationBenefits: -0.03,
	},
	"enterprise": {
		CategoryCompanyStability:     0.05,
		CategoryCompensationBenefits: 0.03,
		CategoryGrowthOpportunities:  -0.05,
		CategoryDeveloperExperience:  -0.03,
	},
	"large": {
		CategoryCompanyStability:    0.03,
		CategoryGrowthOpportunities: -0.03,
	},
}

// resolveWeights applies industry and size adjustments to the defaults and
// renormalizes so the six weights sum to exactly 1.0.
func resolveWeights(industry, size string) map[Category]float64 {
	weights := make(map[Category]float64, len(defaultWeights))
	for category, weight := range defaultWeights {
		weights[category] = weight
	}

	applyAdjustments(weights, lookupAdjustments(industryAdjustments, industry))
	applyAdjustments(weights, sizeAdjustments[strings.ToLower(strings.TrimSpace(size))])

	var total float64
	for _, category := range categoryOrder {
		if weights[category] < 0.01 {
			weights[category] = 0.01
		}
		total += weights[category]
	}
	for _, category := range categoryOrder {
		weights[category] /= total
	}
	return weights
}

func applyAdjustments(weights map[Category]float64, deltas map[Category]float64) {
	for category, delta := range deltas {
		weights[category] += delta
	}
}

// lookupAdjustments matches the industry loosely so "financial technology"
// style labels still resolve.
func lookupAdjustments(table map[string]map[Category]float64, industry string) map[Category]float64 {
	normalized := strings.ToLower(strings.TrimSpace(industry))
	if normalized == "" {
		return nil
	}
	if deltas, ok := table[normalized]; ok {
		return deltas
	}
	for _, key := range sortedKeys(table) {
		if strings.Contains(normalized, key) {
			return table[key]
		}
	}
	return nil
}
