package enrich

import (
	"time"

	"akiyascout/server/internal/models"
)

// Score component weights. Hazard, infrastructure and demographic components
// exist downstream but are not computable from listing data alone, so the
// composite renormalizes over the components that are present.
var scoreWeights = map[string]float64{
	"rebuild":   0.25,
	"value":     0.15,
	"condition": 0.10,
}

// ComputeScore derives a coarse initial score from fields available at
// ingest time, so a property is usable downstream before full enrichment.
// Pure function of the property row.
func ComputeScore(prop *models.Property) models.PropertyScore {
	score := models.PropertyScore{PropertyID: prop.ID}

	// Value: cheaper per square meter scores higher
	if prop.PriceJPY > 0 && prop.LandAreaSqm != nil && *prop.LandAreaSqm > 0 {
		ppsm := float64(prop.PriceJPY) / *prop.LandAreaSqm
		switch {
		case ppsm < 10_000:
			score.ValueScore = 95
		case ppsm < 30_000:
			score.ValueScore = 80
		case ppsm < 60_000:
			score.ValueScore = 60
		case ppsm < 100_000:
			score.ValueScore = 40
		default:
			score.ValueScore = 20
		}
	}

	// Condition: newer buildings score higher
	if prop.YearBuilt != nil {
		age := time.Now().Year() - *prop.YearBuilt
		switch {
		case age <= 5:
			score.ConditionScore = 90
		case age <= 15:
			score.ConditionScore = 70
		case age <= 30:
			score.ConditionScore = 50
		case age <= 50:
			score.ConditionScore = 30
		default:
			score.ConditionScore = 15
		}
	}

	if prop.RebuildPossible != nil {
		if *prop.RebuildPossible {
			score.RebuildScore = 80
			if prop.RoadWidthM != nil && *prop.RoadWidthM >= 4.0 {
				score.RebuildScore = 95
			}
		} else {
			score.RebuildScore = 20
		}
	}

	components := map[string]float64{
		"rebuild":   score.RebuildScore,
		"value":     score.ValueScore,
		"condition": score.ConditionScore,
	}
	totalWeight := 0.0
	weighted := 0.0
	for name, w := range scoreWeights {
		if components[name] > 0 {
			totalWeight += w
			weighted += components[name] * w
		}
	}
	if totalWeight > 0 {
		score.CompositeScore = weighted / totalWeight
	}

	return score
}
