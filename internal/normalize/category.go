package normalize

import (
	"strings"

	"github.com/user/grant-aggregator/internal/entity"
)

type categoryRule struct {
	category entity.Category
	keywords []string
}

// Checked in order; the first bucket with a hit wins.
var categoryRules = []categoryRule{
	{entity.CategoryResearch, []string{"研究", "科研", "学術"}},
	{entity.CategoryStartup, []string{"スタートアップ", "創業", "起業", "ベンチャー"}},
	{entity.CategoryEquipment, []string{"設備", "機器", "導入"}},
	{entity.CategoryInternational, []string{"国際", "海外", "渡航"}},
}

// Classify tags a grant from its title and summary.
func Classify(title, summary string) entity.Category {
	text := title + " " + summary
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return entity.CategoryOther
}
