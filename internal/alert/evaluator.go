package alert

import (
	"sort"

	"github.com/jonboulle/clockwork"

	"github.com/py-sit/skyalert/internal/logging"
	"github.com/py-sit/skyalert/internal/models"
	"github.com/py-sit/skyalert/internal/render"
	"github.com/py-sit/skyalert/internal/rules"
)

// Evaluator matches active rules against fetched forecasts and expands each
// hit into per-customer candidates. It holds no persistent state; one call
// covers one cycle.
type Evaluator struct {
	clock  clockwork.Clock
	logger *logging.Logger
}

func NewEvaluator(clock clockwork.Clock, logger *logging.Logger) *Evaluator {
	return &Evaluator{clock: clock, logger: logger}
}

// Regions returns the distinct regions of the given customers, sorted for a
// stable fetch order.
func Regions(customers []models.Customer) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range customers {
		if c.Region == "" {
			continue
		}
		if _, ok := seen[c.Region]; ok {
			continue
		}
		seen[c.Region] = struct{}{}
		out = append(out, c.Region)
	}
	sort.Strings(out)
	return out
}

// Evaluate runs every active rule against every region's forecast and
// returns the candidates for customers subscribed to the matched weather
// type. A rule with an unparseable condition is skipped with a warning
// rather than failing the cycle.
func (e *Evaluator) Evaluate(
	activeRules []models.AlertRule,
	customers []models.Customer,
	forecasts map[string]models.RegionForecast,
	templates []models.Template,
	settings models.Settings,
) []models.Candidate {
	var candidates []models.Candidate

	regions := make([]string, 0, len(forecasts))
	for region := range forecasts {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	for _, rule := range activeRules {
		cond, err := rules.Parse(rule.Condition, rule.AlertKind)
		if err != nil {
			e.logger.Warnf("Skipping rule %d: %v", rule.ID, err)
			continue
		}
		advance := rule.EffectiveAdvanceDays(settings.AdvanceDays)

		for _, region := range regions {
			forecast := forecasts[region]
			date, ok := e.matchDate(cond, forecast, advance, settings.IntervalPrediction)
			if !ok {
				continue
			}
			e.logger.Infof("Rule %d (%s) matched in %s on %s", rule.ID, rule.WeatherType, region, date)

			for _, customer := range customers {
				if customer.Region != region || !customer.Subscribed(rule.WeatherType) {
					continue
				}
				candidates = append(candidates, models.Candidate{
					Customer:     customer,
					Region:       region,
					WeatherType:  rule.WeatherType,
					Condition:    rule.Condition,
					ForecastDate: date,
					Template:     pickTemplate(templates, rule.WeatherType, customer.Category),
				})
			}
		}
	}
	return candidates
}

// matchDate finds the forecast date the condition matches. In interval
// mode every offset from today through the advance horizon is checked and
// the nearest match wins; otherwise only the single day at the horizon is
// considered.
func (e *Evaluator) matchDate(cond rules.Condition, forecast models.RegionForecast, advanceDays int, interval bool) (string, bool) {
	today := e.clock.Now()
	if interval {
		missing := 0
		for offset := 0; offset <= advanceDays; offset++ {
			date := today.AddDate(0, 0, offset).Format(models.DateLayout)
			fp := forecast.OnDate(date)
			if fp == nil {
				missing++
				continue
			}
			if cond.Matches(*fp) {
				return date, true
			}
		}
		if missing > 0 {
			e.logger.Warnf("Insufficient forecast data for %s: %d of %d days missing", forecast.Region, missing, advanceDays+1)
		}
		return "", false
	}
	date := today.AddDate(0, 0, advanceDays).Format(models.DateLayout)
	fp := forecast.OnDate(date)
	if fp == nil {
		e.logger.Warnf("Insufficient forecast data for %s: no entry on %s", forecast.Region, date)
		return "", false
	}
	if cond.Matches(*fp) {
		return date, true
	}
	return "", false
}

// pickTemplate returns the first active template for the weather type that
// suits the customer's category. The zero Template signals that the caller
// should render the built-in fallback.
func pickTemplate(templates []models.Template, weatherType, category string) models.Template {
	for _, t := range templates {
		if t.Active && t.WeatherType == weatherType && t.SuitableFor(category) {
			return t
		}
	}
	return models.Template{}
}

// BuildPayload renders a candidate into its serializable email form,
// falling back to the default subject and body when the template renders
// empty.
func BuildPayload(c models.Candidate, isTest bool) models.EmailPayload {
	subject, content := render.Render(c.Template, c.Customer, render.AlertFields{
		WeatherType: c.WeatherType,
		AlertDate:   c.ForecastDate,
		Condition:   c.Condition,
	})
	if subject == "" {
		subject = render.DefaultSubject(c.Region, c.WeatherType)
	}
	if content == "" {
		content = render.DefaultContent(c.Customer.Name, c.Region, c.ForecastDate, c.WeatherType, c.Condition)
	}
	return models.EmailPayload{
		ToEmail:     c.Customer.Email,
		ToName:      c.Customer.Name,
		Subject:     subject,
		Content:     content,
		Company:     c.Customer.Company,
		Region:      c.Region,
		WeatherType: c.WeatherType,
		AlertDate:   c.ForecastDate,
		Condition:   c.Condition,
		Category:    c.Customer.Category,
		Attachments: c.Template.Attachments,
		IsTest:      isTest,
	}
}
