package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/py-sit/skyalert/internal/models"
)

var leftoverToken = regexp.MustCompile(`{{.*?}}`)

// AlertFields is the per-alert half of the template variable set.
type AlertFields struct {
	WeatherType string
	AlertDate   string
	Condition   string
}

// Render substitutes {{field}} tokens (including the non-ASCII aliases the
// legacy templates use) and strips any token that has no value. Pure
// function over its inputs.
func Render(tpl models.Template, customer models.Customer, alert AlertFields) (subject, body string) {
	vars := map[string]string{
		"{{name}}":         customer.Name,
		"{{title}}":        customer.Title,
		"{{company}}":      customer.Company,
		"{{region}}":       customer.Region,
		"{{phone}}":        customer.Phone,
		"{{email}}":        customer.Email,
		"{{date}}":         alert.AlertDate,
		"{{weather_type}}": alert.WeatherType,
		"{{姓名}}":           customer.Name,
		"{{称呼}}":           customer.Title,
		"{{公司}}":           customer.Company,
		"{{地区}}":           customer.Region,
		"{{日期}}":           alert.AlertDate,
		"{{天气类型}}":         alert.WeatherType,
	}

	replace := func(s string) string {
		for token, value := range vars {
			s = strings.ReplaceAll(s, token, value)
		}
		return leftoverToken.ReplaceAllString(s, "")
	}
	return replace(tpl.Subject), replace(tpl.Content)
}

// DefaultSubject is the fallback used when a template renders an empty
// subject.
func DefaultSubject(region, weatherType string) string {
	return fmt.Sprintf("%s地区%s天气预警通知", region, weatherType)
}

// DefaultContent is the fallback used when a template renders an empty
// body.
func DefaultContent(name, region, alertDate, weatherType, condition string) string {
	if condition == "" {
		condition = "未知条件"
	}
	return fmt.Sprintf(`尊敬的%s：

我们检测到您所在的%s地区将在%s出现%s天气情况。

具体情况：%s

请注意防范，确保安全。

此致
天气预警系统
`, name, region, alertDate, weatherType, condition)
}
