package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/py-sit/skyalert/internal/models"
)

func TestRenderSubstitutesFields(t *testing.T) {
	tpl := models.Template{
		Subject: "{{region}}{{weather_type}}预警",
		Content: "尊敬的{{name}}{{title}}，{{date}}将出现{{weather_type}}。",
	}
	customer := models.Customer{Name: "张三", Title: "先生", Region: "北京"}
	subject, body := Render(tpl, customer, AlertFields{
		WeatherType: "高温",
		AlertDate:   "2025-07-01",
	})

	assert.Equal(t, "北京高温预警", subject)
	assert.Equal(t, "尊敬的张三先生，2025-07-01将出现高温。", body)
}

func TestRenderChineseAliases(t *testing.T) {
	tpl := models.Template{
		Subject: "{{地区}}{{天气类型}}通知",
		Content: "{{公司}} {{姓名}}{{称呼}} {{日期}}",
	}
	customer := models.Customer{Name: "李四", Title: "女士", Company: "示例公司", Region: "上海"}
	subject, body := Render(tpl, customer, AlertFields{WeatherType: "暴雨", AlertDate: "2025-08-02"})

	assert.Equal(t, "上海暴雨通知", subject)
	assert.Equal(t, "示例公司 李四女士 2025-08-02", body)
}

func TestRenderStripsUnknownTokens(t *testing.T) {
	tpl := models.Template{Subject: "预警{{mystery}}", Content: "正文 {{unknown_field}} 结束"}
	subject, body := Render(tpl, models.Customer{}, AlertFields{})

	assert.Equal(t, "预警", subject)
	assert.Equal(t, "正文  结束", body)
}

func TestDefaultContentFallbackCondition(t *testing.T) {
	body := DefaultContent("王五", "广州", "2025-07-03", "台风", "")
	assert.Contains(t, body, "王五")
	assert.Contains(t, body, "未知条件")

	body = DefaultContent("王五", "广州", "2025-07-03", "台风", "风速 >= 20")
	assert.Contains(t, body, "风速 >= 20")
}
