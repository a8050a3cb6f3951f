package dashboard

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/wapanel/internal/models"
)

// Checkbox inputs post "true" when ticked and are absent otherwise.
func formBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.PostForm(key))
	return v
}

func formInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.PostForm(key)))
	if err != nil {
		return def
	}
	return v
}

func formFloat(c *gin.Context, key string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm(key)), 64)
	if err != nil {
		return def
	}
	return v
}

func bindInstanceForm(c *gin.Context) models.InstanceForm {
	return models.InstanceForm{
		Alias:        c.PostForm("alias"),
		UserID:       c.PostForm("user_id"),
		IsMainDevice: formBool(c, "main_device"),
		FacebookAds:  formBool(c, "fb_ads"),
		Webhook:      c.PostForm("webhook"),
		ActiveIA:     formBool(c, "active_ia"),
	}
}

// bindAssistantForm reads the custom assistant form. Timing fields left
// blank keep the defaults.
func bindAssistantForm(c *gin.Context, id string) models.AssistantForm {
	a := models.NewAssistant()
	a.ID = id
	a.Instructions = strings.TrimSpace(c.PostForm("instructions"))
	a.ExpirationMinutes = formInt(c, "expiration_minutes", a.ExpirationMinutes)
	if v := strings.TrimSpace(c.PostForm("stop_keyword")); v != "" {
		a.StopKeyword = v
	}
	a.MessageDelayMs = formInt(c, "message_delay_ms", a.MessageDelayMs)
	if v := strings.TrimSpace(c.PostForm("unknown_message")); v != "" {
		a.UnknownMessage = v
	}
	a.ListenToOwner = formBool(c, "listen_to_owner")
	a.StopByOwner = formBool(c, "stop_by_owner")
	a.KeepSessionOpen = formBool(c, "keep_session_open")
	a.DebounceSeconds = formInt(c, "debounce_seconds", a.DebounceSeconds)
	a.SeparateMessages = formBool(c, "separate_messages")
	a.SecondsPerMessage = formFloat(c, "seconds_per_message", a.SecondsPerMessage)

	return models.AssistantForm{
		Name:             c.PostForm("name"),
		APIKeyID:         c.PostForm("api_key_id"),
		AssistantID:      c.PostForm("assistant_id"),
		WebhookURL:       c.PostForm("webhook_url"),
		TriggerType:      models.TriggerType(c.DefaultPostForm("trigger_type", string(models.TriggerAll))),
		TriggerCondition: models.TriggerCondition(c.PostForm("trigger_condition")),
		TriggerValue:     c.PostForm("trigger_value"),
		Assistant:        a,
	}
}

// bindOfficialForm reads the official assistant form. Function tools arrive
// as parallel fn_name/fn_description/fn_parameters lists; rows with an empty
// name and parameters are ignored.
func bindOfficialForm(c *gin.Context) models.OfficialForm {
	f := models.OfficialForm{
		Name:         c.PostForm("name"),
		Instructions: c.PostForm("instructions"),
		Model:        c.DefaultPostForm("model", models.DefaultModel),
		APIKeyID:     c.PostForm("api_key_id"),
		Temperature:  formFloat(c, "temperature", 1),
		TopP:         formFloat(c, "top_p", 1),
	}
	if formBool(c, "tool_code_interpreter") {
		f.Tools = append(f.Tools, models.Tool{Type: models.ToolCodeInterpreter})
	}
	if formBool(c, "tool_retrieval") {
		f.Tools = append(f.Tools, models.Tool{Type: models.ToolRetrieval})
	}
	names := c.PostFormArray("fn_name")
	descs := c.PostFormArray("fn_description")
	params := c.PostFormArray("fn_parameters")
	for i, name := range names {
		var desc, raw string
		if i < len(descs) {
			desc = descs[i]
		}
		if i < len(params) {
			raw = params[i]
		}
		if strings.TrimSpace(name) == "" && strings.TrimSpace(raw) == "" {
			continue
		}
		// Validation happens in OfficialForm.Validate.
		t, _ := models.NewFunctionTool(name, desc, raw)
		f.Tools = append(f.Tools, t)
	}
	return f
}
