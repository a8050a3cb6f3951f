package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/wapanel/internal/api"
	"github.com/zulandar/wapanel/internal/models"
)

func (s *server) handleCreateCredential(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")
	form := models.CredentialForm{Name: c.PostForm("name"), APIKey: c.PostForm("api_key")}
	if err := form.Validate(); err != nil {
		s.notifier.Error(ctx, err.Error())
		redirect(c, instancePath(name))
		return
	}
	s.backend.CreateCredential(ctx, name, form.Name, form.APIKey)
	redirect(c, instancePath(name))
}

func (s *server) handleDeleteCredential(c *gin.Context) {
	name := c.Param("name")
	s.backend.DeleteCredential(c.Request.Context(), name, c.Param("id"))
	redirect(c, instancePath(name))
}

// credentials loads the key list used by assistant forms.
func (s *server) credentials(c *gin.Context, name string) models.CredentialSet {
	creds, err := s.backend.GetCredentials(c.Request.Context(), name)
	if err != nil {
		s.notifier.Error(c.Request.Context(), api.UserMessage(err))
		return models.EmptyCredentialSet(name)
	}
	return creds
}

func (s *server) renderAssistantForm(c *gin.Context, status int, name string, form models.AssistantForm, isNew bool) {
	s.render(c, status, "assistant-form", gin.H{
		"instanceName": name,
		"form":         form,
		"isNew":        isNew,
		"creds":        s.credentials(c, name),
		"triggers":     []models.TriggerType{models.TriggerAll, models.TriggerKeyword, models.TriggerAdvanced, models.TriggerNone},
		"conditions": []models.TriggerCondition{
			models.ConditionContains, models.ConditionEquals, models.ConditionStartsWith,
			models.ConditionEndsWith, models.ConditionRegex,
		},
	})
}

func (s *server) handleNewAssistantForm(c *gin.Context) {
	form := models.NewAssistant().Form()
	form.Name = ""
	s.renderAssistantForm(c, http.StatusOK, c.Param("name"), form, true)
}

func (s *server) handleCreateAssistant(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")
	form := bindAssistantForm(c, "")
	if err := form.Validate(); err != nil {
		s.notifier.Error(ctx, err.Error())
		s.renderAssistantForm(c, http.StatusUnprocessableEntity, name, form, true)
		return
	}
	if _, err := s.backend.CreateAssistant(ctx, name, form.Assistant); err != nil {
		s.renderAssistantForm(c, http.StatusBadGateway, name, form, true)
		return
	}
	redirect(c, instancePath(name))
}

func (s *server) handleEditAssistantForm(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")
	a, err := s.backend.GetAssistant(ctx, name, c.Param("id"))
	if err != nil {
		redirect(c, instancePath(name))
		return
	}
	s.renderAssistantForm(c, http.StatusOK, name, a.Form(), false)
}

func (s *server) handleUpdateAssistant(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")
	form := bindAssistantForm(c, c.Param("id"))
	if err := form.Validate(); err != nil {
		s.notifier.Error(ctx, err.Error())
		s.renderAssistantForm(c, http.StatusUnprocessableEntity, name, form, false)
		return
	}
	if _, err := s.backend.UpdateAssistant(ctx, name, form.Assistant); err != nil {
		s.renderAssistantForm(c, http.StatusBadGateway, name, form, false)
		return
	}
	redirect(c, instancePath(name))
}

func (s *server) handleDeleteAssistant(c *gin.Context) {
	name := c.Param("name")
	s.backend.DeleteAssistant(c.Request.Context(), name, c.Param("id"))
	redirect(c, instancePath(name))
}

func (s *server) handleSessions(c *gin.Context) {
	ctx := c.Request.Context()
	name, id := c.Param("name"), c.Param("id")
	sessions, err := s.backend.ListSessions(ctx, name, id)
	if err != nil {
		s.notifier.Error(ctx, api.UserMessage(err))
	}
	var assistant *models.Assistant
	if a, err := s.backend.GetAssistant(ctx, name, id); err == nil {
		assistant = &a
	}
	s.render(c, http.StatusOK, "sessions", gin.H{
		"instanceName": name,
		"assistantID":  id,
		"assistant":    assistant,
		"sessions":     sessions,
	})
}

func (s *server) handleSessionAction(c *gin.Context) {
	ctx := c.Request.Context()
	name, id := c.Param("name"), c.Param("id")
	back := instancePath(name, "assistants", id, "sessions")

	action, err := models.ParseSessionAction(c.Param("action"))
	if err != nil {
		s.notifier.Error(ctx, "Acción de sesión inválida")
		redirect(c, back)
		return
	}
	s.backend.UpdateSession(ctx, name, id, c.Param("sid"), c.PostForm("remote_jid"), action)
	redirect(c, back)
}

func (s *server) renderOfficialForm(c *gin.Context, status int, name, id string, form models.OfficialForm) {
	var fnTools []models.Tool
	tools := map[string]bool{}
	for _, t := range form.Tools {
		tools[t.Type] = true
		if t.Type == models.ToolFunction && t.Function != nil {
			fnTools = append(fnTools, t)
		}
	}
	s.render(c, status, "official-form", gin.H{
		"instanceName": name,
		"id":           id,
		"form":         form,
		"tools":        tools,
		"functions":    fnTools,
		"creds":        s.credentials(c, name),
	})
}

func (s *server) handleNewOfficialForm(c *gin.Context) {
	s.renderOfficialForm(c, http.StatusOK, c.Param("name"), "", models.OfficialForm{
		Model:       models.DefaultModel,
		APIKeyID:    c.Query("key"),
		Temperature: 1,
		TopP:        1,
	})
}

func (s *server) handleCreateOfficial(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")
	form := bindOfficialForm(c)
	if err := form.Validate(); err != nil {
		s.notifier.Error(ctx, err.Error())
		s.renderOfficialForm(c, http.StatusUnprocessableEntity, name, "", form)
		return
	}
	if _, err := s.backend.CreateOfficialAssistant(ctx, name, form.Assistant("")); err != nil {
		s.renderOfficialForm(c, http.StatusBadGateway, name, "", form)
		return
	}
	redirect(c, withKey(instancePath(name), form.APIKeyID))
}

// handleEditOfficialForm looks the assistant up in the list filtered by the
// ?key= credential; the backend has no single-assistant read.
func (s *server) handleEditOfficialForm(c *gin.Context) {
	ctx := c.Request.Context()
	name, id := c.Param("name"), c.Param("id")
	list, err := s.backend.ListOfficialAssistants(ctx, name, c.Query("key"))
	if err != nil {
		s.notifier.Error(ctx, api.UserMessage(err))
		redirect(c, instancePath(name))
		return
	}
	for _, o := range list {
		if string(o.ID) != id {
			continue
		}
		form := o.Form()
		s.renderOfficialForm(c, http.StatusOK, name, id, form)
		return
	}
	s.notifier.Error(ctx, "Asistente no encontrado")
	redirect(c, instancePath(name))
}

func (s *server) handleUpdateOfficial(c *gin.Context) {
	ctx := c.Request.Context()
	name, id := c.Param("name"), c.Param("id")
	form := bindOfficialForm(c)
	if err := form.Validate(); err != nil {
		s.notifier.Error(ctx, err.Error())
		s.renderOfficialForm(c, http.StatusUnprocessableEntity, name, id, form)
		return
	}
	if _, err := s.backend.UpdateOfficialAssistant(ctx, name, form.Assistant(id)); err != nil {
		s.renderOfficialForm(c, http.StatusBadGateway, name, id, form)
		return
	}
	redirect(c, withKey(instancePath(name), form.APIKeyID))
}

func (s *server) handleDeleteOfficial(c *gin.Context) {
	name := c.Param("name")
	key := c.PostForm("api_key_id")
	s.backend.DeleteOfficialAssistant(c.Request.Context(), name, c.Param("id"), key)
	redirect(c, withKey(instancePath(name), key))
}
