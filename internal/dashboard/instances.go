package dashboard

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/wapanel/internal/api"
	"github.com/zulandar/wapanel/internal/models"
)

// handleInstanceList shows the location's instances. Without a location it
// asks for one; with no instances and terms not yet accepted it shows the
// terms gate.
func (s *server) handleInstanceList(c *gin.Context) {
	ctx := c.Request.Context()
	loc := locationOf(c)
	if loc == "" {
		s.render(c, http.StatusOK, "location", nil)
		return
	}

	instances, err := s.backend.ListInstances(ctx, loc)
	if err != nil {
		s.notifier.Error(ctx, api.UserMessage(err))
	}
	users, err := s.backend.ListUsers(ctx, loc)
	if err != nil {
		s.notifier.Error(ctx, api.UserMessage(err))
	}

	if len(instances) == 0 {
		accepted, err := s.prefs.TermsAccepted(ctx)
		if err != nil {
			log.Printf("dashboard: terms state: %v", err)
		}
		if !accepted {
			s.render(c, http.StatusOK, "terms", gin.H{"terms": s.terms, "gate": true})
			return
		}
	}

	s.render(c, http.StatusOK, "instances", gin.H{
		"instances":     instances,
		"users":         users,
		"hasMainDevice": models.MainDeviceTaken(instances, ""),
	})
}

func (s *server) handleCreateInstance(c *gin.Context) {
	ctx := c.Request.Context()
	loc := locationOf(c)
	form := bindInstanceForm(c)

	if err := form.Validate(false); err != nil {
		s.notifier.Error(ctx, err.Error())
		redirect(c, "/")
		return
	}

	var user *api.UserData
	if form.IsMainDevice {
		if !s.mainDeviceFree(c, &form, "") {
			redirect(c, "/")
			return
		}
	} else {
		users, err := s.backend.ListUsers(ctx, loc)
		if err != nil {
			s.notifier.Error(ctx, api.UserMessage(err))
			redirect(c, "/")
			return
		}
		u, ok := models.FindUser(users, form.UserID)
		if !ok {
			s.notifier.Error(ctx, "El usuario seleccionado no existe en esta location")
			redirect(c, "/")
			return
		}
		user = &api.UserData{Name: u.Name, Email: u.Email, Phone: u.Phone}
	}

	// The client raises the success or failure toast.
	s.backend.CreateInstance(ctx, loc, form.Config(), user)
	redirect(c, "/")
}

// mainDeviceFree checks a main-device form against the location's other
// instances, raising the toast itself when it cannot proceed.
func (s *server) mainDeviceFree(c *gin.Context, form *models.InstanceForm, except string) bool {
	ctx := c.Request.Context()
	instances, err := s.backend.ListInstances(ctx, locationOf(c))
	if err != nil {
		s.notifier.Error(ctx, api.UserMessage(err))
		return false
	}
	if err := form.Validate(models.MainDeviceTaken(instances, except)); err != nil {
		s.notifier.Error(ctx, err.Error())
		return false
	}
	return true
}

func (s *server) handleEditInstanceForm(c *gin.Context) {
	ctx := c.Request.Context()
	loc := locationOf(c)
	name := c.Param("name")

	inst, err := s.instanceByName(c, name)
	if err != nil || inst == nil {
		redirect(c, "/")
		return
	}
	cfg, err := s.backend.GetInstanceConfig(ctx, loc, string(inst.ID))
	if err == nil && cfg != nil {
		inst = cfg
	}
	users, _ := s.backend.ListUsers(ctx, loc)

	s.render(c, http.StatusOK, "instance-edit", gin.H{
		"instance": inst,
		"users":    users,
		"form": models.InstanceForm{
			Alias:        inst.Alias,
			UserID:       string(inst.UserID),
			IsMainDevice: inst.MainDevice,
			FacebookAds:  inst.FacebookAds,
			Webhook:      inst.Webhook,
			ActiveIA:     inst.ActiveIA,
		},
	})
}

func (s *server) handleEditInstance(c *gin.Context) {
	ctx := c.Request.Context()
	loc := locationOf(c)
	name := c.Param("name")
	form := bindInstanceForm(c)

	err := form.Validate(false)
	if err == nil && form.IsMainDevice {
		instances, lerr := s.backend.ListInstances(ctx, loc)
		if lerr != nil {
			s.notifier.Error(ctx, api.UserMessage(lerr))
			redirect(c, "/")
			return
		}
		err = form.Validate(models.MainDeviceTaken(instances, name))
	}
	if err != nil {
		s.notifier.Error(ctx, err.Error())
		users, _ := s.backend.ListUsers(ctx, loc)
		s.render(c, http.StatusUnprocessableEntity, "instance-edit", gin.H{
			"instance": &models.Instance{Name: name},
			"users":    users,
			"form":     form,
		})
		return
	}

	if _, err := s.backend.EditInstance(ctx, loc, name, form.Config()); err != nil {
		redirect(c, instancePath(name, "edit"))
		return
	}
	redirect(c, "/")
}

func (s *server) handleDeleteInstance(c *gin.Context) {
	s.backend.DeleteInstance(c.Request.Context(), locationOf(c), c.Param("name"))
	redirect(c, "/")
}

func (s *server) handleTurnOffInstance(c *gin.Context) {
	s.backend.TurnOffInstance(c.Request.Context(), locationOf(c), c.Param("name"))
	redirect(c, "/")
}

// instanceByName finds an instance of the active location. A nil instance
// with a nil error means it does not exist.
func (s *server) instanceByName(c *gin.Context, name string) (*models.Instance, error) {
	ctx := c.Request.Context()
	instances, err := s.backend.ListInstances(ctx, locationOf(c))
	if err != nil {
		s.notifier.Error(ctx, api.UserMessage(err))
		return nil, err
	}
	for i := range instances {
		if instances[i].Name == name {
			return &instances[i], nil
		}
	}
	s.notifier.Error(ctx, "Instancia no encontrada")
	return nil, nil
}

// handleInstanceDetail shows one instance with its credentials, assistants
// and official assistants. ?key= filters official assistants by credential.
func (s *server) handleInstanceDetail(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")

	inst, err := s.instanceByName(c, name)
	if err != nil || inst == nil {
		redirect(c, "/")
		return
	}
	state := s.backend.InstanceData(ctx, locationOf(c), name)

	creds, err := s.backend.GetCredentials(ctx, name)
	if err != nil {
		s.notifier.Error(ctx, api.UserMessage(err))
		creds = models.EmptyCredentialSet(name)
	}
	assistants, err := s.backend.ListAssistants(ctx, name)
	if err != nil {
		s.notifier.Error(ctx, api.UserMessage(err))
	}
	keyFilter := c.Query("key")
	official, err := s.backend.ListOfficialAssistants(ctx, name, keyFilter)
	if err != nil {
		s.notifier.Error(ctx, api.UserMessage(err))
	}

	s.render(c, http.StatusOK, "instance", gin.H{
		"instance":   inst,
		"state":      state,
		"creds":      creds,
		"assistants": assistants,
		"official":   official,
		"keyFilter":  keyFilter,
	})
}

func (s *server) handleAPIInstances(c *gin.Context) {
	loc := locationOf(c)
	if loc == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "locationId is required"})
		return
	}
	instances, err := s.backend.ListInstances(c.Request.Context(), loc)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": api.UserMessage(err)})
		return
	}
	if instances == nil {
		instances = []models.Instance{}
	}
	c.JSON(http.StatusOK, gin.H{"data": instances})
}

func (s *server) handleAPIInstanceState(c *gin.Context) {
	loc := locationOf(c)
	if loc == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "locationId is required"})
		return
	}
	c.JSON(http.StatusOK, s.backend.InstanceData(c.Request.Context(), loc, c.Param("name")))
}

// handleTerms shows the terms; handleAcceptTerms records acceptance.
func (s *server) handleTerms(c *gin.Context) {
	accepted, _ := s.prefs.TermsAccepted(c.Request.Context())
	s.render(c, http.StatusOK, "terms", gin.H{"terms": s.terms, "accepted": accepted})
}

func (s *server) handleAcceptTerms(c *gin.Context) {
	if err := s.prefs.AcceptTerms(c.Request.Context()); err != nil {
		log.Printf("dashboard: accept terms: %v", err)
		s.notifier.Error(c.Request.Context(), "No se pudo guardar la aceptación de los términos")
	}
	redirect(c, "/")
}
