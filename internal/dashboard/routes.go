package dashboard

import (
	"io/fs"
	"log"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zulandar/wapanel/internal/notify"
)

const (
	ctxLocation  = "locationID"
	ctxRequestID = "requestID"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, s *server) {
	staticFS, _ := fs.Sub(assetsFS, "assets")
	router.StaticFS("/static", http.FS(staticFS))

	app := router.Group("/", s.withLocation)
	app.GET("/", s.handleInstanceList)
	app.GET("/terms", s.handleTerms)
	app.POST("/terms/accept", s.handleAcceptTerms)

	inst := app.Group("/instances")
	inst.POST("", s.handleCreateInstance)
	inst.GET("/:name", s.handleInstanceDetail)
	inst.GET("/:name/edit", s.handleEditInstanceForm)
	inst.POST("/:name/edit", s.handleEditInstance)
	inst.POST("/:name/delete", s.handleDeleteInstance)
	inst.POST("/:name/off", s.handleTurnOffInstance)

	inst.GET("/:name/qr", s.handleQRPage)
	inst.GET("/:name/qr/events", s.handleQREvents)
	inst.POST("/:name/qr/refresh", s.handleQRRefresh)

	inst.POST("/:name/credentials", s.handleCreateCredential)
	inst.POST("/:name/credentials/:id/delete", s.handleDeleteCredential)

	inst.GET("/:name/assistants/new", s.handleNewAssistantForm)
	inst.POST("/:name/assistants", s.handleCreateAssistant)
	inst.GET("/:name/assistants/:id/edit", s.handleEditAssistantForm)
	inst.POST("/:name/assistants/:id", s.handleUpdateAssistant)
	inst.POST("/:name/assistants/:id/delete", s.handleDeleteAssistant)
	inst.GET("/:name/assistants/:id/sessions", s.handleSessions)
	inst.POST("/:name/assistants/:id/sessions/:sid/:action", s.handleSessionAction)

	inst.GET("/:name/official/new", s.handleNewOfficialForm)
	inst.POST("/:name/official", s.handleCreateOfficial)
	inst.GET("/:name/official/:id/edit", s.handleEditOfficialForm)
	inst.POST("/:name/official/:id", s.handleUpdateOfficial)
	inst.POST("/:name/official/:id/delete", s.handleDeleteOfficial)

	apiGroup := router.Group("/api", s.withLocation)
	apiGroup.GET("/instances", s.handleAPIInstances)
	apiGroup.GET("/instances/:name/state", s.handleAPIInstanceState)
}

// requestID tags every request with an X-Request-ID, reusing the caller's.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// withLocation resolves the active location. A ?locationId= query value
// wins and is remembered; otherwise the stored one is used.
func (s *server) withLocation(c *gin.Context) {
	ctx := c.Request.Context()
	loc := c.Query("locationId")
	if loc != "" {
		if err := s.prefs.SetLocationID(ctx, loc); err != nil {
			log.Printf("dashboard: remember location: %v", err)
		}
	} else {
		stored, err := s.prefs.LocationID(ctx)
		if err != nil {
			log.Printf("dashboard: load location: %v", err)
		}
		loc = stored
	}
	c.Set(ctxLocation, loc)
	c.Request = c.Request.WithContext(notify.WithLocation(ctx, loc))
	c.Next()
}

func locationOf(c *gin.Context) string {
	return c.GetString(ctxLocation)
}

// redirect sends the browser back to path after a form post.
func redirect(c *gin.Context, path string) {
	c.Redirect(http.StatusSeeOther, path)
}

func instancePath(name string, suffix ...string) string {
	p := "/instances/" + url.PathEscape(name)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// withKey appends the official assistant credential filter to path.
func withKey(path, key string) string {
	if key == "" {
		return path
	}
	return path + "?" + url.Values{"key": {key}}.Encode()
}

// render wraps page in the layout along with the pending toasts for the
// active location.
func (s *server) render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	loc := locationOf(c)
	data["page"] = page
	data["location"] = loc
	if loc != "" {
		flashes, err := s.prefs.TakeUnseen(c.Request.Context(), loc)
		if err != nil {
			log.Printf("dashboard: load toasts: %v", err)
		}
		data["flashes"] = flashes
	}
	c.HTML(status, "layout.html", data)
}
