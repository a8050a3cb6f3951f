package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/wapanel/internal/api"
	"github.com/zulandar/wapanel/internal/config"
	"github.com/zulandar/wapanel/internal/models"
)

// fakeBackend implements Backend. Methods a test does not stub fall through
// to the nil embedded interface and panic.
type fakeBackend struct {
	Backend

	mu         sync.Mutex
	instances  []models.Instance
	users      []models.User
	creds      models.CredentialSet
	assistants []models.Assistant
	sessions   []models.Session
	official   []models.OfficialAssistant
	qr         []models.QRStatus
	qrErr      error
	state      models.InstanceData
	calls      []string

	createdCfg  models.InstanceConfig
	createdUser *api.UserData
	editedCfg   models.InstanceConfig
	sessionAct  models.SessionAction
	sessionJID  string
	officialKey string
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (f *fakeBackend) ListUsers(context.Context, string) ([]models.User, error) {
	f.record("ListUsers")
	return f.users, nil
}

func (f *fakeBackend) ListInstances(context.Context, string) ([]models.Instance, error) {
	f.record("ListInstances")
	return f.instances, nil
}

func (f *fakeBackend) GetInstanceConfig(_ context.Context, _, id string) (*models.Instance, error) {
	f.record("GetInstanceConfig")
	return nil, nil
}

func (f *fakeBackend) CreateInstance(_ context.Context, _ string, cfg models.InstanceConfig, user *api.UserData) (string, error) {
	f.record("CreateInstance")
	f.createdCfg, f.createdUser = cfg, user
	return "ok", nil
}

func (f *fakeBackend) EditInstance(_ context.Context, _, _ string, cfg models.InstanceConfig) (string, error) {
	f.record("EditInstance")
	f.editedCfg = cfg
	return "ok", nil
}

func (f *fakeBackend) DeleteInstance(context.Context, string, string) (string, error) {
	f.record("DeleteInstance")
	return "ok", nil
}

func (f *fakeBackend) TurnOffInstance(context.Context, string, string) (string, error) {
	f.record("TurnOffInstance")
	return "ok", nil
}

func (f *fakeBackend) RefreshQR(context.Context, string, string) (models.QRStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "RefreshQR")
	if f.qrErr != nil {
		return models.QRStatus{}, f.qrErr
	}
	if len(f.qr) == 0 {
		return models.QRStatus{State: "connecting"}, nil
	}
	st := f.qr[0]
	if len(f.qr) > 1 {
		f.qr = f.qr[1:]
	}
	return st, nil
}

func (f *fakeBackend) InstanceData(_ context.Context, _, name string) models.InstanceData {
	f.record("InstanceData")
	if f.state.State != "" {
		return f.state
	}
	return models.InstanceData{Name: name, State: "close"}
}

func (f *fakeBackend) GetCredentials(_ context.Context, name string) (models.CredentialSet, error) {
	f.record("GetCredentials")
	if f.creds.APIKeys == nil {
		return models.EmptyCredentialSet(name), nil
	}
	return f.creds, nil
}

func (f *fakeBackend) CreateCredential(context.Context, string, string, string) (string, error) {
	f.record("CreateCredential")
	return "ok", nil
}

func (f *fakeBackend) ListAssistants(context.Context, string) ([]models.Assistant, error) {
	f.record("ListAssistants")
	return f.assistants, nil
}

func (f *fakeBackend) GetAssistant(_ context.Context, _, id string) (models.Assistant, error) {
	f.record("GetAssistant")
	for _, a := range f.assistants {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Assistant{}, &api.Error{Op: api.OpGetAssistant, Status: http.StatusNotFound}
}

func (f *fakeBackend) CreateAssistant(context.Context, string, models.Assistant) (string, error) {
	f.record("CreateAssistant")
	return "ok", nil
}

func (f *fakeBackend) ListSessions(context.Context, string, string) ([]models.Session, error) {
	f.record("ListSessions")
	return f.sessions, nil
}

func (f *fakeBackend) UpdateSession(_ context.Context, _, _, _, jid string, action models.SessionAction) (string, error) {
	f.record("UpdateSession")
	f.sessionAct, f.sessionJID = action, jid
	return "ok", nil
}

func (f *fakeBackend) ListOfficialAssistants(_ context.Context, _, key string) ([]models.OfficialAssistant, error) {
	f.record("ListOfficialAssistants")
	f.officialKey = key
	return f.official, nil
}

func (f *fakeBackend) CreateOfficialAssistant(context.Context, string, models.OfficialAssistant) (string, error) {
	f.record("CreateOfficialAssistant")
	return "ok", nil
}

type fakePrefs struct {
	mu       sync.Mutex
	location string
	accepted bool
	unseen   []models.Activity
}

func (p *fakePrefs) LocationID(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location, nil
}

func (p *fakePrefs) SetLocationID(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = id
	return nil
}

func (p *fakePrefs) TermsAccepted(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accepted, nil
}

func (p *fakePrefs) AcceptTerms(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accepted = true
	return nil
}

func (p *fakePrefs) TakeUnseen(context.Context, string) ([]models.Activity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.unseen
	p.unseen = nil
	return out, nil
}

// toastSink records dashboard toasts.
type toastSink struct {
	mu      sync.Mutex
	errors  []string
	success []string
}

func (t *toastSink) Success(_ context.Context, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.success = append(t.success, msg)
}

func (t *toastSink) Error(_ context.Context, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = append(t.errors, msg)
}

func (t *toastSink) Errors() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.errors...)
}

type fixture struct {
	router  *gin.Engine
	backend *fakeBackend
	prefs   *fakePrefs
	toasts  *toastSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		backend: &fakeBackend{},
		prefs:   &fakePrefs{location: "loc1", accepted: true},
		toasts:  &toastSink{},
	}
	r, err := NewRouter(StartOpts{
		Backend:  f.backend,
		Prefs:    f.prefs,
		Notifier: f.toasts,
		QR:       config.QRConfig{RefreshInterval: 30 * time.Second, CloseDelay: 10 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	f.router = r
	return f
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func (f *fixture) post(path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	f.router.ServeHTTP(w, req)
	return w
}

func TestNewRouter_RequiresDependencies(t *testing.T) {
	if _, err := NewRouter(StartOpts{Prefs: &fakePrefs{}}); err == nil || !strings.Contains(err.Error(), "backend is required") {
		t.Errorf("err = %v", err)
	}
	if _, err := NewRouter(StartOpts{Backend: &fakeBackend{}}); err == nil || !strings.Contains(err.Error(), "prefs store is required") {
		t.Errorf("err = %v", err)
	}
}

func TestEmbeddedAssets(t *testing.T) {
	for _, name := range []string{"assets/style.css", "assets/app.js"} {
		data, err := assetsFS.ReadFile(name)
		if err != nil {
			t.Fatalf("%s not embedded: %v", name, err)
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestStatic(t *testing.T) {
	f := newFixture(t)
	w := f.get("/static/style.css")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestRenderTerms(t *testing.T) {
	html, err := renderTerms()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), "<h1>Términos y Condiciones de Uso</h1>") {
		t.Errorf("terms not rendered as HTML: %.200s", html)
	}
}

func TestRequestID(t *testing.T) {
	f := newFixture(t)
	w := f.get("/static/style.css")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/static/style.css", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want caller's", got)
	}
}

func TestIndex_AsksForLocation(t *testing.T) {
	f := newFixture(t)
	f.prefs.location = ""
	w := f.get("/")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Seleccione una location") {
		t.Fatalf("status %d body %.300s", w.Code, w.Body.String())
	}
	if f.backend.called("ListInstances") {
		t.Error("listed instances without a location")
	}
}

func TestIndex_QueryLocationIsRemembered(t *testing.T) {
	f := newFixture(t)
	f.backend.instances = []models.Instance{
		{Name: "ventas", Alias: "Equipo Ventas", ConnectionStatus: "open", MainDevice: true},
		{Name: "soporte", ConnectionStatus: "close"},
	}
	w := f.get("/?locationId=loc42")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if f.prefs.location != "loc42" {
		t.Errorf("location = %q, want loc42", f.prefs.location)
	}
	body := w.Body.String()
	for _, want := range []string{"Equipo Ventas", "soporte", "loc42", "(ya existe uno)"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestIndex_TermsGate(t *testing.T) {
	f := newFixture(t)
	f.prefs.accepted = false
	w := f.get("/")
	if !strings.Contains(w.Body.String(), "Aceptar y continuar") {
		t.Fatalf("terms gate not shown: %.300s", w.Body.String())
	}

	w = f.post("/terms/accept", nil)
	if w.Code != http.StatusSeeOther {
		t.Errorf("accept status = %d", w.Code)
	}
	if !f.prefs.accepted {
		t.Error("terms not recorded")
	}
	if w := f.get("/"); !strings.Contains(w.Body.String(), "Nueva instancia") {
		t.Error("instance list not shown after accepting")
	}
}

func TestIndex_ShowsFlashes(t *testing.T) {
	f := newFixture(t)
	f.prefs.unseen = []models.Activity{{Level: models.LevelSuccess, Text: "Instancia creada"}}
	w := f.get("/")
	if !strings.Contains(w.Body.String(), `toast-success`) || !strings.Contains(w.Body.String(), "Instancia creada") {
		t.Errorf("flash missing: %.500s", w.Body.String())
	}
	if w := f.get("/"); strings.Contains(w.Body.String(), "Instancia creada") {
		t.Error("flash shown twice")
	}
}

func TestCreateInstance_ValidationBlocksRequest(t *testing.T) {
	f := newFixture(t)
	w := f.post("/instances", url.Values{"alias": {""}})
	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d", w.Code)
	}
	if calls := f.backend.callList(); len(calls) != 0 {
		t.Errorf("invalid form reached the backend: %v", calls)
	}
	errs := f.toasts.Errors()
	if len(errs) != 1 || !strings.Contains(errs[0], "El alias es requerido") || !strings.Contains(errs[0], "Debe seleccionar un usuario") {
		t.Errorf("toasts = %v", errs)
	}
}

func TestCreateInstance_SecondMainDeviceRejected(t *testing.T) {
	f := newFixture(t)
	f.backend.instances = []models.Instance{{Name: "a", MainDevice: true}}
	f.post("/instances", url.Values{"alias": {"B"}, "main_device": {"true"}})
	if f.backend.called("CreateInstance") {
		t.Error("second main device created")
	}
}

func TestCreateInstance_UserOnlyFormSkipsInstanceList(t *testing.T) {
	f := newFixture(t)
	f.backend.users = []models.User{{ID: "7", Name: "Ana"}}
	f.post("/instances", url.Values{"alias": {"Ventas"}, "user_id": {"7"}})
	if f.backend.called("ListInstances") {
		t.Errorf("calls = %v, want no instance list for a non-main device", f.backend.callList())
	}
	if !f.backend.called("CreateInstance") {
		t.Error("CreateInstance not called")
	}
}

func TestCreateInstance_UnknownUserRejected(t *testing.T) {
	f := newFixture(t)
	f.backend.users = []models.User{{ID: "7", Name: "Ana"}}
	w := f.post("/instances", url.Values{"alias": {"Ventas"}, "user_id": {"99"}})
	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d", w.Code)
	}
	if f.backend.called("CreateInstance") {
		t.Error("instance created for a user outside the location")
	}
	errs := f.toasts.Errors()
	if len(errs) != 1 || !strings.Contains(errs[0], "El usuario seleccionado no existe") {
		t.Errorf("toasts = %v", errs)
	}
}

func TestCreateInstance_WithUser(t *testing.T) {
	f := newFixture(t)
	f.backend.users = []models.User{{ID: "7", Name: "Ana", Email: "ana@example.com", Phone: "+5215550000"}}
	f.post("/instances", url.Values{
		"alias":     {"Ventas"},
		"user_id":   {"7"},
		"fb_ads":    {"true"},
		"webhook":   {"https://n8n.example.com/hook"},
		"active_ia": {"true"},
	})
	if !f.backend.called("CreateInstance") {
		t.Fatal("CreateInstance not called")
	}
	cfg := f.backend.createdCfg
	if cfg.Alias != "Ventas" || cfg.UserID != "7" || !cfg.FacebookAds || !cfg.ActiveIA || cfg.IsMainDevice {
		t.Errorf("config = %+v", cfg)
	}
	if f.backend.createdUser == nil || f.backend.createdUser.Email != "ana@example.com" {
		t.Errorf("user = %+v", f.backend.createdUser)
	}
}

func TestEditInstance_CurrentMainDeviceAllowed(t *testing.T) {
	f := newFixture(t)
	f.backend.instances = []models.Instance{{Name: "ventas", MainDevice: true}, {Name: "otro"}}
	w := f.post("/instances/ventas/edit", url.Values{"alias": {"Ventas"}, "main_device": {"true"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", w.Code)
	}
	if !f.backend.editedCfg.IsMainDevice || f.backend.editedCfg.UserID != "" {
		t.Errorf("edited = %+v", f.backend.editedCfg)
	}

	f.backend.calls = nil
	w = f.post("/instances/otro/edit", url.Values{"alias": {"Otro"}, "main_device": {"true"}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
	if f.backend.called("EditInstance") {
		t.Error("second main device saved")
	}
}

func TestEditInstance_InvalidFormSkipsInstanceList(t *testing.T) {
	f := newFixture(t)
	w := f.post("/instances/ventas/edit", url.Values{"alias": {" "}, "main_device": {"true"}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if f.backend.called("ListInstances") || f.backend.called("EditInstance") {
		t.Errorf("calls = %v", f.backend.callList())
	}
}

func TestDeleteAndTurnOff(t *testing.T) {
	f := newFixture(t)
	if w := f.post("/instances/ventas/delete", nil); w.Code != http.StatusSeeOther || !f.backend.called("DeleteInstance") {
		t.Errorf("delete: status %d calls %v", w.Code, f.backend.calls)
	}
	if w := f.post("/instances/ventas/off", nil); w.Code != http.StatusSeeOther || !f.backend.called("TurnOffInstance") {
		t.Errorf("off: status %d calls %v", w.Code, f.backend.calls)
	}
}

func TestInstanceDetail(t *testing.T) {
	f := newFixture(t)
	f.backend.instances = []models.Instance{{Name: "ventas", Alias: "Ventas"}}
	f.backend.creds = models.CredentialSet{APIKeys: []models.APIKey{{ID: "k1", Name: "Principal", APIKey: "sk-abcdefghijkl1234"}}}
	f.backend.assistants = []models.Assistant{{ID: "a1", Name: "Recepción", TriggerType: models.TriggerAll}}

	w := f.get("/instances/ventas?key=k1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Ventas", "Principal", "sk-********1234", "Recepción"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "abcdefghijkl") {
		t.Error("full API key rendered")
	}
	if f.backend.officialKey != "k1" {
		t.Errorf("official filter = %q", f.backend.officialKey)
	}
}

func TestInstanceDetail_Unknown(t *testing.T) {
	f := newFixture(t)
	w := f.get("/instances/nope")
	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d", w.Code)
	}
	if errs := f.toasts.Errors(); len(errs) != 1 || errs[0] != "Instancia no encontrada" {
		t.Errorf("toasts = %v", errs)
	}
}

func TestCreateCredential_Validation(t *testing.T) {
	f := newFixture(t)
	f.post("/instances/ventas/credentials", url.Values{"name": {"Prod"}, "api_key": {"pk-123"}})
	if f.backend.called("CreateCredential") {
		t.Error("invalid key reached the backend")
	}
	f.post("/instances/ventas/credentials", url.Values{"name": {"Prod"}, "api_key": {"sk-123"}})
	if !f.backend.called("CreateCredential") {
		t.Error("valid key not sent")
	}
}

func TestCreateAssistant_KeywordNeedsValue(t *testing.T) {
	f := newFixture(t)
	form := url.Values{
		"name":         {"Bot"},
		"api_key_id":   {"k1"},
		"assistant_id": {"asst_1"},
		"trigger_type": {"keyword"},
	}
	w := f.post("/instances/ventas/assistants", form)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
	if f.backend.called("CreateAssistant") {
		t.Error("invalid assistant reached the backend")
	}

	form.Set("trigger_value", "hola")
	if w := f.post("/instances/ventas/assistants", form); w.Code != http.StatusSeeOther {
		t.Errorf("valid status = %d", w.Code)
	}
	if !f.backend.called("CreateAssistant") {
		t.Error("valid assistant not sent")
	}
}

func TestNewAssistantForm_Defaults(t *testing.T) {
	f := newFixture(t)
	w := f.get("/instances/ventas/assistants/new")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`value="60"`, `value="#stop"`, `value="1500"`, `value="6"`} {
		if !strings.Contains(body, want) {
			t.Errorf("form missing default %s", want)
		}
	}
}

func TestSessions(t *testing.T) {
	f := newFixture(t)
	f.backend.assistants = []models.Assistant{{ID: "a1", Name: "Recepción"}}
	f.backend.sessions = []models.Session{{SessionID: "s1", RemoteJID: "5215550000@s.whatsapp.net", Status: models.SessionOpened}}

	w := f.get("/instances/ventas/assistants/a1/sessions")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "/sessions/s1/paused") || strings.Contains(body, "/sessions/s1/opened") {
		t.Errorf("wrong actions for an open session: %.800s", body)
	}

	w = f.post("/instances/ventas/assistants/a1/sessions/s1/pause", url.Values{"remote_jid": {"5215550000@s.whatsapp.net"}})
	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d", w.Code)
	}
	if f.backend.sessionAct != models.ActionPause || f.backend.sessionJID != "5215550000@s.whatsapp.net" {
		t.Errorf("action = %q jid = %q", f.backend.sessionAct, f.backend.sessionJID)
	}

	f.post("/instances/ventas/assistants/a1/sessions/s1/explode", nil)
	if errs := f.toasts.Errors(); len(errs) != 1 {
		t.Errorf("toasts = %v", errs)
	}
}

func TestCreateOfficial_InvalidFunction(t *testing.T) {
	f := newFixture(t)
	form := url.Values{
		"name":          {"Asesor"},
		"instructions":  {"Responde dudas"},
		"model":         {"gpt-4o"},
		"api_key_id":    {"k1"},
		"temperature":   {"0.7"},
		"top_p":         {"1"},
		"fn_name":       {"buscar"},
		"fn_parameters": {"[1,2]"},
	}
	w := f.post("/instances/ventas/official", form)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
	if f.backend.called("CreateOfficialAssistant") {
		t.Error("invalid tool reached the backend")
	}

	form.Set("fn_parameters", `{"type":"object","properties":{}}`)
	w = f.post("/instances/ventas/official", form)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/instances/ventas?key=k1" {
		t.Errorf("redirect = %q", loc)
	}
}

func TestAPIInstances(t *testing.T) {
	f := newFixture(t)
	w := f.get("/api/instances")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out struct {
		Data []models.Instance `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Data == nil {
		t.Error("data should be an empty array, not null")
	}

	f.prefs.location = ""
	if w := f.get("/api/instances"); w.Code != http.StatusBadRequest {
		t.Errorf("no location status = %d", w.Code)
	}
}

func TestQRRefresh_UnknownPoller(t *testing.T) {
	f := newFixture(t)
	w := f.post("/instances/ventas/qr/refresh?poller=nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

type sseMsg struct {
	event string
	data  string
}

func readSSE(t *testing.T, sc *bufio.Scanner) sseMsg {
	t.Helper()
	var m sseMsg
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			m.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			m.data = strings.TrimPrefix(line, "data: ")
		case line == "" && m.event != "":
			return m
		}
	}
	t.Fatalf("stream ended: %v", sc.Err())
	return m
}

func TestQREvents_StreamUntilConnected(t *testing.T) {
	f := newFixture(t)
	f.backend.qr = []models.QRStatus{
		{State: "connecting", QRCode: "data:image/png;base64,AAAA"},
		{State: models.StateOpen},
	}
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/instances/ventas/qr/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	sc := bufio.NewScanner(resp.Body)

	hello := readSSE(t, sc)
	if hello.event != "hello" {
		t.Fatalf("first event = %+v", hello)
	}
	var h struct{ Poller string }
	json.Unmarshal([]byte(hello.data), &h)

	// Wait for the first code.
	for {
		m := readSSE(t, sc)
		if m.event == "snapshot" && strings.Contains(m.data, "data:image/png;base64,AAAA") {
			break
		}
	}

	rr, err := http.Post(srv.URL+"/instances/ventas/qr/refresh?poller="+h.Poller, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	rr.Body.Close()
	if rr.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d", rr.StatusCode)
	}

	for {
		m := readSSE(t, sc)
		if m.event == "closed" {
			if !strings.Contains(m.data, "/instances/ventas") {
				t.Errorf("closed data = %s", m.data)
			}
			break
		}
	}
}

// openQRStream connects to the instance's event stream and returns a
// scanner positioned after the hello event.
func openQRStream(t *testing.T, ctx context.Context, f *fixture, query string) *bufio.Scanner {
	t.Helper()
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/instances/ventas/qr/events"+query, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64<<10), 1<<20)
	if m := readSSE(t, sc); m.event != "hello" {
		t.Fatalf("first event = %+v", m)
	}
	return sc
}

func TestQRPage_CarriesInitialCode(t *testing.T) {
	f := newFixture(t)
	f.backend.state = models.InstanceData{Name: "ventas", State: "close", QRCode: "data:image/png;base64,INIT"}
	w := f.get("/instances/ventas/qr")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `data-qr-initial="data:image/png;base64,INIT"`) {
		t.Errorf("initial code missing: %.800s", w.Body.String())
	}
	if f.backend.called("RefreshQR") {
		t.Error("page fetched a second code")
	}
}

func TestQREvents_StartsFromInitialCode(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sc := openQRStream(t, ctx, f, "?initial="+url.QueryEscape("data:image/png;base64,INIT"))
	m := readSSE(t, sc)
	if m.event != "snapshot" {
		t.Fatalf("event = %+v", m)
	}
	var snap struct {
		Phase       string
		Image       string
		SecondsLeft int
	}
	if err := json.Unmarshal([]byte(m.data), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Phase != "displaying" || snap.Image != "data:image/png;base64,INIT" || snap.SecondsLeft != 30 {
		t.Errorf("first snapshot = %+v", snap)
	}
	if f.backend.called("RefreshQR") {
		t.Errorf("calls = %v, want no fetch while the initial code is fresh", f.backend.callList())
	}
}

func TestQREvents_UndisplayableInitialIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.backend.qr = []models.QRStatus{{State: "connecting", QRCode: "data:image/png;base64,AAAA"}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sc := openQRStream(t, ctx, f, "?initial=not-a-code")
	for {
		m := readSSE(t, sc)
		if m.event == "snapshot" && strings.Contains(m.data, "AAAA") {
			break
		}
	}
	if !f.backend.called("RefreshQR") {
		t.Error("expected a fetch when the initial code is unusable")
	}
}

func TestQREvents_FetchFailureToastsOnStream(t *testing.T) {
	f := newFixture(t)
	f.backend.qrErr = &api.Error{Op: api.OpRefreshQR, Status: http.StatusInternalServerError, Message: "Instancia no encontrada"}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sc := openQRStream(t, ctx, f, "")
	for {
		m := readSSE(t, sc)
		if m.event != "toast" {
			continue
		}
		var got struct{ Level, Text string }
		if err := json.Unmarshal([]byte(m.data), &got); err != nil {
			t.Fatal(err)
		}
		if got.Level != models.LevelError || got.Text != "Instancia no encontrada" {
			t.Errorf("toast = %+v", got)
		}
		break
	}
	if errs := f.toasts.Errors(); len(errs) != 1 || errs[0] != "Instancia no encontrada" {
		t.Errorf("dashboard toasts = %v", errs)
	}
}

func TestStreamToasts_DropsWhenFull(t *testing.T) {
	toasts := make(streamToasts, 1)
	toasts.Error(context.Background(), "uno")
	toasts.Success(context.Background(), "dos")
	if got := <-toasts; got.Text != "uno" || got.Level != models.LevelError {
		t.Errorf("got %+v", got)
	}
	select {
	case extra := <-toasts:
		t.Errorf("unexpected %+v", extra)
	default:
	}
}
