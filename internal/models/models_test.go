package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

func TestPreference_Fields(t *testing.T) {
	typ := reflect.TypeOf(Preference{})
	assertGormTag(t, typ, "Key", "primaryKey")
	assertGormTag(t, typ, "Key", "size:64")
	assertGormTag(t, typ, "Value", "type:text")
}

func TestActivity_Fields(t *testing.T) {
	typ := reflect.TypeOf(Activity{})
	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "Level", "not null")
	assertGormTag(t, typ, "Level", "index")
	assertGormTag(t, typ, "Seen", "default:false")
}

func TestFlexString_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want FlexString
	}{
		{"string", `"abc"`, "abc"},
		{"integer", `42`, "42"},
		{"null", `null`, ""},
		{"large integer", `12345678901234`, "12345678901234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got FlexString
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFlexTime_UnixSeconds(t *testing.T) {
	var ts FlexTime
	if err := json.Unmarshal([]byte(`1700000000`), &ts); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ts != "2023-11-14T22:13:20Z" {
		t.Errorf("got %q, want RFC3339 text", ts)
	}
	if ts.Time().Unix() != 1700000000 {
		t.Errorf("Time() = %v", ts.Time())
	}
}

func TestFlexTime_Invalid(t *testing.T) {
	if !FlexTime("yesterday").Time().IsZero() {
		t.Error("unparseable timestamp should yield zero time")
	}
}

func TestUserList_NumericIDs(t *testing.T) {
	var list UserList
	body := `{"data":[{"id":7,"name":"Ana","email":"ana@example.com"}],"instancias":2}`
	if err := json.Unmarshal([]byte(body), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list.Data) != 1 || list.Data[0].ID != "7" {
		t.Fatalf("Data = %+v, want id \"7\"", list.Data)
	}
	if list.Instances != 2 {
		t.Errorf("Instances = %d, want 2", list.Instances)
	}
}

func TestInstance_Helpers(t *testing.T) {
	inst := Instance{Name: "wa-1", ConnectionStatus: StateOpen, Photo: "p.png"}
	if !inst.Connected() {
		t.Error("open instance should be connected")
	}
	if inst.DisplayName() != "wa-1" {
		t.Errorf("DisplayName = %q, want fallback to name", inst.DisplayName())
	}
	inst.Alias = "Ventas"
	if inst.DisplayName() != "Ventas" {
		t.Errorf("DisplayName = %q, want alias", inst.DisplayName())
	}
	if inst.Picture() != "p.png" {
		t.Errorf("Picture = %q, want photo fallback", inst.Picture())
	}
	inst.ProfilePicURL = "pp.png"
	if inst.Picture() != "pp.png" {
		t.Errorf("Picture = %q, want profile picture", inst.Picture())
	}
}

func TestQRStatus_Terminal(t *testing.T) {
	for state, want := range map[string]bool{
		StateOpen:       false,
		StateConnecting: false,
		StateClose:      true,
		StateError:      true,
		"":              false,
	} {
		if got := (QRStatus{State: state}).Terminal(); got != want {
			t.Errorf("Terminal(%q) = %v, want %v", state, got, want)
		}
	}
}

func TestCredentialSet_Find(t *testing.T) {
	set := CredentialSet{APIKeys: []APIKey{{ID: "1", Name: "main"}, {ID: "2", Name: "backup"}}}
	k, ok := set.Find("2")
	if !ok || k.Name != "backup" {
		t.Errorf("Find(2) = %+v, %v", k, ok)
	}
	if _, ok := set.Find("3"); ok {
		t.Error("Find(3) should miss")
	}
}

func TestEmptyCredentialSet(t *testing.T) {
	set := EmptyCredentialSet("wa-1")
	if set.ID != "wa-1" || set.Name != "Default" || set.APIKeys == nil || len(set.APIKeys) != 0 {
		t.Errorf("EmptyCredentialSet = %+v", set)
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"sk-abcdefghijklmnop", "sk-********mnop"},
		{"sk-****mnop", "sk-****mnop"},
		{"short", "short"},
		{"abcdefghijkl", "********ijkl"},
	}
	for _, tt := range tests {
		if got := MaskKey(tt.in); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAssistantRecord_Defaults(t *testing.T) {
	a := AssistantRecord{ID: "9"}.Assistant()

	if a.Name != DefaultAssistantName {
		t.Errorf("Name = %q, want %q", a.Name, DefaultAssistantName)
	}
	if a.TriggerType != TriggerAll || a.TriggerCondition != ConditionContains {
		t.Errorf("trigger = %s/%s, want all/contains", a.TriggerType, a.TriggerCondition)
	}
	if a.ExpirationMinutes != 60 || a.StopKeyword != "#stop" || a.MessageDelayMs != 1500 {
		t.Errorf("timing defaults = %d/%q/%d", a.ExpirationMinutes, a.StopKeyword, a.MessageDelayMs)
	}
	if a.UnknownMessage != DefaultUnknownMessage {
		t.Errorf("UnknownMessage = %q", a.UnknownMessage)
	}
	if a.ListenToOwner {
		t.Error("ListenToOwner should default to false")
	}
	if !a.StopByOwner || !a.KeepSessionOpen || !a.SeparateMessages {
		t.Error("StopByOwner, KeepSessionOpen, SeparateMessages should default to true")
	}
	if a.DebounceSeconds != 6 {
		t.Errorf("DebounceSeconds = %d, want 6", a.DebounceSeconds)
	}
	if a.SecondsPerMessage != 1 {
		t.Errorf("SecondsPerMessage = %v, want 1", a.SecondsPerMessage)
	}
}

func TestAssistantRecord_ExplicitFalseKept(t *testing.T) {
	body := `{"id":"1","description":"Bot","stopBotFromMe":false,"keepOpen":false,"splitMessages":false,"timePerChar":25,"expire":0}`
	var r AssistantRecord
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	a := r.Assistant()
	if a.StopByOwner || a.KeepSessionOpen || a.SeparateMessages {
		t.Error("explicit false booleans must be preserved")
	}
	if a.SecondsPerMessage != 2.5 {
		t.Errorf("SecondsPerMessage = %v, want 2.5", a.SecondsPerMessage)
	}
	if a.ExpirationMinutes != 60 {
		t.Errorf("ExpirationMinutes = %d, zero should fall back to 60", a.ExpirationMinutes)
	}
}

func TestAssistant_RecordScalesAndFiltersTrigger(t *testing.T) {
	a := NewAssistant()
	a.Name = "Soporte"
	a.APIKeyID = "k1"
	a.AssistantID = "asst_1"
	a.SecondsPerMessage = 1.5
	a.TriggerType = TriggerAll
	a.TriggerCondition = ConditionEquals
	a.TriggerValue = "hola"

	r := a.Record("wa-1")
	if r.InstanceName != "wa-1" || r.Description != "Soporte" || r.OpenAICredsID != "k1" {
		t.Errorf("record = %+v", r)
	}
	if r.BotType != "assistant" {
		t.Errorf("BotType = %q, want assistant", r.BotType)
	}
	if r.TimePerChar == nil || *r.TimePerChar != 15 {
		t.Errorf("TimePerChar = %v, want 15", r.TimePerChar)
	}
	if r.TriggerOperator != "" || r.TriggerValue != "" {
		t.Error("trigger operator/value must be omitted for trigger type all")
	}

	a.TriggerType = TriggerKeyword
	r = a.Record("wa-1")
	if r.TriggerOperator != "equals" || r.TriggerValue != "hola" {
		t.Errorf("keyword trigger = %q/%q, want equals/hola", r.TriggerOperator, r.TriggerValue)
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"timePerChar":15`) {
		t.Errorf("payload = %s, want timePerChar 15", data)
	}
}

func TestAssistant_TriggerSummary(t *testing.T) {
	a := Assistant{TriggerType: TriggerKeyword, TriggerCondition: ConditionStartsWith, TriggerValue: "hi"}
	if got := a.TriggerSummary(); got != `keyword startsWith "hi"` {
		t.Errorf("TriggerSummary = %q", got)
	}
	a.TriggerType = TriggerNone
	if got := a.TriggerSummary(); got != "none" {
		t.Errorf("TriggerSummary = %q", got)
	}
}

func TestOfficialAssistant_Normalize(t *testing.T) {
	o := OfficialAssistant{ID: "a"}.Normalize("key-1")
	if o.Name != DefaultAssistantName || o.Model != DefaultModel {
		t.Errorf("Name/Model = %q/%q", o.Name, o.Model)
	}
	if o.APIKeyID != "key-1" {
		t.Errorf("APIKeyID = %q, want filter key", o.APIKeyID)
	}
	if o.Tools == nil {
		t.Error("Tools should be non-nil")
	}
	if o.Temperature == nil || *o.Temperature != 1 || o.TopP == nil || *o.TopP != 1 {
		t.Error("temperature and top_p should default to 1.0")
	}

	zero := 0.0
	o = OfficialAssistant{APIKeyID: "own", Temperature: &zero}.Normalize("key-1")
	if o.APIKeyID != "own" {
		t.Errorf("APIKeyID = %q, record key must win", o.APIKeyID)
	}
	if *o.Temperature != 0 {
		t.Errorf("Temperature = %v, explicit zero must be kept", *o.Temperature)
	}
}

func TestOfficialAssistant_ToolsRoundTrip(t *testing.T) {
	body := `{"id":"x","tools":[{"type":"code_interpreter"},{"type":"function","function":{"name":"weather","parameters":{"type":"object"}}}],"created_at":1700000000}`
	var o OfficialAssistant
	if err := json.Unmarshal([]byte(body), &o); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(o.Tools) != 2 || o.Tools[1].Label() != "function:weather" || o.Tools[0].Label() != "code_interpreter" {
		t.Fatalf("Tools = %+v", o.Tools)
	}
	p := o.Payload("wa-1")
	data, _ := json.Marshal(p)
	if !strings.Contains(string(data), `"instance_name":"wa-1"`) || !strings.Contains(string(data), `"parameters":{"type":"object"}`) {
		t.Errorf("payload = %s", data)
	}
}

func TestSession_Actions(t *testing.T) {
	if got := (Session{Status: SessionOpened}).Actions(); got[0] != ActionPause {
		t.Errorf("opened actions = %v", got)
	}
	if got := (Session{Status: SessionPaused}).Actions(); got[0] != ActionOpen {
		t.Errorf("paused actions = %v", got)
	}
	if got := (Session{Status: SessionClosed}).Actions(); len(got) != 2 {
		t.Errorf("closed actions = %v", got)
	}
}

func TestParseSessionAction(t *testing.T) {
	for in, want := range map[string]SessionAction{
		"open": ActionOpen, "paused": ActionPause, "close": ActionClose, "delete": ActionDelete,
	} {
		got, err := ParseSessionAction(in)
		if err != nil || got != want {
			t.Errorf("ParseSessionAction(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseSessionAction("resume"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestSessionAction_Texts(t *testing.T) {
	if ActionPause.SuccessText() != "Sesión pausada correctamente" {
		t.Errorf("SuccessText = %q", ActionPause.SuccessText())
	}
	if ActionDelete.FailureText() != "Error al eliminar la sesión" {
		t.Errorf("FailureText = %q", ActionDelete.FailureText())
	}
}

func TestMainDeviceTaken(t *testing.T) {
	instances := []Instance{{Name: "a"}, {Name: "b", MainDevice: true}}
	if !MainDeviceTaken(instances, "") {
		t.Error("main device not detected")
	}
	if MainDeviceTaken(instances, "b") {
		t.Error("the instance being edited should not count")
	}
	if MainDeviceTaken(nil, "") {
		t.Error("empty list has no main device")
	}
}

func TestFindUser(t *testing.T) {
	users := []User{{ID: "3", Name: "Ana"}, {ID: "7", Name: "Luis"}}
	if u, ok := FindUser(users, "7"); !ok || u.Name != "Luis" {
		t.Errorf("FindUser(7) = %+v, %v", u, ok)
	}
	if _, ok := FindUser(users, "9"); ok {
		t.Error("FindUser(9) should miss")
	}
}
