package hoptoad

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type xmlVar struct {
	Key  string   `xml:"key,attr"`
	Text string   `xml:",chardata"`
	Vars []xmlVar `xml:"var"`
}

type xmlLine struct {
	Number string `xml:"number,attr"`
	File   string `xml:"file,attr"`
	Method string `xml:"method,attr"`
}

type xmlNotice struct {
	XMLName  xml.Name `xml:"notice"`
	Version  string   `xml:"version,attr"`
	APIKey   string   `xml:"api-key"`
	Notifier struct {
		Name    string `xml:"name"`
		Version string `xml:"version"`
		URL     string `xml:"url"`
	} `xml:"notifier"`
	Error struct {
		Class     string    `xml:"class"`
		Message   string    `xml:"message"`
		Backtrace []xmlLine `xml:"backtrace>line"`
	} `xml:"error"`
	Request struct {
		URL        string   `xml:"url"`
		Controller string   `xml:"controller"`
		Action     string   `xml:"action"`
		Params     []xmlVar `xml:"params>var"`
		Session    []xmlVar `xml:"session>var"`
		CGIData    []xmlVar `xml:"cgi-data>var"`
	} `xml:"request"`
	ServerEnvironment struct {
		ProjectRoot     string   `xml:"project-root"`
		EnvironmentName string   `xml:"environment-name"`
		Vars            []xmlVar `xml:"var"`
	} `xml:"server-environment"`
}

func populatedNotice(t *testing.T) *Notice {
	t.Helper()
	n := NewNotice(testConfig(WithAPIKey("1234567890")))
	n.SetException(NewException("RuntimeError", "OMG", []string{"notice_test.go:7:in `get_exception'"}))
	n.SetController("controller")
	n.SetAction("action")
	n.SetURL("http://url.com")
	n.SetParams(Vars{
		{Key: "paramskey", Value: "paramsvalue"},
		{Key: "nestparentkey", Value: Vars{{Key: "nestkey", Value: "nestvalue"}}},
	})
	n.SetSession(map[string]string{"sessionkey": "sessionvalue"})
	n.SetCGIData(Vars{{Key: "cgikey", Value: "cgivalue"}})
	n.SetProjectRoot("RAILS_ROOT")
	n.SetEnvironmentName("RAILS_ENV")
	n.SetEnvironmentVars(Vars{{Key: "varkey", Value: "varvalue"}})
	return n
}

func decode(t *testing.T, n *Notice) (string, xmlNotice) {
	t.Helper()
	out, err := n.ToXML()
	require.NoError(t, err)

	var doc xmlNotice
	require.NoError(t, xml.Unmarshal(out, &doc))
	return string(out), doc
}

func TestToXML_FullNotice(t *testing.T) {
	raw, doc := decode(t, populatedNotice(t))

	assert.True(t, strings.HasPrefix(raw, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Equal(t, "2.0.0", doc.Version)
	assert.Equal(t, "1234567890", doc.APIKey)

	assert.Equal(t, "Hoptoad Notifier", doc.Notifier.Name)
	assert.Equal(t, "2.0.0", doc.Notifier.Version)
	assert.Equal(t, "http://hoptoadapp.com", doc.Notifier.URL)

	assert.Equal(t, "RuntimeError", doc.Error.Class)
	assert.Equal(t, "OMG", doc.Error.Message)
	require.Len(t, doc.Error.Backtrace, 1)
	assert.Equal(t, xmlLine{Number: "7", File: "notice_test.go", Method: "get_exception"}, doc.Error.Backtrace[0])

	assert.Equal(t, "http://url.com", doc.Request.URL)
	assert.Equal(t, "controller", doc.Request.Controller)
	assert.Equal(t, "action", doc.Request.Action)

	params := doc.Request.Params
	require.Len(t, params, 2)
	assert.Equal(t, "paramskey", params[0].Key)
	assert.Equal(t, "paramsvalue", params[0].Text)
	assert.Equal(t, "nestparentkey", params[1].Key)
	require.Len(t, params[1].Vars, 1)
	assert.Equal(t, "nestkey", params[1].Vars[0].Key)
	assert.Equal(t, "nestvalue", params[1].Vars[0].Text)

	assert.Equal(t, []xmlVar{{Key: "sessionkey", Text: "sessionvalue"}}, doc.Request.Session)
	assert.Equal(t, []xmlVar{{Key: "cgikey", Text: "cgivalue"}}, doc.Request.CGIData)

	assert.Equal(t, "RAILS_ROOT", doc.ServerEnvironment.ProjectRoot)
	assert.Equal(t, "RAILS_ENV", doc.ServerEnvironment.EnvironmentName)
	assert.Equal(t, []xmlVar{{Key: "varkey", Text: "varvalue"}}, doc.ServerEnvironment.Vars)
}

func TestToXML_ElementOrder(t *testing.T) {
	raw, _ := decode(t, populatedNotice(t))

	order := []string{"<api-key>", "<notifier>", "<error>", "<class>", "<message>", "<backtrace>",
		"<request>", "<url>http://url.com", "<controller>", "<action>", "<params>", "<session>", "<cgi-data>",
		"<server-environment>", "<project-root>", "<environment-name>", `<var key="varkey">`}
	pos := 0
	for _, tag := range order {
		idx := strings.Index(raw[pos:], tag)
		require.GreaterOrEqual(t, idx, 0, "%s missing or out of order", tag)
		pos += idx
	}
}

func TestToXML_Deterministic(t *testing.T) {
	n := populatedNotice(t)

	first, err := n.ToXML()
	require.NoError(t, err)
	second, err := n.ToXML()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestToXML_EmptyNotice(t *testing.T) {
	n := NewNotice(testConfig())
	n.SetBacktrace(nil)

	raw, doc := decode(t, n)

	assert.Contains(t, raw, "<url></url><controller></controller><action></action>")
	assert.Nil(t, doc.Request.Params)
	assert.NotContains(t, raw, "<params>")
	assert.NotContains(t, raw, "<session>")
	assert.NotContains(t, raw, "<cgi-data>")
	assert.Contains(t, raw, "<backtrace></backtrace>")
	assert.Empty(t, doc.Error.Class)
}

func TestToXML_RendersFilteredValues(t *testing.T) {
	n := NewNotice(testConfig())
	n.SetParams(Vars{{Key: "password", Value: "hunter2"}})

	raw, doc := decode(t, n)

	assert.NotContains(t, raw, "hunter2")
	assert.Equal(t, Filtered, doc.Request.Params[0].Text)
}

func TestToXML_RedactsRawNestedMaps(t *testing.T) {
	n := NewNotice(testConfig())
	n.SetParams(Vars{{Key: "user", Value: map[string]any{"password": "hunter2", "name": "jo"}}})
	n.SetCGIData(Vars{{Key: "auth", Value: map[string]string{"password": "hunter3"}}})
	n.SetEnvironmentVars(Vars{{Key: "db", Value: map[string]string{"password": "hunter4"}}})

	raw, doc := decode(t, n)

	for _, secret := range []string{"hunter2", "hunter3", "hunter4"} {
		assert.NotContains(t, raw, secret)
	}
	user := doc.Request.Params[0]
	assert.Equal(t, "user", user.Key)
	assert.Equal(t, []xmlVar{{Key: "name", Text: "jo"}, {Key: "password", Text: Filtered}}, user.Vars)
	require.Len(t, doc.ServerEnvironment.Vars, 1)
	assert.Equal(t, []xmlVar{{Key: "password", Text: Filtered}}, doc.ServerEnvironment.Vars[0].Vars)
}

func TestToXML_RedactsRawMapsFromRequest(t *testing.T) {
	n := NewNotice(testConfig())
	n.SetRequest(fakeRequest{
		protocol: "http",
		host:     "example.com",
		params:   Vars{{Key: "login", Value: map[string]any{"password": "hunter2"}}},
		store:    Vars{{Key: "cache", Value: map[string]string{"password": "hunter5"}}},
	})

	raw, _ := decode(t, n)

	assert.NotContains(t, raw, "hunter2")
	assert.NotContains(t, raw, "hunter5")
}

func TestToXML_ExcludesReservedEnvironmentKeys(t *testing.T) {
	n := NewNotice(testConfig())
	n.SetEnvironmentVars(Vars{{Key: "project-root", Value: "x"}, {Key: "HOME", Value: "/root"}})

	_, doc := decode(t, n)

	assert.Equal(t, []xmlVar{{Key: "HOME", Text: "/root"}}, doc.ServerEnvironment.Vars)
}

func TestToXML_Sequences(t *testing.T) {
	n := NewNotice(testConfig())
	n.SetParams(Vars{{Key: "ids", Value: []any{"1", "2"}}})

	_, doc := decode(t, n)

	ids := doc.Request.Params[0]
	assert.Equal(t, "ids", ids.Key)
	require.Len(t, ids.Vars, 2)
	assert.Equal(t, xmlVar{Key: "0", Text: "1"}, ids.Vars[0])
	assert.Equal(t, xmlVar{Key: "1", Text: "2"}, ids.Vars[1])
}

func TestToXML_EscapesText(t *testing.T) {
	n := NewNotice(testConfig())
	n.SetErrorMessage(`<script>"&"</script>`)

	raw, doc := decode(t, n)

	assert.NotContains(t, raw, "<script>")
	assert.Equal(t, `<script>"&"</script>`, doc.Error.Message)
}
