// xml.go renders a Notice into the collector's XML document.

package hoptoad

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
)

// ContentType is sent with every rendered notice.
const ContentType = "text/xml; charset=utf-8"

// ToXML renders the notice with an XML declaration. Rendering reads the
// notice only, so it can be repeated and always yields the same bytes.
func (n *Notice) ToXML() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(n); err != nil {
		return nil, fmt.Errorf("render notice: %w", err)
	}
	return buf.Bytes(), nil
}

// MarshalXML implements xml.Marshaler. The root element is always "notice".
func (n *Notice) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	w := &xmlWriter{enc: e}

	w.open("notice", attr("version", NotifierVersion))
	w.text("api-key", n.APIKey)

	w.open("notifier")
	w.text("name", n.Notifier.Name)
	w.text("version", n.Notifier.Version)
	w.text("url", n.Notifier.URL)
	w.close("notifier")

	w.open("error")
	w.text("class", n.err.Class)
	w.text("message", n.err.Message)
	w.open("backtrace")
	for _, line := range n.err.Backtrace {
		w.text("line", "",
			attr("number", line.Number),
			attr("file", line.File),
			attr("method", line.Method))
	}
	w.close("backtrace")
	w.close("error")

	req := n.Request()
	w.open("request")
	w.text("url", req.URL)
	w.text("controller", req.Controller)
	w.text("action", req.Action)
	w.section("params", req.Params)
	w.section("session", req.Session)
	w.section("cgi-data", req.CGIData)
	w.close("request")

	env := n.ServerEnvironment()
	w.open("server-environment")
	w.text("project-root", env.ProjectRoot)
	w.text("environment-name", env.EnvironmentName)
	w.vars(env.Vars.Without("project-root", "environment-name"))
	w.close("server-environment")

	w.close("notice")
	return w.err
}

// xmlWriter keeps the first encoder error and turns later calls into no-ops.
type xmlWriter struct {
	enc *xml.Encoder
	err error
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func (w *xmlWriter) token(t xml.Token) {
	if w.err == nil {
		w.err = w.enc.EncodeToken(t)
	}
}

func (w *xmlWriter) open(name string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *xmlWriter) close(name string) {
	w.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *xmlWriter) text(name, value string, attrs ...xml.Attr) {
	w.open(name, attrs...)
	if value != "" {
		w.token(xml.CharData(value))
	}
	w.close(name)
}

// section writes name wrapping vars, or nothing when vars is empty.
func (w *xmlWriter) section(name string, vars Vars) {
	if len(vars) == 0 {
		return
	}
	w.open(name)
	w.vars(vars)
	w.close(name)
}

func (w *xmlWriter) vars(vars Vars) {
	for _, kv := range vars {
		w.value(kv.Key, kv.Value)
	}
}

// value writes one var element. Mappings nest var elements; sequences nest
// var elements keyed by index.
func (w *xmlWriter) value(key string, value any) {
	switch v := value.(type) {
	case Vars:
		w.open("var", attr("key", key))
		w.vars(v)
		w.close("var")
	case []any:
		w.open("var", attr("key", key))
		for i, item := range v {
			w.value(strconv.Itoa(i), item)
		}
		w.close("var")
	default:
		w.text("var", fmt.Sprint(value), attr("key", key))
	}
}
