package detectors

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/nightshade/scanner/internal/networking"
	"github.com/nightshade/scanner/internal/utils"
)

// injectionPoint is one place a payload can be planted on a target: a query
// string parameter or an HTML form field.
type injectionPoint struct {
	Method string // request method to use when probing this point
	URL    string // request URL (form action resolved against the page)
	Param  string
	Value  string // current/default value
	Source string // "query" or "form"
}

// collectInjectionPoints gathers the target URL's own query parameters plus
// the fields of any HTML forms served at the target.
func collectInjectionPoints(ctx context.Context, client *networking.Client, target string, logger utils.Logger) []injectionPoint {
	points := queryInjectionPoints(target)

	respData := client.PerformRequest(networking.ClientRequestData{URL: target, Method: http.MethodGet, Ctx: ctx})
	if respData.Error != nil {
		logger.Debugf("Could not fetch %s for form discovery: %v", target, respData.Error)
		return points
	}
	points = append(points, formInjectionPoints(target, respData.Body, logger)...)
	return points
}

func queryInjectionPoints(target string) []injectionPoint {
	u, err := url.Parse(target)
	if err != nil {
		return nil
	}
	var points []injectionPoint
	for param, values := range u.Query() {
		value := ""
		if len(values) > 0 {
			value = values[0]
		}
		points = append(points, injectionPoint{
			Method: http.MethodGet,
			URL:    target,
			Param:  param,
			Value:  value,
			Source: "query",
		})
	}
	return points
}

// formInjectionPoints walks the page's HTML and yields one point per named
// form field.
func formInjectionPoints(baseURL string, body []byte, logger utils.Logger) []injectionPoint {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		logger.Debugf("Failed to parse HTML from %s: %v", baseURL, err)
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var points []injectionPoint
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "form" {
			action := attrValue(n, "action")
			method := strings.ToUpper(attrValue(n, "method"))
			if method == "" {
				method = http.MethodGet
			}
			actionURL := baseURL
			if action != "" {
				if resolved, err := base.Parse(action); err == nil {
					actionURL = resolved.String()
				}
			}
			for _, field := range formFields(n) {
				points = append(points, injectionPoint{
					Method: method,
					URL:    actionURL,
					Param:  field.name,
					Value:  field.value,
					Source: "form",
				})
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return points
}

type formField struct {
	name  string
	value string
}

func formFields(form *html.Node) []formField {
	var fields []formField
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "input":
				inputType := strings.ToLower(attrValue(n, "type"))
				name := attrValue(n, "name")
				if name != "" && inputType != "submit" && inputType != "button" && inputType != "file" {
					fields = append(fields, formField{name: name, value: attrValue(n, "value")})
				}
			case "textarea", "select":
				if name := attrValue(n, "name"); name != "" {
					fields = append(fields, formField{name: name})
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(form)
	return fields
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// sendToPoint delivers an injected value at a point: query points get the
// parameter rewritten in the URL, form points get a form-encoded body (POST)
// or rewritten action URL (GET forms).
func sendToPoint(ctx context.Context, client *networking.Client, point injectionPoint, injected string) error {
	if point.Method == http.MethodPost {
		form := url.Values{}
		form.Set(point.Param, injected)
		respData := client.PerformRequest(networking.ClientRequestData{
			URL:    point.URL,
			Method: http.MethodPost,
			Body:   form.Encode(),
			RequestHeaders: http.Header{
				"Content-Type": []string{"application/x-www-form-urlencoded"},
			},
			Ctx: ctx,
		})
		return respData.Error
	}

	probeURL, err := utils.ModifyURLQueryParam(point.URL, point.Param, injected)
	if err != nil {
		return err
	}
	respData := client.PerformRequest(networking.ClientRequestData{URL: probeURL, Method: http.MethodGet, Ctx: ctx})
	return respData.Error
}
