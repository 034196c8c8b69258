package automation

import (
	"fmt"
	"strings"

	"socsync/pkg/contracts/domain"
)

// LocatorKind selects how a Locator's Value is interpreted
type LocatorKind int

const (
	LocatorXPath LocatorKind = iota
	LocatorCSS
	LocatorRole
	LocatorText
)

func (k LocatorKind) String() string {
	switch k {
	case LocatorXPath:
		return "xpath"
	case LocatorCSS:
		return "css"
	case LocatorRole:
		return "role"
	case LocatorText:
		return "text"
	default:
		return "unknown"
	}
}

// Locator addresses one element of the portal UI.
//
// Role locators match an ARIA role (or the equivalent HTML element) by
// accessible name; Text locators match an element by its visible text.
// Nth selects the zero-based match among several and is ignored for CSS.
type Locator struct {
	Kind  LocatorKind
	Value string
	Name  string
	Nth   int
	Exact bool
}

// XPath returns a locator for a raw XPath expression
func XPath(expr string) Locator {
	return Locator{Kind: LocatorXPath, Value: expr}
}

// CSS returns a locator for a CSS selector
func CSS(selector string) Locator {
	return Locator{Kind: LocatorCSS, Value: selector}
}

// Role returns a locator for an element with the given role and accessible name
func Role(role, name string, exact bool) Locator {
	return Locator{Kind: LocatorRole, Value: role, Name: name, Exact: exact}
}

// Text returns a locator for an element whose text contains s
func Text(s string) Locator {
	return Locator{Kind: LocatorText, Value: s}
}

// At returns a copy of l selecting the nth (zero-based) match
func (l Locator) At(nth int) Locator {
	l.Nth = nth
	return l
}

// IsCSS reports whether Query returns a CSS selector rather than XPath
func (l Locator) IsCSS() bool {
	return l.Kind == LocatorCSS
}

// Query renders the locator as a selector the browser can search for.
// Everything except CSS is rendered to XPath.
func (l Locator) Query() string {
	var expr string
	switch l.Kind {
	case LocatorCSS:
		return l.Value
	case LocatorXPath:
		expr = l.Value
	case LocatorRole:
		expr = roleXPath(l.Value, l.Name, l.Exact)
	case LocatorText:
		expr = fmt.Sprintf("//*[text()[%s]]", textMatch(".", l.Value, l.Exact))
	}
	if l.Nth > 0 {
		expr = fmt.Sprintf("(%s)[%d]", expr, l.Nth+1)
	}
	return expr
}

// String describes the locator for logs and error messages
func (l Locator) String() string {
	switch l.Kind {
	case LocatorRole:
		s := fmt.Sprintf("role=%s[name=%q]", l.Value, l.Name)
		if l.Nth > 0 {
			s += fmt.Sprintf(" nth=%d", l.Nth)
		}
		return s
	case LocatorText:
		s := fmt.Sprintf("text=%q", l.Value)
		if l.Nth > 0 {
			s += fmt.Sprintf(" nth=%d", l.Nth)
		}
		return s
	default:
		return l.Kind.String() + "=" + l.Value
	}
}

func roleXPath(role, name string, exact bool) string {
	var nodes string
	switch role {
	case "button":
		nodes = "//*[self::button or @role='button']"
	case "link":
		nodes = "//*[self::a or @role='link']"
	case "textbox":
		nodes = "//*[self::input or self::textarea or @role='textbox']"
	default:
		nodes = fmt.Sprintf("//*[@role=%s]", xpathLiteral(role))
	}
	if name == "" {
		return nodes
	}
	return fmt.Sprintf("%s[%s or %s]", nodes, textMatch(".", name, exact), textMatch("@aria-label", name, exact))
}

func textMatch(subject, value string, exact bool) string {
	if exact {
		return fmt.Sprintf("normalize-space(%s)=%s", subject, xpathLiteral(value))
	}
	return fmt.Sprintf("contains(normalize-space(%s), %s)", subject, xpathLiteral(value))
}

// xpathLiteral quotes s as an XPath 1.0 string literal
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// Locators names every element the export sequence touches
type Locators struct {
	OpsID             Locator
	Password          Locator
	Submit            Locator
	DialogClose       Locator
	DialogWrapper     Locator
	ExportButton      Locator
	AdvancedExport    Locator
	ExportType        Locator
	AddTo             Locator
	ProfileInput      Locator
	ProfileSuggestion Locator
	Confirm           Locator
	Download          Locator
}

// DefaultLocators returns the portal's locators for the given report
func DefaultLocators(req domain.ReportRequest) Locators {
	return Locators{
		OpsID:             XPath(`//*[@placeholder="Ops ID"]`),
		Password:          XPath(`//*[@placeholder="Senha"]`),
		Submit:            Role("button", "Entrar", false),
		DialogClose:       CSS(".ssc-dialog-close"),
		DialogWrapper:     CSS(".ssc-dialog-wrapper"),
		ExportButton:      Role("button", "Exportar", false),
		AdvancedExport:    Text("Exportar Pedido Avançado"),
		ExportType:        Role("treeitem", req.ExportType, true),
		AddTo:             Text("+ adicionar à").At(2),
		ProfileInput:      XPath("/html/body/span[6]/div/div[1]/div/input"),
		ProfileSuggestion: XPath("/html[1]/body[1]/span[6]/div[1]/div[2]/div[1]/ul[1]/div[1]/div[1]/li[1]"),
		Confirm:           Role("button", "Confirmar", false),
		Download:          Role("button", "Baixar", false),
	}
}
